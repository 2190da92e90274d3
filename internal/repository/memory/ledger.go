package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
)

// Ledger is an in-memory repository.TokenLedger keyed by token value.
type Ledger struct {
	mu      sync.Mutex
	byValue map[string]domain.TokenRecord
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byValue: make(map[string]domain.TokenRecord)}
}

func (l *Ledger) Create(_ context.Context, rec *domain.TokenRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byValue[rec.Value]; exists {
		return repository.ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	l.byValue[rec.Value] = *rec
	return nil
}

func (l *Ledger) FindOne(_ context.Context, filter repository.TokenFilter) (*domain.TokenRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byValue[filter.Value]
	if !ok || !filter.Matches(&rec) {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (l *Ledger) Consume(_ context.Context, filter repository.TokenFilter) (*domain.TokenRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byValue[filter.Value]
	if !ok || !filter.Matches(&rec) {
		return nil, repository.ErrNotFound
	}
	delete(l.byValue, filter.Value)
	return &rec, nil
}

func (l *Ledger) Delete(_ context.Context, rec *domain.TokenRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byValue[rec.Value]; !ok {
		return repository.ErrNotFound
	}
	delete(l.byValue, rec.Value)
	return nil
}

func (l *Ledger) Invalidate(_ context.Context, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byValue[value]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Valid = false
	l.byValue[value] = rec
	return nil
}

func (l *Ledger) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed int64
	for value, rec := range l.byValue {
		if !rec.ExpiresAt.After(before) {
			delete(l.byValue, value)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many records are stored.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byValue)
}

// Records returns a copy of every record for a subject and purpose.
func (l *Ledger) Records(subjectID string, purpose domain.TokenPurpose) []domain.TokenRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.TokenRecord
	for _, rec := range l.byValue {
		if rec.SubjectID == subjectID && rec.Purpose == purpose {
			out = append(out, rec)
		}
	}
	return out
}

var _ repository.TokenLedger = (*Ledger)(nil)
