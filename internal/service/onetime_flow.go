package service

import (
	"context"
	"errors"
	"time"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
)

// ErrTokenNotFound covers a wrong value, an already consumed token, an expired
// one and a subject mismatch. Callers cannot tell these apart.
var ErrTokenNotFound = errors.New("one-time token not found")

// OneTimeFlow issues and consumes single-use tokens of one purpose. Account
// verification and password reset are two instances of it.
type OneTimeFlow struct {
	purpose domain.TokenPurpose
	ttl     time.Duration
	ledger  repository.TokenLedger
	now     func() time.Time
}

// NewOneTimeFlow builds a flow for purpose.
func NewOneTimeFlow(purpose domain.TokenPurpose, ttl time.Duration, ledger repository.TokenLedger) *OneTimeFlow {
	return &OneTimeFlow{purpose: purpose, ttl: ttl, ledger: ledger, now: time.Now}
}

// Issue persists a fresh token for subject.
func (f *OneTimeFlow) Issue(ctx context.Context, subject domain.Subject, device domain.DeviceInfo) (*domain.TokenRecord, error) {
	return issueRecord(ctx, f.ledger, subject, f.purpose, device, f.ttl, f.now())
}

// Peek validates a token without consuming it.
func (f *OneTimeFlow) Peek(ctx context.Context, subjectID, value string) (*domain.TokenRecord, error) {
	rec, err := f.ledger.FindOne(ctx, f.filter(subjectID, value))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return rec, err
}

// Consume atomically removes the token. Only one caller can win.
func (f *OneTimeFlow) Consume(ctx context.Context, subjectID, value string) (*domain.TokenRecord, error) {
	rec, err := f.ledger.Consume(ctx, f.filter(subjectID, value))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return rec, err
}

// Restore puts a consumed record back, used when the state change guarded by
// the token could not be persisted.
func (f *OneTimeFlow) Restore(ctx context.Context, rec *domain.TokenRecord) error {
	return f.ledger.Create(ctx, rec)
}

// Discard deletes an issued token that will never be delivered.
func (f *OneTimeFlow) Discard(ctx context.Context, rec *domain.TokenRecord) error {
	return f.ledger.Delete(ctx, rec)
}

func (f *OneTimeFlow) filter(subjectID, value string) repository.TokenFilter {
	return repository.TokenFilter{
		SubjectID: subjectID,
		Value:     value,
		Purpose:   f.purpose,
		ActiveAt:  f.now(),
	}
}

func issueRecord(
	ctx context.Context,
	ledger repository.TokenLedger,
	subject domain.Subject,
	purpose domain.TokenPurpose,
	device domain.DeviceInfo,
	ttl time.Duration,
	now time.Time,
) (*domain.TokenRecord, error) {
	value, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	rec := &domain.TokenRecord{
		SubjectID:   subject.Base().ID,
		SubjectType: subject.Kind(),
		Value:       value,
		Purpose:     purpose,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
		Valid:       true,
	}
	if device != (domain.DeviceInfo{}) {
		rec.Device = &device
	}
	if err := ledger.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
