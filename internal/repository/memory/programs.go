package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
)

// ProgramStore is an in-memory repository.ProgramRepository.
type ProgramStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Program
	order []string
}

// NewProgramStore returns an empty store.
func NewProgramStore() *ProgramStore {
	return &ProgramStore{byID: make(map[string]domain.Program)}
}

func (s *ProgramStore) Create(_ context.Context, p *domain.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Participants = nil
	s.byID[p.ID] = cloneProgram(*p)
	s.order = append(s.order, p.ID)
	return nil
}

func (s *ProgramStore) Update(_ context.Context, p *domain.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	stored := cloneProgram(*p)
	stored.Participants = existing.Participants
	s.byID[p.ID] = stored
	return nil
}

func (s *ProgramStore) GetByID(_ context.Context, id string) (*domain.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneProgram(p)
	return &out, nil
}

func (s *ProgramStore) List(_ context.Context, filter repository.ProgramFilter) ([]domain.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Program, 0)
	for _, id := range s.order {
		p := s.byID[id]
		if filter.Matches(&p) {
			out = append(out, cloneProgram(p))
		}
	}
	return out, nil
}

func (s *ProgramStore) AddParticipant(_ context.Context, programID string, pt *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[programID]
	if !ok {
		return repository.ErrNotFound
	}
	if pt.Status == domain.ParticipantActive {
		if _, active := p.ActiveParticipant(pt.PatientID); active {
			return repository.ErrDuplicate
		}
	}
	if pt.ID == "" {
		pt.ID = uuid.NewString()
	}
	p.Participants = append(append([]domain.Participant(nil), p.Participants...), *pt)
	s.byID[programID] = p
	return nil
}

func (s *ProgramStore) UpdateParticipant(_ context.Context, programID string, pt *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[programID]
	if !ok {
		return repository.ErrNotFound
	}
	participants := append([]domain.Participant(nil), p.Participants...)
	for i := range participants {
		if participants[i].ID == pt.ID {
			participants[i].Status = pt.Status
			participants[i].DischargeDate = copyTime(pt.DischargeDate)
			participants[i].Notes = pt.Notes
			p.Participants = participants
			s.byID[programID] = p
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *ProgramStore) RemoveParticipant(_ context.Context, programID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[programID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := make([]domain.Participant, 0, len(p.Participants))
	for _, pt := range p.Participants {
		if pt.ID != participantID {
			kept = append(kept, pt)
		}
	}
	if len(kept) == len(p.Participants) {
		return repository.ErrNotFound
	}
	p.Participants = kept
	s.byID[programID] = p
	return nil
}

// cloneProgram detaches the participant slice and pointer fields from the
// stored copy.
func cloneProgram(p domain.Program) domain.Program {
	if p.Capacity != nil {
		c := *p.Capacity
		p.Capacity = &c
	}
	p.EndDate = copyTime(p.EndDate)
	participants := make([]domain.Participant, len(p.Participants))
	for i, pt := range p.Participants {
		pt.DischargeDate = copyTime(pt.DischargeDate)
		participants[i] = pt
	}
	p.Participants = participants
	return p
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

var _ repository.ProgramRepository = (*ProgramStore)(nil)
