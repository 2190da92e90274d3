// Package memory provides process-local implementations of the repositories,
// used when no database is configured and by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
)

// ClinicianStore is an in-memory repository.ClinicianRepository.
type ClinicianStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Clinician
	order []string
}

// NewClinicianStore returns an empty store.
func NewClinicianStore() *ClinicianStore {
	return &ClinicianStore{byID: make(map[string]domain.Clinician)}
}

func (s *ClinicianStore) Create(_ context.Context, c *domain.Clinician) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Email = domain.NormalizeEmail(c.Email)
	for _, existing := range s.byID {
		if existing.Email == c.Email {
			return repository.ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.byID[c.ID] = *c
	s.order = append(s.order, c.ID)
	return nil
}

func (s *ClinicianStore) Update(_ context.Context, c *domain.Clinician) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.Email = domain.NormalizeEmail(c.Email)
	c.UpdatedAt = time.Now()
	s.byID[c.ID] = *c
	return nil
}

func (s *ClinicianStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	s.order = removeID(s.order, id)
	return nil
}

func (s *ClinicianStore) GetByID(_ context.Context, id string) (*domain.Clinician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *ClinicianStore) GetByEmail(_ context.Context, email string) (*domain.Clinician, error) {
	email = domain.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID {
		if c.Email == email {
			found := c
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *ClinicianStore) List(_ context.Context, filter repository.ClinicianFilter) ([]domain.Clinician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Clinician, 0)
	for _, id := range s.order {
		c := s.byID[id]
		if filter.Matches(&c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *ClinicianStore) MarkVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Verified = true
	c.UpdatedAt = time.Now()
	s.byID[id] = c
	return nil
}

// PatientStore is an in-memory repository.PatientRepository.
type PatientStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Patient
	order []string
}

// NewPatientStore returns an empty store.
func NewPatientStore() *PatientStore {
	return &PatientStore{byID: make(map[string]domain.Patient)}
}

func (s *PatientStore) Create(_ context.Context, p *domain.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Email = domain.NormalizeEmail(p.Email)
	for _, existing := range s.byID {
		if existing.Email == p.Email {
			return repository.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.AssignedClinicianIDs = nil
	s.byID[p.ID] = *p
	s.order = append(s.order, p.ID)
	return nil
}

func (s *PatientStore) Update(_ context.Context, p *domain.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Email = domain.NormalizeEmail(p.Email)
	p.UpdatedAt = time.Now()
	stored := *p
	stored.AssignedClinicianIDs = existing.AssignedClinicianIDs
	s.byID[p.ID] = stored
	return nil
}

func (s *PatientStore) GetByID(_ context.Context, id string) (*domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePatient(p), nil
}

func (s *PatientStore) GetByEmail(_ context.Context, email string) (*domain.Patient, error) {
	email = domain.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.byID {
		if p.Email == email {
			return clonePatient(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *PatientStore) List(_ context.Context, filter repository.PatientFilter) ([]domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Patient, 0)
	for _, id := range s.order {
		p := s.byID[id]
		if filter.Matches(&p) {
			out = append(out, *clonePatient(p))
		}
	}
	return out, nil
}

func (s *PatientStore) AssignClinician(_ context.Context, patientID, clinicianID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[patientID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.HasClinician(clinicianID) {
		return repository.ErrDuplicate
	}
	p.AssignedClinicianIDs = append(append([]string(nil), p.AssignedClinicianIDs...), clinicianID)
	s.byID[patientID] = p
	return nil
}

func (s *PatientStore) UnassignClinician(_ context.Context, patientID, clinicianID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[patientID]
	if !ok || !p.HasClinician(clinicianID) {
		return repository.ErrNotFound
	}
	p.AssignedClinicianIDs = removeID(append([]string(nil), p.AssignedClinicianIDs...), clinicianID)
	s.byID[patientID] = p
	return nil
}

func clonePatient(p domain.Patient) *domain.Patient {
	p.AssignedClinicianIDs = append([]string(nil), p.AssignedClinicianIDs...)
	return &p
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

var (
	_ repository.ClinicianRepository = (*ClinicianStore)(nil)
	_ repository.PatientRepository   = (*PatientStore)(nil)
)
