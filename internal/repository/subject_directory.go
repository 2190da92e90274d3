package repository

import (
	"context"
	"fmt"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// SubjectDirectory resolves a (kind, id|email) pair to a concrete subject. It is
// the only place that branches on SubjectKind to pick a collection.
type SubjectDirectory struct {
	clinicians ClinicianRepository
	patients   PatientRepository
}

// NewSubjectDirectory wires both subject repositories.
func NewSubjectDirectory(clinicians ClinicianRepository, patients PatientRepository) *SubjectDirectory {
	return &SubjectDirectory{clinicians: clinicians, patients: patients}
}

// FindByID loads a subject of the given kind.
func (d *SubjectDirectory) FindByID(ctx context.Context, kind domain.SubjectKind, id string) (domain.Subject, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	switch kind {
	case domain.SubjectKindClinician:
		c, err := d.clinicians.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return c, nil
	case domain.SubjectKindPatient:
		p, err := d.patients.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, ErrNotFound
	}
}

// FindByEmail loads a subject of the given kind by e-mail, case-insensitively.
func (d *SubjectDirectory) FindByEmail(ctx context.Context, kind domain.SubjectKind, email string) (domain.Subject, error) {
	switch kind {
	case domain.SubjectKindClinician:
		c, err := d.clinicians.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return c, nil
	case domain.SubjectKindPatient:
		p, err := d.patients.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, ErrNotFound
	}
}

// Save persists changes to an existing subject.
func (d *SubjectDirectory) Save(ctx context.Context, subject domain.Subject) error {
	switch s := subject.(type) {
	case *domain.Clinician:
		return d.clinicians.Update(ctx, s)
	case *domain.Patient:
		return d.patients.Update(ctx, s)
	default:
		return fmt.Errorf("unsupported subject %T", subject)
	}
}

// MarkVerified flips the verified flag of a clinician.
func (d *SubjectDirectory) MarkVerified(ctx context.Context, clinicianID string) error {
	return d.clinicians.MarkVerified(ctx, clinicianID)
}

// Clinicians exposes the clinician repository for registration.
func (d *SubjectDirectory) Clinicians() ClinicianRepository { return d.clinicians }

// Patients exposes the patient repository for registration.
func (d *SubjectDirectory) Patients() PatientRepository { return d.patients }
