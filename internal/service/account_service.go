package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/config"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

// AccountService handles profile reads and self-service account changes.
type AccountService struct {
	subjects   *repository.SubjectDirectory
	logger     *zap.Logger
	bcryptCost int
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, subjects *repository.SubjectDirectory, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{subjects: subjects, logger: logger, bcryptCost: cfg.Auth.BcryptCost}
}

// ChangePasswordInput is the payload of POST /patients/:id/password.
type ChangePasswordInput struct {
	PatientID       string
	CurrentPassword string
	NewPassword     string
}

// Profile returns the subject behind the principal.
func (s *AccountService) Profile(ctx context.Context, principal auth.Principal) (domain.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, principal.Kind, principal.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return subject, nil
}

// ChangePatientPassword lets a patient replace their password, typically the
// temporary one issued at registration.
func (s *AccountService) ChangePatientPassword(ctx context.Context, principal auth.Principal, in ChangePasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return apperrors.NewValidationError("Current password and new password are required", nil)
	}
	if principal.Kind != domain.SubjectKindPatient || principal.ID != in.PatientID {
		return apperrors.NewForbidden("Only the account owner can update their password")
	}
	patient, err := s.subjects.Patients().GetByID(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Patient", nil)
		}
		return apperrors.NewInternalError(err)
	}
	if !auth.PasswordMatches(patient.PasswordHash, in.CurrentPassword) {
		return apperrors.NewUnauthenticated("INVALID_CREDENTIALS", "Current password is incorrect")
	}

	hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	patient.PasswordHash = hash
	patient.UpdatedPassword = true
	if err := s.subjects.Patients().Update(ctx, patient); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("patient password changed", zap.String("subject_id", patient.ID))
	return nil
}

// DeactivatePatient soft-deletes a patient. Any clinician, or the patient
// themselves, may do it.
func (s *AccountService) DeactivatePatient(ctx context.Context, principal auth.Principal, patientID string) error {
	patient, err := s.subjects.Patients().GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Patient", nil)
		}
		return apperrors.NewInternalError(err)
	}
	if principal.Role != domain.RoleDoctor && principal.ID != patientID {
		return apperrors.NewForbidden("Unauthorized to delete this profile because you don't own it")
	}
	patient.IsActive = false
	if err := s.subjects.Patients().Update(ctx, patient); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("patient deactivated", zap.String("subject_id", patientID), zap.String("by", principal.ID))
	return nil
}

// DeactivateClinician soft-deletes the calling clinician's own account.
func (s *AccountService) DeactivateClinician(ctx context.Context, principal auth.Principal, clinicianID string) error {
	clinician, err := s.subjects.Clinicians().GetByID(ctx, clinicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Doctor", nil)
		}
		return apperrors.NewInternalError(err)
	}
	if principal.ID != clinicianID {
		return apperrors.NewForbidden("Not allowed to delete this doctor")
	}
	clinician.IsActive = false
	if err := s.subjects.Clinicians().Update(ctx, clinician); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("clinician deactivated", zap.String("subject_id", clinicianID))
	return nil
}

// UpdateClinicianInput carries the editable clinician fields. Blank strings
// leave a field unchanged.
type UpdateClinicianInput struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	IsActive    *bool
}

// UpdateClinician edits the calling clinician's own profile.
func (s *AccountService) UpdateClinician(ctx context.Context, principal auth.Principal, clinicianID string, in UpdateClinicianInput) (*domain.Clinician, error) {
	clinician, err := s.subjects.Clinicians().GetByID(ctx, clinicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Doctor", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if principal.ID != clinicianID {
		return nil, apperrors.NewForbidden("Not allowed to update this profile")
	}

	setIfGiven(&clinician.FirstName, in.FirstName)
	setIfGiven(&clinician.LastName, in.LastName)
	setIfGiven(&clinician.PhoneNumber, in.PhoneNumber)
	if in.IsActive != nil {
		clinician.IsActive = *in.IsActive
	}
	if err := s.subjects.Clinicians().Update(ctx, clinician); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("clinician updated", zap.String("subject_id", clinicianID))
	return clinician, nil
}

// UpdatePatientInput carries the editable patient fields. Blank strings and a
// nil contact leave a field unchanged.
type UpdatePatientInput struct {
	FirstName        string
	LastName         string
	PhoneNumber      string
	Address          string
	EmergencyContact *domain.EmergencyContact
}

// UpdatePatient edits a patient profile. Any clinician, or the patient
// themselves, may do it.
func (s *AccountService) UpdatePatient(ctx context.Context, principal auth.Principal, patientID string, in UpdatePatientInput) (*domain.Patient, error) {
	patient, err := s.subjects.Patients().GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Patient", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if principal.Role != domain.RoleDoctor && principal.ID != patientID {
		return nil, apperrors.NewForbidden("Unauthorized to update this profile because you don't own it")
	}

	setIfGiven(&patient.FirstName, in.FirstName)
	setIfGiven(&patient.LastName, in.LastName)
	setIfGiven(&patient.PhoneNumber, in.PhoneNumber)
	setIfGiven(&patient.Address, in.Address)
	if in.EmergencyContact != nil && !in.EmergencyContact.IsZero() {
		patient.EmergencyContact = *in.EmergencyContact
	}
	if err := s.subjects.Patients().Update(ctx, patient); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("patient updated", zap.String("subject_id", patientID), zap.String("by", principal.ID))
	return patient, nil
}

func setIfGiven(field *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*field = v
	}
}
