package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

// RegisterClinicianInput is the payload of POST /doctors.
type RegisterClinicianInput struct {
	Email       string
	FirstName   string
	LastName    string
	Password    string
	PhoneNumber string
	Device      domain.DeviceInfo
}

// RegisterPatientInput is the payload of POST /patients.
type RegisterPatientInput struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	DateOfBirth time.Time
	Gender      string
	Address     string

	// EmergencyContact is optional.
	EmergencyContact domain.EmergencyContact
}

// RegisterClinician creates an unverified clinician, signs them in and sends
// the verification link.
func (s *AuthService) RegisterClinician(ctx context.Context, in RegisterClinicianInput) (*LoginResult, error) {
	if blank(in.Email, in.FirstName, in.LastName, in.Password, in.PhoneNumber) {
		return nil, apperrors.NewValidationError("All fields are required", nil)
	}
	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	clinician := &domain.Clinician{
		Identity: domain.Identity{
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Email:        domain.NormalizeEmail(in.Email),
			PasswordHash: hash,
			IsActive:     true,
		},
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
	}
	if err := s.subjects.Clinicians().Create(ctx, clinician); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("A doctor with that email already exists", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	verify, err := s.verification.Issue(ctx, clinician, in.Device)
	if err != nil {
		s.rollbackClinician(ctx, clinician, nil)
		return nil, apperrors.NewInternalError(err)
	}
	result, err := s.openSession(ctx, clinician, in.Device)
	if err != nil {
		s.rollbackClinician(ctx, clinician, verify)
		return nil, err
	}

	link := fmt.Sprintf("%s/auth/verify/%s?token=%s", s.clientURL, clinician.ID, verify.Value)
	s.publish(ctx, events.New(events.EventClinicianRegistered, clinician, events.ClinicianRegisteredPayload{
		VerificationLink: link,
	}))
	s.logger.Info("clinician registered", zap.String("subject_id", clinician.ID))
	return result, nil
}

// RegisterPatient creates a patient with a generated temporary password and
// mails it to them. Only clinicians may call it.
func (s *AuthService) RegisterPatient(ctx context.Context, registeredBy auth.Principal, in RegisterPatientInput) (*domain.Patient, error) {
	if blank(in.Email, in.FirstName, in.LastName, in.PhoneNumber, in.Gender) || in.DateOfBirth.IsZero() {
		return nil, apperrors.NewValidationError("Required fields missing", nil)
	}
	tempPassword, err := auth.NewTemporaryPassword()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(tempPassword, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	patient := &domain.Patient{
		Identity: domain.Identity{
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Email:        domain.NormalizeEmail(in.Email),
			PasswordHash: hash,
			IsActive:     true,
		},
		DateOfBirth: in.DateOfBirth,
		Gender:      strings.TrimSpace(in.Gender),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Address:     strings.TrimSpace(in.Address),
		EmergencyContact: domain.EmergencyContact{
			Name:         strings.TrimSpace(in.EmergencyContact.Name),
			Relationship: strings.TrimSpace(in.EmergencyContact.Relationship),
			PhoneNumber:  strings.TrimSpace(in.EmergencyContact.PhoneNumber),
		},
	}
	if err := s.subjects.Patients().Create(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("A patient with that email already exists", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.New(events.EventPatientRegistered, patient, events.PatientRegisteredPayload{
		RegisteredBy: registeredBy.FirstName,
		TempPassword: tempPassword,
	}))
	s.logger.Info("patient registered",
		zap.String("subject_id", patient.ID),
		zap.String("registered_by", registeredBy.ID))
	return patient, nil
}

// rollbackClinician removes a clinician whose registration could not finish,
// so the email can be used again.
func (s *AuthService) rollbackClinician(ctx context.Context, clinician *domain.Clinician, verify *domain.TokenRecord) {
	if verify != nil {
		if err := s.verification.Discard(ctx, verify); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("discard verification token failed", zap.String("subject_id", clinician.ID), zap.Error(err))
		}
	}
	if err := s.subjects.Clinicians().Delete(ctx, clinician.ID); err != nil {
		s.logger.Error("rollback clinician registration failed", zap.String("subject_id", clinician.ID), zap.Error(err))
	}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
