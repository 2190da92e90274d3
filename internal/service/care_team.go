package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

// CareTeamService serves the clinician and patient directories and keeps the
// doctor assignments of each patient.
type CareTeamService struct {
	subjects *repository.SubjectDirectory
	programs repository.ProgramRepository
	logger   *zap.Logger
}

// NewCareTeamService builds the service.
func NewCareTeamService(subjects *repository.SubjectDirectory, programs repository.ProgramRepository, logger *zap.Logger) *CareTeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CareTeamService{subjects: subjects, programs: programs, logger: logger}
}

// ClinicianView is a clinician with the patients assigned to them, when asked for.
type ClinicianView struct {
	Clinician *domain.Clinician
	Patients  []domain.Patient
}

// PatientView is a patient with their doctors and program history, when asked for.
type PatientView struct {
	Patient    *domain.Patient
	Clinicians []domain.Clinician
	History    []Enrollment
}

// Enrollment is one entry of a patient's program history.
type Enrollment struct {
	Program     *domain.Program
	Participant domain.Participant
}

// ClinicianQuery holds the GET /doctors query.
type ClinicianQuery struct {
	IsActive         *bool
	Verified         *bool
	PopulatePatients bool
}

// PatientQuery holds the GET /patients query.
type PatientQuery struct {
	IsActive         *bool
	ClinicianID      string
	ProgramID        string
	PopulateDoctors  bool
	PopulatePrograms bool
}

// ListClinicians returns the clinicians matching q.
func (s *CareTeamService) ListClinicians(ctx context.Context, q ClinicianQuery) ([]ClinicianView, error) {
	clinicians, err := s.subjects.Clinicians().List(ctx, repository.ClinicianFilter{IsActive: q.IsActive, Verified: q.Verified})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	views := make([]ClinicianView, len(clinicians))
	for i := range clinicians {
		views[i].Clinician = &clinicians[i]
		if q.PopulatePatients {
			if views[i].Patients, err = s.patientsOf(ctx, clinicians[i].ID); err != nil {
				return nil, err
			}
		}
	}
	return views, nil
}

// GetClinician returns one clinician.
func (s *CareTeamService) GetClinician(ctx context.Context, id string, populatePatients bool) (*ClinicianView, error) {
	clinician, err := s.subjects.Clinicians().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Doctor", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	view := &ClinicianView{Clinician: clinician}
	if populatePatients {
		if view.Patients, err = s.patientsOf(ctx, id); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// ListPatients returns the patients matching q. A programId filter keeps
// patients ever enrolled in that program.
func (s *CareTeamService) ListPatients(ctx context.Context, q PatientQuery) ([]PatientView, error) {
	filter := repository.PatientFilter{IsActive: q.IsActive, ClinicianID: q.ClinicianID}
	if q.ProgramID != "" {
		ids, err := s.participantIDs(ctx, q.ProgramID)
		if err != nil {
			return nil, err
		}
		filter.IDs = ids
	}
	patients, err := s.subjects.Patients().List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var history map[string][]Enrollment
	if q.PopulatePrograms && len(patients) > 0 {
		programs, err := s.programs.List(ctx, repository.ProgramFilter{})
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		history = historyByPatient(programs)
	}

	views := make([]PatientView, len(patients))
	for i := range patients {
		views[i].Patient = &patients[i]
		if q.PopulateDoctors {
			if views[i].Clinicians, err = s.cliniciansOf(ctx, &patients[i]); err != nil {
				return nil, err
			}
		}
		if q.PopulatePrograms {
			views[i].History = history[patients[i].ID]
		}
	}
	return views, nil
}

// GetPatient returns one patient. Patients may only read their own record.
func (s *CareTeamService) GetPatient(ctx context.Context, principal auth.Principal, id string, populateDoctors, populatePrograms bool) (*PatientView, error) {
	if principal.Role != domain.RoleDoctor && principal.ID != id {
		return nil, apperrors.NewForbidden("Unauthorized to view this profile because you don't own it")
	}
	patient, err := s.subjects.Patients().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Patient", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	view := &PatientView{Patient: patient}
	if populateDoctors {
		if view.Clinicians, err = s.cliniciansOf(ctx, patient); err != nil {
			return nil, err
		}
	}
	if populatePrograms {
		programs, err := s.programs.List(ctx, repository.ProgramFilter{PatientID: id})
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		view.History = historyByPatient(programs)[id]
	}
	return view, nil
}

// AssignClinician adds a doctor to the patient's care team.
func (s *CareTeamService) AssignClinician(ctx context.Context, principal auth.Principal, patientID, clinicianID string) (*domain.Patient, error) {
	clinicianID = strings.TrimSpace(clinicianID)
	if clinicianID == "" {
		return nil, apperrors.NewValidationError("Doctor ID is required", nil)
	}
	if _, err := s.subjects.Patients().GetByID(ctx, patientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Patient", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := s.subjects.Clinicians().GetByID(ctx, clinicianID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Doctor", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.subjects.Patients().AssignClinician(ctx, patientID, clinicianID); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.NewConflict("Doctor is already assigned to this patient", nil)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewNotFound("Patient", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("doctor assigned",
		zap.String("patient_id", patientID),
		zap.String("doctor_id", clinicianID),
		zap.String("by", principal.ID))
	return s.reloadPatient(ctx, patientID)
}

// UnassignClinician removes a doctor from the patient's care team.
func (s *CareTeamService) UnassignClinician(ctx context.Context, principal auth.Principal, patientID, clinicianID string) (*domain.Patient, error) {
	if _, err := s.subjects.Patients().GetByID(ctx, patientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Patient", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.subjects.Patients().UnassignClinician(ctx, patientID, clinicianID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundMessage("Doctor is not assigned to this patient")
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("doctor unassigned",
		zap.String("patient_id", patientID),
		zap.String("doctor_id", clinicianID),
		zap.String("by", principal.ID))
	return s.reloadPatient(ctx, patientID)
}

func (s *CareTeamService) reloadPatient(ctx context.Context, id string) (*domain.Patient, error) {
	patient, err := s.subjects.Patients().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return patient, nil
}

func (s *CareTeamService) patientsOf(ctx context.Context, clinicianID string) ([]domain.Patient, error) {
	patients, err := s.subjects.Patients().List(ctx, repository.PatientFilter{ClinicianID: clinicianID})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return patients, nil
}

func (s *CareTeamService) cliniciansOf(ctx context.Context, patient *domain.Patient) ([]domain.Clinician, error) {
	ids := append(make([]string, 0, len(patient.AssignedClinicianIDs)), patient.AssignedClinicianIDs...)
	clinicians, err := s.subjects.Clinicians().List(ctx, repository.ClinicianFilter{IDs: ids})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return clinicians, nil
}

// participantIDs lists every patient ever enrolled in programID. An unknown
// program yields an empty, non-nil slice so the patient filter matches nothing.
func (s *CareTeamService) participantIDs(ctx context.Context, programID string) ([]string, error) {
	ids := make([]string, 0)
	program, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ids, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	seen := make(map[string]struct{}, len(program.Participants))
	for _, pt := range program.Participants {
		if _, ok := seen[pt.PatientID]; ok {
			continue
		}
		seen[pt.PatientID] = struct{}{}
		ids = append(ids, pt.PatientID)
	}
	return ids, nil
}

// historyByPatient indexes the enrollments of programs by patient.
func historyByPatient(programs []domain.Program) map[string][]Enrollment {
	out := make(map[string][]Enrollment)
	for i := range programs {
		program := &programs[i]
		for _, pt := range program.Participants {
			out[pt.PatientID] = append(out[pt.PatientID], Enrollment{Program: program, Participant: pt})
		}
	}
	return out
}
