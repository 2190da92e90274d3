package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

const programNotFound = "Program not found"

// ProgramService manages care programs and the patients enrolled in them.
// Capacity is recorded and reported but never enforced.
type ProgramService struct {
	programs   repository.ProgramRepository
	subjects   *repository.SubjectDirectory
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ProgramDependencies encapsulates collaborator requirements for the program service.
type ProgramDependencies struct {
	Programs   repository.ProgramRepository
	Subjects   *repository.SubjectDirectory
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewProgramService builds the service.
func NewProgramService(deps ProgramDependencies) *ProgramService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &ProgramService{
		programs:   deps.Programs,
		subjects:   deps.Subjects,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// ProgramView is a program with its coordinator and participant patients
// resolved on request.
type ProgramView struct {
	Program     *domain.Program
	Coordinator *domain.Clinician
	Patients    map[string]*domain.Patient
}

// CreateProgramInput is the payload of POST /programs. A capacity of zero or
// less means uncapped.
type CreateProgramInput struct {
	Name        string
	Description string
	Type        string
	Capacity    *int
	StartDate   time.Time
	EndDate     *time.Time
}

// UpdateProgramInput carries the editable program fields; nil and blank values
// leave a field unchanged. ClearEndDate removes the end date.
type UpdateProgramInput struct {
	Name         string
	Description  string
	Type         string
	Capacity     *int
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
	IsActive     *bool
}

// ProgramQuery holds the GET /programs query.
type ProgramQuery struct {
	IsActive         *bool
	Type             string
	CoordinatorID    string
	WithCoordinator  bool
	WithParticipants bool
}

// UpdateParticipantInput is the payload of PUT /programs/:id/participants/:patientId.
type UpdateParticipantInput struct {
	Status        string
	Notes         *string
	DischargeDate *time.Time
}

// Create opens a program coordinated by the calling clinician.
func (s *ProgramService) Create(ctx context.Context, principal auth.Principal, in CreateProgramInput) (*domain.Program, error) {
	if blank(in.Name, in.Description, in.Type) || in.StartDate.IsZero() {
		return nil, apperrors.NewValidationError("Required fields missing", nil)
	}
	if principal.Role != domain.RoleDoctor {
		return nil, apperrors.NewForbidden("Only doctors can create programs")
	}
	kind := domain.ProgramType(strings.TrimSpace(in.Type))
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("Invalid program type", map[string]any{"type": in.Type})
	}

	program := &domain.Program{
		Name:          strings.TrimSpace(in.Name),
		Description:   strings.TrimSpace(in.Description),
		Type:          kind,
		Capacity:      normalizeCapacity(in.Capacity),
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		IsActive:      true,
		CoordinatorID: principal.ID,
	}
	if err := s.programs.Create(ctx, program); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("program created", zap.String("program_id", program.ID), zap.String("coordinator_id", principal.ID))
	return program, nil
}

// List returns the programs matching q.
func (s *ProgramService) List(ctx context.Context, q ProgramQuery) ([]ProgramView, error) {
	filter := repository.ProgramFilter{
		IsActive:      q.IsActive,
		Type:          domain.ProgramType(q.Type),
		CoordinatorID: q.CoordinatorID,
	}
	programs, err := s.programs.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	views := make([]ProgramView, len(programs))
	for i := range programs {
		views[i].Program = &programs[i]
		if err := s.populate(ctx, &views[i], q.WithCoordinator, q.WithParticipants); err != nil {
			return nil, err
		}
	}
	return views, nil
}

// Get returns one program. A patient only sees their own enrollments.
func (s *ProgramService) Get(ctx context.Context, principal auth.Principal, id string, withCoordinator, withParticipants bool) (*ProgramView, error) {
	program, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.Role == domain.RolePatient {
		program.Participants = program.ParticipantsOf(principal.ID)
	}
	view := &ProgramView{Program: program}
	if err := s.populate(ctx, view, withCoordinator, withParticipants); err != nil {
		return nil, err
	}
	return view, nil
}

// Stats summarizes enrollment of a program.
func (s *ProgramService) Stats(ctx context.Context, id string) (domain.ProgramStats, error) {
	program, err := s.load(ctx, id)
	if err != nil {
		return domain.ProgramStats{}, err
	}
	return program.Stats(s.now()), nil
}

// Update edits a program. Only its coordinator may do it.
func (s *ProgramService) Update(ctx context.Context, principal auth.Principal, id string, in UpdateProgramInput) (*domain.Program, error) {
	program, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if program.CoordinatorID != principal.ID {
		return nil, apperrors.NewForbidden("Cannot update this program because you don't own it")
	}

	setIfGiven(&program.Name, in.Name)
	setIfGiven(&program.Description, in.Description)
	if t := strings.TrimSpace(in.Type); t != "" {
		kind := domain.ProgramType(t)
		if !kind.Valid() {
			return nil, apperrors.NewValidationError("Invalid program type", map[string]any{"type": in.Type})
		}
		program.Type = kind
	}
	if in.Capacity != nil {
		program.Capacity = normalizeCapacity(in.Capacity)
	}
	if in.StartDate != nil && !in.StartDate.IsZero() {
		program.StartDate = *in.StartDate
	}
	switch {
	case in.ClearEndDate:
		program.EndDate = nil
	case in.EndDate != nil:
		program.EndDate = in.EndDate
	}
	if in.IsActive != nil {
		program.IsActive = *in.IsActive
	}

	if err := s.programs.Update(ctx, program); err != nil {
		return nil, s.mapRepoError(err)
	}
	s.logger.Info("program updated", zap.String("program_id", id))
	return program, nil
}

// Deactivate closes a program to new enrollments. Only its coordinator may do it.
func (s *ProgramService) Deactivate(ctx context.Context, principal auth.Principal, id string) error {
	program, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if program.CoordinatorID != principal.ID {
		return apperrors.NewForbidden("Cannot delete this program because you don't own it")
	}
	program.IsActive = false
	if err := s.programs.Update(ctx, program); err != nil {
		return s.mapRepoError(err)
	}
	s.logger.Info("program deactivated", zap.String("program_id", id))
	return nil
}

// Enroll adds an active patient to an active program and mails them about it.
func (s *ProgramService) Enroll(ctx context.Context, principal auth.Principal, programID, patientID string) (*domain.Program, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, apperrors.NewValidationError("Patient ID is required", nil)
	}
	patient, err := s.subjects.Patients().GetByID(ctx, patientID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}
	if err != nil || !patient.IsActive {
		return nil, apperrors.NewNotFoundMessage("Patient not found or inactive")
	}

	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	if !program.IsActive {
		return nil, apperrors.NewValidationError("Cannot add patients to an inactive program", nil)
	}
	if _, active := program.ActiveParticipant(patientID); active {
		return nil, apperrors.NewConflict("Patient is already active in this program", nil)
	}

	participant := &domain.Participant{
		PatientID:     patientID,
		AdmissionDate: s.now(),
		Status:        domain.ParticipantActive,
	}
	if err := s.programs.AddParticipant(ctx, programID, participant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Patient is already active in this program", nil)
		}
		return nil, s.mapRepoError(err)
	}
	program.Participants = append(program.Participants, *participant)

	s.publish(ctx, events.New(events.EventPatientEnrolled, patient, events.PatientEnrolledPayload{
		ProgramID:          program.ID,
		ProgramName:        program.Name,
		ProgramDescription: program.Description,
		StartDate:          program.StartDate,
		CoordinatorName:    s.coordinatorName(ctx, program.CoordinatorID),
	}))
	s.logger.Info("patient enrolled",
		zap.String("program_id", programID),
		zap.String("patient_id", patientID),
		zap.String("by", principal.ID))
	return program, nil
}

// UpdateParticipant changes the status, notes or discharge date of the
// patient's latest enrollment that has not completed. Moving to completed or
// withdrawn without a discharge date discharges the patient now.
func (s *ProgramService) UpdateParticipant(ctx context.Context, principal auth.Principal, programID, patientID string, in UpdateParticipantInput) (*domain.Program, error) {
	status := domain.ParticipantStatus(strings.TrimSpace(in.Status))
	if status != "" && !status.Valid() {
		return nil, apperrors.NewValidationError("Invalid participant status", map[string]any{"status": in.Status})
	}
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	participant, ok := program.OpenParticipant(patientID)
	if !ok {
		return nil, apperrors.NewNotFoundMessage("Active participant not found in program")
	}

	if status != "" {
		participant.Status = status
	}
	if in.Notes != nil {
		participant.Notes = *in.Notes
	}
	switch {
	case in.DischargeDate != nil:
		discharged := *in.DischargeDate
		participant.DischargeDate = &discharged
	case status.Ends():
		discharged := s.now()
		participant.DischargeDate = &discharged
	}

	if err := s.programs.UpdateParticipant(ctx, programID, participant); err != nil {
		return nil, s.mapRepoError(err)
	}
	s.logger.Info("participant updated",
		zap.String("program_id", programID),
		zap.String("patient_id", patientID),
		zap.String("status", string(participant.Status)),
		zap.String("by", principal.ID))
	return program, nil
}

// RemoveParticipant withdraws the patient from the program, or deletes the
// enrollment outright when force is set.
func (s *ProgramService) RemoveParticipant(ctx context.Context, principal auth.Principal, programID, patientID string, force bool) (*domain.Program, error) {
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	participant, ok := program.OpenParticipant(patientID)
	if !ok {
		participant, ok = program.LatestParticipant(patientID)
	}
	if !ok {
		return nil, apperrors.NewNotFoundMessage("Participant not found in program")
	}

	if force {
		if err := s.programs.RemoveParticipant(ctx, programID, participant.ID); err != nil {
			return nil, s.mapRepoError(err)
		}
		removed := participant.ID
		kept := program.Participants[:0]
		for _, pt := range program.Participants {
			if pt.ID != removed {
				kept = append(kept, pt)
			}
		}
		program.Participants = kept
	} else {
		discharged := s.now()
		participant.Status = domain.ParticipantWithdrawn
		participant.DischargeDate = &discharged
		if err := s.programs.UpdateParticipant(ctx, programID, participant); err != nil {
			return nil, s.mapRepoError(err)
		}
	}
	s.logger.Info("participant removed",
		zap.String("program_id", programID),
		zap.String("patient_id", patientID),
		zap.Bool("force", force),
		zap.String("by", principal.ID))
	return program, nil
}

func (s *ProgramService) load(ctx context.Context, id string) (*domain.Program, error) {
	program, err := s.programs.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return program, nil
}

func (s *ProgramService) mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundMessage(programNotFound)
	}
	return apperrors.NewInternalError(err)
}

func (s *ProgramService) populate(ctx context.Context, view *ProgramView, withCoordinator, withParticipants bool) error {
	if withCoordinator {
		coordinator, err := s.subjects.Clinicians().GetByID(ctx, view.Program.CoordinatorID)
		switch {
		case err == nil:
			view.Coordinator = coordinator
		case !errors.Is(err, repository.ErrNotFound):
			return apperrors.NewInternalError(err)
		}
	}
	if withParticipants && len(view.Program.Participants) > 0 {
		ids := make([]string, 0, len(view.Program.Participants))
		for _, pt := range view.Program.Participants {
			ids = append(ids, pt.PatientID)
		}
		patients, err := s.subjects.Patients().List(ctx, repository.PatientFilter{IDs: ids})
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		view.Patients = make(map[string]*domain.Patient, len(patients))
		for i := range patients {
			view.Patients[patients[i].ID] = &patients[i]
		}
	}
	return nil
}

func (s *ProgramService) coordinatorName(ctx context.Context, id string) string {
	coordinator, err := s.subjects.Clinicians().GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("coordinator lookup failed", zap.String("coordinator_id", id), zap.Error(err))
		return ""
	}
	return coordinator.FirstName
}

// publish emits an event; delivery failures are logged, not returned.
func (s *ProgramService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery failed",
			zap.String("event", string(event.Type)),
			zap.String("subject_id", event.Subject.ID),
			zap.Error(err))
	}
}

func normalizeCapacity(capacity *int) *int {
	if capacity == nil || *capacity <= 0 {
		return nil
	}
	c := *capacity
	return &c
}
