package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventClinicianRegistered    EventType = "clinician_registered"
	EventPatientRegistered      EventType = "patient_registered"
	EventAccountVerified        EventType = "account_verified"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
	EventPatientEnrolled        EventType = "patient_enrolled"
)

// SubjectRef identifies the account an event is about.
type SubjectRef struct {
	ID        string             `json:"id"`
	Kind      domain.SubjectKind `json:"kind"`
	Email     string             `json:"email"`
	FirstName string             `json:"first_name"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   SubjectRef  `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New builds an event about subject.
func New(eventType EventType, subject domain.Subject, payload interface{}) Event {
	base := subject.Base()
	return Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Subject: SubjectRef{
			ID:        base.ID,
			Kind:      subject.Kind(),
			Email:     base.Email,
			FirstName: base.FirstName,
		},
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// ClinicianRegisteredPayload payload.
type ClinicianRegisteredPayload struct {
	VerificationLink string `json:"verification_link"`
}

// PatientRegisteredPayload payload.
type PatientRegisteredPayload struct {
	RegisteredBy string `json:"registered_by"`
	TempPassword string `json:"-"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	ResetLink string    `json:"reset_link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetCompletedPayload payload.
type PasswordResetCompletedPayload struct {
	IPAddress string `json:"ip_address"`
	Device    string `json:"device"`
}

// PatientEnrolledPayload payload.
type PatientEnrolledPayload struct {
	ProgramID          string    `json:"program_id"`
	ProgramName        string    `json:"program_name"`
	ProgramDescription string    `json:"program_description"`
	StartDate          time.Time `json:"start_date"`
	CoordinatorName    string    `json:"coordinator_name"`
}
