package domain

import (
	"math"
	"time"
)

// ProgramType classifies a care program.
type ProgramType string

const (
	ProgramTypeInpatient   ProgramType = "inpatient"
	ProgramTypeOutpatient  ProgramType = "outpatient"
	ProgramTypeSpecialized ProgramType = "specialized"
	ProgramTypeOther       ProgramType = "other"
)

// Valid reports whether t is a known program type.
func (t ProgramType) Valid() bool {
	switch t {
	case ProgramTypeInpatient, ProgramTypeOutpatient, ProgramTypeSpecialized, ProgramTypeOther:
		return true
	default:
		return false
	}
}

// ParticipantStatus tracks a patient's progress through a program.
type ParticipantStatus string

const (
	ParticipantActive    ParticipantStatus = "active"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantWithdrawn ParticipantStatus = "withdrawn"
	ParticipantOnHold    ParticipantStatus = "on-hold"
)

// Valid reports whether s is a known participant status.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantActive, ParticipantCompleted, ParticipantWithdrawn, ParticipantOnHold:
		return true
	default:
		return false
	}
}

// Ends reports whether moving to s discharges the participant.
func (s ParticipantStatus) Ends() bool {
	return s == ParticipantCompleted || s == ParticipantWithdrawn
}

// HistoryStatus is the status shown in a patient's program history, where a
// participant on hold reads as pending.
func (s ParticipantStatus) HistoryStatus() string {
	if s == ParticipantOnHold {
		return "pending"
	}
	return string(s)
}

// Program is a care program coordinated by one clinician.
type Program struct {
	ID            string
	Name          string
	Description   string
	Type          ProgramType
	Capacity      *int
	StartDate     time.Time
	EndDate       *time.Time
	IsActive      bool
	CoordinatorID string
	Participants  []Participant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Participant is one enrollment of a patient in a program. A patient may be
// enrolled again after withdrawing, so several entries can share a patient.
type Participant struct {
	ID            string
	PatientID     string
	AdmissionDate time.Time
	DischargeDate *time.Time
	Status        ParticipantStatus
	Notes         string
}

// ActiveParticipant returns the patient's active enrollment, if any.
func (p *Program) ActiveParticipant(patientID string) (*Participant, bool) {
	return p.findParticipant(patientID, func(pt *Participant) bool { return pt.Status == ParticipantActive })
}

// OpenParticipant returns the patient's latest enrollment that has not completed.
func (p *Program) OpenParticipant(patientID string) (*Participant, bool) {
	return p.findParticipant(patientID, func(pt *Participant) bool { return pt.Status != ParticipantCompleted })
}

// LatestParticipant returns the patient's most recent enrollment.
func (p *Program) LatestParticipant(patientID string) (*Participant, bool) {
	return p.findParticipant(patientID, func(*Participant) bool { return true })
}

func (p *Program) findParticipant(patientID string, match func(*Participant) bool) (*Participant, bool) {
	for i := len(p.Participants) - 1; i >= 0; i-- {
		pt := &p.Participants[i]
		if pt.PatientID == patientID && match(pt) {
			return pt, true
		}
	}
	return nil, false
}

// ParticipantsOf returns every enrollment of patientID, oldest first.
func (p *Program) ParticipantsOf(patientID string) []Participant {
	var out []Participant
	for _, pt := range p.Participants {
		if pt.PatientID == patientID {
			out = append(out, pt)
		}
	}
	return out
}

// ProgramStats summarizes enrollment of a program.
type ProgramStats struct {
	TotalParticipants     int
	ActiveParticipants    int
	CompletedParticipants int
	WithdrawnParticipants int
	OnHoldParticipants    int
	// CapacityPercentage and SpotsAvailable are nil for uncapped programs.
	CapacityPercentage  *int
	SpotsAvailable      *int
	AverageDurationDays int
	IsActive            bool
	HasEnded            bool
}

// Stats computes enrollment figures as of now. Average duration counts whole
// days of completed enrollments only.
func (p *Program) Stats(now time.Time) ProgramStats {
	stats := ProgramStats{
		TotalParticipants: len(p.Participants),
		IsActive:          p.IsActive,
		HasEnded:          p.EndDate != nil && p.EndDate.Before(now),
	}

	var completedDays, completedCount int
	for _, pt := range p.Participants {
		switch pt.Status {
		case ParticipantActive:
			stats.ActiveParticipants++
		case ParticipantCompleted:
			stats.CompletedParticipants++
			if pt.DischargeDate != nil && !pt.AdmissionDate.IsZero() {
				completedDays += int(pt.DischargeDate.Sub(pt.AdmissionDate) / (24 * time.Hour))
				completedCount++
			}
		case ParticipantWithdrawn:
			stats.WithdrawnParticipants++
		case ParticipantOnHold:
			stats.OnHoldParticipants++
		}
	}
	if completedCount > 0 {
		stats.AverageDurationDays = int(math.Round(float64(completedDays) / float64(completedCount)))
	}

	if p.Capacity != nil && *p.Capacity > 0 {
		capacity := *p.Capacity
		pct := int(math.Round(float64(stats.ActiveParticipants) / float64(capacity) * 100))
		spots := capacity - stats.ActiveParticipants
		stats.CapacityPercentage = &pct
		stats.SpotsAvailable = &spots
	}
	return stats
}
