package dto

import "time"

// CreateProgramRequest payload. Dates are YYYY-MM-DD or RFC 3339.
type CreateProgramRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Capacity    *int   `json:"capacity"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// UpdateProgramRequest payload. An explicit empty endDate clears it; a
// capacity of zero or less makes the program uncapped.
type UpdateProgramRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Capacity    *int    `json:"capacity"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
	IsActive    *bool   `json:"isActive"`
}

// EnrollPatientRequest payload.
type EnrollPatientRequest struct {
	PatientID string `json:"patientId"`
}

// UpdateParticipantRequest payload.
type UpdateParticipantRequest struct {
	Status        string  `json:"status"`
	Notes         *string `json:"notes"`
	DischargeDate string  `json:"dischargeDate"`
}

// ProgramSummary is the short form of a program used in patient histories.
type ProgramSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	IsActive    bool       `json:"isActive"`
}

// ProgramResponse is the public view of a program.
type ProgramResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Type         string                `json:"type"`
	Capacity     *int                  `json:"capacity"`
	StartDate    time.Time             `json:"startDate"`
	EndDate      *time.Time            `json:"endDate"`
	IsActive     bool                  `json:"isActive"`
	Coordinator  any                   `json:"coordinator"`
	Participants []ParticipantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// ParticipantResponse is one enrollment. Patient is the id, or a summary when
// participants=true.
type ParticipantResponse struct {
	ID            string     `json:"id"`
	Patient       any        `json:"patient"`
	AdmissionDate time.Time  `json:"admissionDate"`
	DischargeDate *time.Time `json:"dischargeDate"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
}

// ProgramStatsResponse reports enrollment figures of a program.
type ProgramStatsResponse struct {
	TotalParticipants     int  `json:"totalParticipants"`
	ActiveParticipants    int  `json:"activeParticipants"`
	CompletedParticipants int  `json:"completedParticipants"`
	WithdrawnParticipants int  `json:"withdrawnParticipants"`
	OnHoldParticipants    int  `json:"onHoldParticipants"`
	CapacityPercentage    *int `json:"capacityPercentage"`
	SpotsAvailable        *int `json:"spotsAvailable"`
	AverageDurationDays   int  `json:"averageDurationDays"`
	IsActive              bool `json:"isActive"`
	HasEnded              bool `json:"hasEnded"`
}
