package dto

import "time"

// RegisterClinicianRequest payload.
type RegisterClinicianRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

// RegisterPatientRequest payload. DateOfBirth is YYYY-MM-DD or RFC 3339.
type RegisterPatientRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`

	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

// EmergencyContact is the patient's contact person.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	PhoneNumber  string `json:"phoneNumber"`
}

// UpdateClinicianRequest payload. Omitted or empty fields are left unchanged.
type UpdateClinicianRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	IsActive    *bool  `json:"isActive"`
}

// UpdatePatientRequest payload. Omitted or empty fields are left unchanged.
type UpdatePatientRequest struct {
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	PhoneNumber      string            `json:"phoneNumber"`
	Address          string            `json:"address"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

// AssignDoctorRequest payload.
type AssignDoctorRequest struct {
	DoctorID string `json:"doctorId"`
}

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ClinicianResponse is the public view of a clinician. Hashes never leave the service.
type ClinicianResponse struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Verified    bool      `json:"verified"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`

	AssignedPatients []SubjectSummary `json:"assignedPatients,omitempty"`
}

// SubjectSummary is the short form of a related account.
type SubjectSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

// PatientResponse is the public view of a patient. AssignedDoctors holds ids,
// or summaries when populateDoctors=true.
type PatientResponse struct {
	ID              string    `json:"id"`
	Role            string    `json:"role"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phoneNumber"`
	DateOfBirth     string    `json:"dateOfBirth"`
	Gender          string    `json:"gender"`
	Address         string    `json:"address,omitempty"`
	UpdatedPassword bool      `json:"updatedPassword"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`

	EmergencyContact *EmergencyContact     `json:"emergencyContact,omitempty"`
	AssignedDoctors  any                   `json:"assignedDoctors"`
	ProgramHistory   []ProgramHistoryEntry `json:"programHistory,omitempty"`
}

// ProgramHistoryEntry is one enrollment in a patient's history.
type ProgramHistoryEntry struct {
	Program       ProgramSummary `json:"program"`
	AdmissionDate time.Time      `json:"admissionDate"`
	DischargeDate *time.Time     `json:"dischargeDate,omitempty"`
	Status        string         `json:"status"`
}
