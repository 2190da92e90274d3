package domain

import (
	"strings"
	"time"
)

// SubjectKind names the collection a subject lives in. It is the value stored
// as subject_type on ledger records.
type SubjectKind string

const (
	SubjectKindClinician SubjectKind = "Doctor"
	SubjectKindPatient   SubjectKind = "Patient"
)

// Role is the authorization discriminant carried by access tokens.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Kind maps a role to its subject collection.
func (r Role) Kind() (SubjectKind, bool) {
	switch r {
	case RoleDoctor:
		return SubjectKindClinician, true
	case RolePatient:
		return SubjectKindPatient, true
	default:
		return "", false
	}
}

// ParseRole accepts the loginAs / accountType values sent by clients. The
// match is exact: "Doctor" or " patient" are rejected.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	if _, ok := role.Kind(); !ok {
		return "", false
	}
	return role, true
}

// Role maps a subject kind back to its role.
func (k SubjectKind) Role() Role {
	if k == SubjectKindClinician {
		return RoleDoctor
	}
	return RolePatient
}

// Valid reports whether k is one of the known kinds.
func (k SubjectKind) Valid() bool {
	return k == SubjectKindClinician || k == SubjectKindPatient
}

// Identity holds the fields every authenticating subject shares.
type Identity struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Base exposes the shared identity of a subject.
func (i *Identity) Base() *Identity { return i }

// Subject is either a *Clinician or a *Patient.
type Subject interface {
	Base() *Identity
	Kind() SubjectKind
	sealed()
}

// Clinician is a doctor account.
type Clinician struct {
	Identity
	PhoneNumber string
	Verified    bool
}

// Kind implements Subject.
func (*Clinician) Kind() SubjectKind { return SubjectKindClinician }
func (*Clinician) sealed()           {}

// Patient is a patient account, usually created by a clinician.
type Patient struct {
	Identity
	DateOfBirth      time.Time
	Gender           string
	PhoneNumber      string
	Address          string
	EmergencyContact EmergencyContact
	UpdatedPassword  bool
	// AssignedClinicianIDs is maintained by the repository's assign and
	// unassign calls; Update ignores it.
	AssignedClinicianIDs []string
}

// EmergencyContact is the person to call on the patient's behalf.
type EmergencyContact struct {
	Name         string
	Relationship string
	PhoneNumber  string
}

// IsZero reports whether no contact was given.
func (e EmergencyContact) IsZero() bool {
	return e == EmergencyContact{}
}

// HasClinician reports whether clinicianID is on the patient's care team.
func (p *Patient) HasClinician(clinicianID string) bool {
	for _, id := range p.AssignedClinicianIDs {
		if id == clinicianID {
			return true
		}
	}
	return false
}

// Kind implements Subject.
func (*Patient) Kind() SubjectKind { return SubjectKindPatient }
func (*Patient) sealed()           {}

// RoleOf returns the role of a subject.
func RoleOf(s Subject) Role {
	return s.Kind().Role()
}

// NormalizeEmail lower-cases and trims an address; emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
