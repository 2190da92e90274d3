package domain

import (
	"errors"
	"time"
)

// TokenPurpose distinguishes ledger records.
type TokenPurpose string

const (
	TokenPurposeVerify  TokenPurpose = "verify"
	TokenPurposeReset   TokenPurpose = "reset"
	TokenPurposeRefresh TokenPurpose = "refresh"
)

// DeviceInfo is captured at issuance for audit only.
type DeviceInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// TokenRecord is a server-tracked credential: a refresh session or a one-time
// verification/reset token.
type TokenRecord struct {
	ID          string       `json:"id"`
	SubjectID   string       `json:"subject_id"`
	SubjectType SubjectKind  `json:"subject_type"`
	Value       string       `json:"value"`
	Purpose     TokenPurpose `json:"purpose"`
	IssuedAt    time.Time    `json:"issued_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Valid       bool         `json:"valid"`
	Device      *DeviceInfo  `json:"device,omitempty"`
}

// Validate rejects malformed records before they are stored.
func (t *TokenRecord) Validate() error {
	switch {
	case t.SubjectID == "":
		return errors.New("token record: subject id required")
	case !t.SubjectType.Valid():
		return errors.New("token record: unknown subject type")
	case t.Value == "":
		return errors.New("token record: value required")
	case t.Purpose != TokenPurposeVerify && t.Purpose != TokenPurposeReset && t.Purpose != TokenPurposeRefresh:
		return errors.New("token record: unknown purpose")
	case !t.ExpiresAt.After(t.IssuedAt):
		return errors.New("token record: expiry must be after issuance")
	}
	return nil
}

// ActiveAt reports whether the record is usable at the given instant.
func (t *TokenRecord) ActiveAt(now time.Time) bool {
	return t.Valid && t.ExpiresAt.After(now)
}
