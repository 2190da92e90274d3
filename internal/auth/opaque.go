package auth

import (
	"crypto/rand"
	"encoding/hex"
)

const opaqueTokenBytes = 32

// NewOpaqueToken returns a hex encoded random value for ledger records.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewTemporaryPassword returns a short random secret for accounts created on a
// subject's behalf.
func NewTemporaryPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
