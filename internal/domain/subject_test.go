package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoleIsExact(t *testing.T) {
	role, ok := ParseRole("doctor")
	assert.True(t, ok)
	assert.Equal(t, RoleDoctor, role)

	role, ok = ParseRole("patient")
	assert.True(t, ok)
	assert.Equal(t, RolePatient, role)

	for _, raw := range []string{"Doctor", " PATIENT ", "patient ", "", "admin"} {
		_, ok := ParseRole(raw)
		assert.False(t, ok, raw)
	}
}

func TestRoleKindRoundTrip(t *testing.T) {
	kind, ok := RoleDoctor.Kind()
	assert.True(t, ok)
	assert.Equal(t, SubjectKindClinician, kind)
	assert.Equal(t, RoleDoctor, kind.Role())
	assert.Equal(t, RolePatient, SubjectKindPatient.Role())
	assert.False(t, SubjectKind("Nurse").Valid())
}
