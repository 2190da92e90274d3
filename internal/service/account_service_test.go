package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
)

func TestProfile(t *testing.T) {
	f := newAuthFixture(t)
	pat := f.seedPatient(t, "pat@example.com", "secret", true)

	subject, err := f.accounts.Profile(context.Background(), *auth.PrincipalOf(pat))
	require.NoError(t, err)
	assert.Equal(t, pat.ID, subject.Base().ID)
	assert.Equal(t, domain.SubjectKindPatient, subject.Kind())
}

func TestChangePatientPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	pat := f.seedPatient(t, "pat@example.com", "temp-pass", true)
	other := f.seedPatient(t, "other@example.com", "temp-pass", true)
	owner := *auth.PrincipalOf(pat)

	err := f.accounts.ChangePatientPassword(ctx, owner, ChangePasswordInput{PatientID: pat.ID, CurrentPassword: "temp-pass"})
	requireDomainError(t, err, http.StatusBadRequest, "")

	err = f.accounts.ChangePatientPassword(ctx, *auth.PrincipalOf(other), ChangePasswordInput{PatientID: pat.ID, CurrentPassword: "temp-pass", NewPassword: "x"})
	requireDomainError(t, err, http.StatusForbidden, "")

	err = f.accounts.ChangePatientPassword(ctx, owner, ChangePasswordInput{PatientID: pat.ID, CurrentPassword: "wrong", NewPassword: "x"})
	requireDomainError(t, err, http.StatusUnauthorized, "Current password is incorrect")

	require.NoError(t, f.accounts.ChangePatientPassword(ctx, owner, ChangePasswordInput{PatientID: pat.ID, CurrentPassword: "temp-pass", NewPassword: "chosen"}))
	stored, err := f.patients.GetByID(ctx, pat.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedPassword)
	_, err = f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "chosen", LoginAs: "patient"})
	require.NoError(t, err)
}

func TestDeactivatePatient(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "secret", true)
	pat := f.seedPatient(t, "pat@example.com", "secret", true)
	other := f.seedPatient(t, "other@example.com", "secret", true)

	err := f.accounts.DeactivatePatient(ctx, *auth.PrincipalOf(other), pat.ID)
	requireDomainError(t, err, http.StatusForbidden, "")

	err = f.accounts.DeactivatePatient(ctx, *auth.PrincipalOf(doc), "missing")
	requireDomainError(t, err, http.StatusNotFound, "")

	require.NoError(t, f.accounts.DeactivatePatient(ctx, *auth.PrincipalOf(doc), pat.ID))
	_, err = f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "secret", LoginAs: "patient"})
	requireDomainError(t, err, http.StatusForbidden, "")

	require.NoError(t, f.accounts.DeactivatePatient(ctx, *auth.PrincipalOf(other), other.ID))
}

func TestDeactivateClinicianOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "secret", true)
	other := f.seedClinician(t, "other@example.com", "secret", true)

	err := f.accounts.DeactivateClinician(ctx, *auth.PrincipalOf(other), doc.ID)
	requireDomainError(t, err, http.StatusForbidden, "Not allowed to delete this doctor")

	require.NoError(t, f.accounts.DeactivateClinician(ctx, *auth.PrincipalOf(doc), doc.ID))
	stored, err := f.clinicians.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestUpdateClinician(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "secret", true)
	other := f.seedClinician(t, "other@example.com", "secret", true)

	_, err := f.accounts.UpdateClinician(ctx, *auth.PrincipalOf(other), doc.ID, UpdateClinicianInput{FirstName: "X"})
	requireDomainError(t, err, http.StatusForbidden, "Not allowed to update this profile")

	_, err = f.accounts.UpdateClinician(ctx, *auth.PrincipalOf(doc), "missing", UpdateClinicianInput{})
	requireDomainError(t, err, http.StatusNotFound, "Doctor not found")

	inactive := false
	updated, err := f.accounts.UpdateClinician(ctx, *auth.PrincipalOf(doc), doc.ID, UpdateClinicianInput{
		LastName: "  Shepherd ",
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Shepherd", updated.LastName)
	assert.Equal(t, "Meredith", updated.FirstName)
	assert.False(t, updated.IsActive)

	stored, err := f.clinicians.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shepherd", stored.LastName)
}

func TestUpdatePatient(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "secret", true)
	pat := f.seedPatient(t, "pat@example.com", "secret", true)
	other := f.seedPatient(t, "other@example.com", "secret", true)
	require.NoError(t, f.patients.AssignClinician(ctx, pat.ID, doc.ID))

	_, err := f.accounts.UpdatePatient(ctx, *auth.PrincipalOf(other), pat.ID, UpdatePatientInput{Address: "x"})
	requireDomainError(t, err, http.StatusForbidden, "Unauthorized to update this profile because you don't own it")

	contact := domain.EmergencyContact{Name: "Mom", Relationship: "mother", PhoneNumber: "555-0000"}
	updated, err := f.accounts.UpdatePatient(ctx, *auth.PrincipalOf(doc), pat.ID, UpdatePatientInput{
		Address:          "1 Main St",
		EmergencyContact: &contact,
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", updated.Address)

	// a blank contact leaves the stored one alone
	_, err = f.accounts.UpdatePatient(ctx, *auth.PrincipalOf(pat), pat.ID, UpdatePatientInput{
		PhoneNumber:      "555-0303",
		EmergencyContact: &domain.EmergencyContact{},
	})
	require.NoError(t, err)

	stored, err := f.patients.GetByID(ctx, pat.ID)
	require.NoError(t, err)
	assert.Equal(t, contact, stored.EmergencyContact)
	assert.Equal(t, "555-0303", stored.PhoneNumber)
	assert.Equal(t, []string{doc.ID}, stored.AssignedClinicianIDs)
}
