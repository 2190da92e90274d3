package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
)

func TestClinicianStoreEmailIsCaseInsensitive(t *testing.T) {
	store := NewClinicianStore()
	ctx := context.Background()

	c := &domain.Clinician{Identity: domain.Identity{Email: "Doc@X.com", IsActive: true}}
	require.NoError(t, store.Create(ctx, c))
	assert.Equal(t, "doc@x.com", c.Email)

	found, err := store.GetByEmail(ctx, "DOC@x.COM")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	dup := &domain.Clinician{Identity: domain.Identity{Email: "doc@x.com"}}
	assert.ErrorIs(t, store.Create(ctx, dup), repository.ErrDuplicate)
}

func TestClinicianStoreMarkVerified(t *testing.T) {
	store := NewClinicianStore()
	ctx := context.Background()
	c := &domain.Clinician{Identity: domain.Identity{Email: "a@b.c"}}
	require.NoError(t, store.Create(ctx, c))

	require.NoError(t, store.MarkVerified(ctx, c.ID))
	got, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	assert.ErrorIs(t, store.MarkVerified(ctx, "missing"), repository.ErrNotFound)
}

func TestPatientStoreReturnsCopies(t *testing.T) {
	store := NewPatientStore()
	ctx := context.Background()
	p := &domain.Patient{Identity: domain.Identity{Email: "p@x.com", IsActive: true}}
	require.NoError(t, store.Create(ctx, p))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.IsActive = false

	again, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, again.IsActive)
}

func TestLedgerDeleteExpired(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	now := time.Now()

	for value, ttl := range map[string]time.Duration{"old": time.Minute, "fresh": time.Hour} {
		require.NoError(t, ledger.Create(ctx, &domain.TokenRecord{
			SubjectID:   "s",
			SubjectType: domain.SubjectKindClinician,
			Value:       value,
			Purpose:     domain.TokenPurposeVerify,
			IssuedAt:    now,
			ExpiresAt:   now.Add(ttl),
			Valid:       true,
		}))
	}

	removed, err := ledger.DeleteExpired(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.Equal(t, 1, ledger.Len())
}

func TestLedgerRejectsInvalidRecords(t *testing.T) {
	ledger := NewLedger()
	now := time.Now()
	err := ledger.Create(context.Background(), &domain.TokenRecord{
		SubjectID:   "s",
		SubjectType: domain.SubjectKindClinician,
		Value:       "v",
		Purpose:     domain.TokenPurposeVerify,
		IssuedAt:    now,
		ExpiresAt:   now,
	})
	assert.Error(t, err)
}
