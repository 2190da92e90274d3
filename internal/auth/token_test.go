package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthhub/healthhub-service/internal/domain"
)

func testClinician() *domain.Clinician {
	return &domain.Clinician{Identity: domain.Identity{
		ID:        "doc-1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "doc@x.com",
		IsActive:  true,
	}}
}

func TestMintAndValidate(t *testing.T) {
	tm := NewTokenManager("secret", 30*time.Minute)

	token, exp, err := tm.Mint(testClinician())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", claims.SubjectID)
	assert.Equal(t, domain.RoleDoctor, claims.Role)
	assert.Equal(t, "doc@x.com", claims.Email)
	assert.True(t, claims.IsActive)

	kind, ok := claims.Kind()
	require.True(t, ok)
	assert.Equal(t, domain.SubjectKindClinician, kind)
}

func TestValidateExpired(t *testing.T) {
	tm := NewTokenManager("secret", 30*time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := tm.Mint(testClinician())
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", time.Minute).Mint(testClinician())
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Minute).Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTampered(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, _, err := tm.Mint(testClinician())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged, _, err := NewTokenManager("secret", time.Minute).Mint(&domain.Patient{Identity: domain.Identity{ID: "p-9"}})
	require.NoError(t, err)
	parts[1] = strings.Split(forged, ".")[1]

	_, err = tm.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = tm.Validate("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		SubjectID: "doc-1",
		Role:      domain.RoleDoctor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	claims := &Claims{
		SubjectID: "x",
		Role:      domain.Role("admin"),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestOpaqueTokensAreUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		v, err := NewOpaqueToken()
		require.NoError(t, err)
		assert.Len(t, v, 64)
		_, dup := seen[v]
		assert.False(t, dup)
		seen[v] = struct{}{}
	}
}

func TestDescribeDevice(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	assert.True(t, strings.HasPrefix(DescribeDevice(ua), "Chrome on Linux"), DescribeDevice(ua))
	assert.Equal(t, "unknown device", DescribeDevice(""))
}
