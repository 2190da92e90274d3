package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/healthhub/healthhub-service/internal/domain"
)

var (
	// ErrTokenExpired means the access token was genuine but is past its exp claim.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenInvalid covers bad signatures, wrong algorithms and malformed tokens.
	ErrTokenInvalid = errors.New("access token invalid")
)

// TokenManager handles issuing and validating JWT access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims describes the access token payload. IsActive reflects the subject at
// mint time and is informational; liveness is re-checked on every request.
type Claims struct {
	SubjectID string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	jwt.RegisteredClaims
}

// Kind resolves the subject collection named by the role claim.
func (c *Claims) Kind() (domain.SubjectKind, bool) {
	return c.Role.Kind()
}

// Mint builds and signs an access token for the subject.
func (tm *TokenManager) Mint(subject domain.Subject) (string, time.Time, error) {
	base := subject.Base()
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		SubjectID: base.ID,
		Email:     base.Email,
		Role:      domain.RoleOf(subject),
		IsActive:  base.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   base.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate verifies signature and expiry and returns the claims.
func (tm *TokenManager) Validate(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SubjectID == "" {
		return nil, ErrTokenInvalid
	}
	if _, ok := claims.Kind(); !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// TTL returns the access token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
