package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/config"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

// AuthService coordinates login, session and one-time token flows. Every
// exported method returns *apperrors.DomainError values the HTTP layer renders
// as-is.
type AuthService struct {
	subjects     *repository.SubjectDirectory
	tokenMgr     *auth.TokenManager
	sessions     *SessionService
	verification *OneTimeFlow
	resets       *OneTimeFlow
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	cfg          config.AuthConfig
	clientURL    string
	now          func() time.Time
}

// AuthDependencies encapsulates collaborator requirements for auth service.
type AuthDependencies struct {
	Subjects   *repository.SubjectDirectory
	Ledger     repository.TokenLedger
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	tokenMgr := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	return &AuthService{
		subjects:     deps.Subjects,
		tokenMgr:     tokenMgr,
		sessions:     NewSessionService(deps.Ledger, deps.Subjects, tokenMgr),
		verification: NewOneTimeFlow(domain.TokenPurposeVerify, cfg.Auth.VerifyTokenTTL, deps.Ledger),
		resets:       NewOneTimeFlow(domain.TokenPurposeReset, cfg.Auth.ResetTokenTTL, deps.Ledger),
		dispatcher:   dispatcher,
		logger:       logger,
		cfg:          cfg.Auth,
		clientURL:    cfg.App.ClientURL,
		now:          time.Now,
	}
}

// LoginInput is the payload of POST /auth/login.
type LoginInput struct {
	Email    string
	Password string
	LoginAs  string
	Device   domain.DeviceInfo
}

// LoginResult carries the token pair handed to a freshly authenticated subject.
type LoginResult struct {
	Subject          domain.Subject
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Login verifies credentials and opens a refresh session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("Email and password are required", nil)
	}
	role, ok := domain.ParseRole(in.LoginAs)
	if !ok {
		return nil, apperrors.NewValidationError("Can only login as doctor or patient", nil)
	}
	kind, _ := role.Kind()

	subject, err := s.subjects.FindByEmail(ctx, kind, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundMessage("no user with such email")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !auth.PasswordMatches(subject.Base().PasswordHash, in.Password) {
		return nil, apperrors.NewUnauthenticated("INVALID_CREDENTIALS", "invalid username or password")
	}
	if !subject.Base().IsActive {
		return nil, apperrors.NewForbiddenCode("ACCOUNT_DEACTIVATED", "Account has been deactivated or is on hold")
	}

	result, err := s.openSession(ctx, subject, in.Device)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login succeeded", zap.String("subject_id", subject.Base().ID), zap.String("role", string(role)))
	return result, nil
}

// Refresh mints a new access token from a refresh cookie value.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.NewUnauthenticated("REFRESH_TOKEN_MISSING", "Refresh token required")
	}
	session, err := s.sessions.Redeem(ctx, refreshToken)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return nil, apperrors.NewUnauthenticated("REFRESH_TOKEN_INVALID", "Invalid or expired refresh token")
	case errors.Is(err, ErrSubjectInactive):
		return nil, apperrors.NewForbiddenCode("ACCOUNT_DEACTIVATED", "Account has been deactivated or is on hold")
	case err != nil:
		return nil, apperrors.NewInternalError(err)
	}
	return session, nil
}

// Logout invalidates the refresh session. Unknown values are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RefreshCookieTTL is the lifetime of refresh sessions opened at login.
func (s *AuthService) RefreshCookieTTL() time.Duration {
	return s.cfg.RefreshTokenTTL
}

func (s *AuthService) openSession(ctx context.Context, subject domain.Subject, device domain.DeviceInfo) (*LoginResult, error) {
	access, accessExp, err := s.tokenMgr.Mint(subject)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, err := s.sessions.Issue(ctx, subject, device, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{
		Subject:          subject,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// publish emits an event; delivery failures are logged, not returned.
func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery failed",
			zap.String("event", string(event.Type)),
			zap.String("subject_id", event.Subject.ID),
			zap.Error(err))
	}
}
