package service

import (
	"context"
	"errors"
	"time"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
)

var (
	// ErrSessionNotFound means the refresh value is unknown, invalidated,
	// expired, or points at a subject that no longer exists.
	ErrSessionNotFound = errors.New("refresh session not found")
	// ErrSubjectInactive means the subject behind a session was deactivated.
	ErrSubjectInactive = errors.New("subject deactivated")
)

// Session is the outcome of redeeming a refresh token.
type Session struct {
	Subject         domain.Subject
	AccessToken     string
	AccessExpiresAt time.Time
}

// SessionService manages long-lived refresh records. Records are not rotated
// on use: a value stays redeemable until it expires or is revoked.
type SessionService struct {
	ledger   repository.TokenLedger
	subjects *repository.SubjectDirectory
	tokens   *auth.TokenManager
	now      func() time.Time
}

// NewSessionService wires the refresh session manager.
func NewSessionService(ledger repository.TokenLedger, subjects *repository.SubjectDirectory, tokens *auth.TokenManager) *SessionService {
	return &SessionService{ledger: ledger, subjects: subjects, tokens: tokens, now: time.Now}
}

// Issue persists a refresh record for subject valid for ttl.
func (s *SessionService) Issue(ctx context.Context, subject domain.Subject, device domain.DeviceInfo, ttl time.Duration) (*domain.TokenRecord, error) {
	return issueRecord(ctx, s.ledger, subject, domain.TokenPurposeRefresh, device, ttl, s.now())
}

// Redeem resolves a refresh value to the live subject and mints a new access token.
func (s *SessionService) Redeem(ctx context.Context, value string) (*Session, error) {
	if value == "" {
		return nil, ErrSessionNotFound
	}
	rec, err := s.ledger.FindOne(ctx, repository.TokenFilter{
		Value:     value,
		Purpose:   domain.TokenPurposeRefresh,
		ValidOnly: true,
		ActiveAt:  s.now(),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	subject, err := s.subjects.FindByID(ctx, rec.SubjectType, rec.SubjectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !subject.Base().IsActive {
		return nil, ErrSubjectInactive
	}

	token, exp, err := s.tokens.Mint(subject)
	if err != nil {
		return nil, err
	}
	return &Session{Subject: subject, AccessToken: token, AccessExpiresAt: exp}, nil
}

// Revoke invalidates a refresh value.
func (s *SessionService) Revoke(ctx context.Context, value string) error {
	if value == "" {
		return ErrSessionNotFound
	}
	err := s.ledger.Invalidate(ctx, value)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
