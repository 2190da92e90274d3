package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

// Token and subject misses share one message so callers cannot tell which
// half of the (id, token) pair was wrong.
const resetTokenNotFound = "token not found or has expired"

// ForgotPasswordInput is the payload of POST /auth/password/forgot.
type ForgotPasswordInput struct {
	Email       string
	AccountType string
	Device      domain.DeviceInfo
}

// ResetPasswordInput is the payload of POST /auth/password/:id/reset.
type ResetPasswordInput struct {
	SubjectID string
	Token     string
	Password  string
	Device    domain.DeviceInfo
}

// ForgotPassword issues a reset token and e-mails the link.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	if in.Email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}
	notFound := apperrors.NewNotFoundMessage("No user with such email exists")

	role, ok := domain.ParseRole(in.AccountType)
	if !ok {
		return notFound
	}
	kind, _ := role.Kind()
	subject, err := s.subjects.FindByEmail(ctx, kind, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound
		}
		return apperrors.NewInternalError(err)
	}
	if !subject.Base().IsActive {
		return notFound
	}

	rec, err := s.resets.Issue(ctx, subject, in.Device)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	link := fmt.Sprintf("%s/auth/reset/%s?token=%s", s.clientURL, subject.Base().ID, rec.Value)
	event := events.New(events.EventPasswordResetRequested, subject, events.PasswordResetRequestedPayload{
		ResetLink: link,
		ExpiresAt: rec.ExpiresAt,
	})
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		if derr := s.resets.Discard(ctx, rec); derr != nil {
			s.logger.Warn("discard undelivered reset token failed", zap.Error(derr))
		}
		return apperrors.NewUnavailable("could not send reset instructions", err)
	}
	return nil
}

// CheckPasswordReset reports whether a reset token is usable without consuming it.
func (s *AuthService) CheckPasswordReset(ctx context.Context, subjectID, token string) (domain.Subject, error) {
	_, subject, err := s.lookupReset(ctx, subjectID, token)
	return subject, err
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if in.Password == "" {
		return apperrors.NewValidationError("New Password is required", nil)
	}

	_, subject, err := s.lookupReset(ctx, in.SubjectID, in.Token)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	// hashing is slow; the token is only consumed once everything else is ready
	rec, err := s.resets.Consume(ctx, in.SubjectID, in.Token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return apperrors.NewNotFoundMessage(resetTokenNotFound)
		}
		return apperrors.NewInternalError(err)
	}

	subject.Base().PasswordHash = hash
	if err := s.subjects.Save(ctx, subject); err != nil {
		s.restore(ctx, s.resets, rec)
		return apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.New(events.EventPasswordResetCompleted, subject, events.PasswordResetCompletedPayload{
		IPAddress: in.Device.IPAddress,
		Device:    auth.DescribeDevice(in.Device.UserAgent),
	}))
	s.logger.Info("password reset", zap.String("subject_id", in.SubjectID))
	return nil
}

func (s *AuthService) lookupReset(ctx context.Context, subjectID, token string) (*domain.TokenRecord, domain.Subject, error) {
	notFound := apperrors.NewNotFoundMessage(resetTokenNotFound)

	rec, err := s.resets.Peek(ctx, subjectID, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, nil, notFound
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	subject, err := s.subjects.FindByID(ctx, rec.SubjectType, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFound
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	if !subject.Base().IsActive {
		return nil, nil, notFound
	}
	return rec, subject, nil
}
