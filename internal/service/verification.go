package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

const invalidVerifyToken = "Invalid token"

// VerifyAccount consumes a verification token and marks the clinician verified.
func (s *AuthService) VerifyAccount(ctx context.Context, clinicianID, token string) (*domain.Clinician, error) {
	rec, err := s.verification.Consume(ctx, clinicianID, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, apperrors.NewNotFoundMessage(invalidVerifyToken)
		}
		return nil, apperrors.NewInternalError(err)
	}

	subject, err := s.subjects.FindByID(ctx, domain.SubjectKindClinician, clinicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundMessage(invalidVerifyToken)
		}
		s.restore(ctx, s.verification, rec)
		return nil, apperrors.NewInternalError(err)
	}
	clinician, ok := subject.(*domain.Clinician)
	if !ok || rec.SubjectType != domain.SubjectKindClinician {
		return nil, apperrors.NewNotFoundMessage(invalidVerifyToken)
	}

	if err := s.subjects.MarkVerified(ctx, clinician.ID); err != nil {
		s.restore(ctx, s.verification, rec)
		return nil, apperrors.NewInternalError(err)
	}
	clinician.Verified = true

	s.publish(ctx, events.New(events.EventAccountVerified, clinician, nil))
	s.logger.Info("account verified", zap.String("subject_id", clinician.ID))
	return clinician, nil
}

func (s *AuthService) restore(ctx context.Context, flow *OneTimeFlow, rec *domain.TokenRecord) {
	if err := flow.Restore(ctx, rec); err != nil {
		s.logger.Error("restore one-time token failed",
			zap.String("subject_id", rec.SubjectID),
			zap.String("purpose", string(rec.Purpose)),
			zap.Error(err))
	}
}
