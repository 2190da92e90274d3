package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/repository"
)

// ExpiredTokenDeleter is the slice of the ledger the sweeper needs.
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

var _ ExpiredTokenDeleter = (repository.TokenLedger)(nil)

// StartTokenSweeper deletes expired ledger records every interval until ctx is
// cancelled. The returned channel closes when the goroutine exits.
func StartTokenSweeper(ctx context.Context, ledger ExpiredTokenDeleter, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if ledger == nil || interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sweep(ctx, ledger, now, logger)
			}
		}
	}()
	return done
}

func sweep(ctx context.Context, ledger ExpiredTokenDeleter, now time.Time, logger *zap.Logger) {
	removed, err := ledger.DeleteExpired(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("token sweep failed", zap.Error(err))
		}
		return
	}
	if removed > 0 {
		logger.Info("expired tokens removed", zap.Int64("count", removed))
	}
}
