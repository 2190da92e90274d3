package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/repository/memory"
	"github.com/healthhub/healthhub-service/internal/service"
)

type countingDeleter struct {
	calls atomic.Int32
}

func (c *countingDeleter) DeleteExpired(context.Context, time.Time) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestTokenSweeperStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	deleter := &countingDeleter{}

	done := StartTokenSweeper(ctx, deleter, 5*time.Millisecond, zap.NewNop())
	require.Eventually(t, func() bool { return deleter.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestTokenSweeperRemovesExpiredRecords(t *testing.T) {
	ledger := memory.NewLedger()
	now := time.Now()
	require.NoError(t, ledger.Create(context.Background(), &domain.TokenRecord{
		SubjectID: "s1", SubjectType: domain.SubjectKindPatient, Value: "old", Purpose: domain.TokenPurposeReset,
		IssuedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(-time.Hour), Valid: true,
	}))
	require.NoError(t, ledger.Create(context.Background(), &domain.TokenRecord{
		SubjectID: "s1", SubjectType: domain.SubjectKindPatient, Value: "fresh", Purpose: domain.TokenPurposeRefresh,
		IssuedAt: now, ExpiresAt: now.Add(time.Hour), Valid: true,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartTokenSweeper(ctx, ledger, 5*time.Millisecond, zap.NewNop())

	assert.Eventually(t, func() bool { return ledger.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTokenSweeperDisabled(t *testing.T) {
	done := StartTokenSweeper(context.Background(), nil, time.Second, zap.NewNop())
	_, open := <-done
	assert.False(t, open)
}

func TestStartNotificationWorkerSubscribes(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &recordingSender{}
	registered := StartNotificationWorker(service.NewNotificationService(dispatcher, sender, nil, "http://client.test"), zap.NewNop())
	assert.Contains(t, registered, events.EventAccountVerified)
	assert.Contains(t, registered, events.EventPatientEnrolled)
	assert.Nil(t, StartNotificationWorker(nil, nil))

	patient := &domain.Patient{Identity: domain.Identity{ID: "p1", Email: "pat@example.com", FirstName: "Pat"}}
	err := dispatcher.Publish(context.Background(), events.New(events.EventAccountVerified, patient, nil))
	require.NoError(t, err)
	assert.Equal(t, int32(1), sender.calls.Load())
}

type recordingSender struct {
	calls atomic.Int32
}

func (r *recordingSender) Send(context.Context, string, string, string, map[string]any) error {
	r.calls.Add(1)
	return nil
}
