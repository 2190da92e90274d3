package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/notification"
)

func TestForgotPasswordSendsResetLink(t *testing.T) {
	f := newAuthFixture(t)
	pat := f.seedPatient(t, "pat@example.com", "old-secret", true)

	err := f.svc.ForgotPassword(context.Background(), ForgotPasswordInput{Email: "PAT@example.com", AccountType: "patient"})
	require.NoError(t, err)

	records := f.ledger.Records(pat.ID, domain.TokenPurposeReset)
	require.Len(t, records, 1)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), records[0].ExpiresAt, time.Minute)

	mail := f.sender.last()
	assert.Equal(t, notification.TemplateResetPassword, mail.Template)
	assert.Equal(t, testClientURL+"/auth/reset/"+pat.ID+"?token="+records[0].Value, mail.Data["resetLink"])
}

func TestForgotPasswordUnknownOrInactive(t *testing.T) {
	f := newAuthFixture(t)
	f.seedPatient(t, "gone@example.com", "old-secret", false)

	for _, in := range []ForgotPasswordInput{
		{Email: "nobody@example.com", AccountType: "patient"},
		{Email: "gone@example.com", AccountType: "patient"},
		{Email: "gone@example.com", AccountType: "nurse"},
	} {
		err := f.svc.ForgotPassword(context.Background(), in)
		requireDomainError(t, err, http.StatusNotFound, "No user with such email exists")
	}
	assert.Zero(t, f.ledger.Len())
}

func TestForgotPasswordMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	pat := f.seedPatient(t, "pat@example.com", "old-secret", true)
	f.sender.fail = errors.New("smtp: connection refused")

	err := f.svc.ForgotPassword(context.Background(), ForgotPasswordInput{Email: "pat@example.com", AccountType: "patient"})
	requireDomainError(t, err, http.StatusServiceUnavailable, "")
	assert.Empty(t, f.ledger.Records(pat.ID, domain.TokenPurposeReset))
}

func TestResetPasswordRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "old-secret", true)
	token := f.issueReset(t, doc)

	subject, err := f.svc.CheckPasswordReset(ctx, doc.ID, token)
	require.NoError(t, err)
	assert.Equal(t, "Meredith", subject.Base().FirstName)

	err = f.svc.ResetPassword(ctx, ResetPasswordInput{
		SubjectID: doc.ID,
		Token:     token,
		Password:  "new-secret",
		Device:    domain.DeviceInfo{UserAgent: chromeLinuxUA, IPAddress: "10.1.2.3"},
	})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Email: "doc@example.com", Password: "new-secret", LoginAs: "doctor"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Email: "doc@example.com", Password: "old-secret", LoginAs: "doctor"})
	requireDomainError(t, err, http.StatusUnauthorized, "")

	mail := f.sender.last()
	assert.Equal(t, notification.TemplatePasswordResetSuccess, mail.Template)
	assert.Equal(t, "10.1.2.3", mail.Data["resetIP"])
	device, _ := mail.Data["resetDevice"].(string)
	assert.True(t, strings.HasPrefix(device, "Chrome on Linux"), device)

	err = f.svc.ResetPassword(ctx, ResetPasswordInput{SubjectID: doc.ID, Token: token, Password: "third"})
	requireDomainError(t, err, http.StatusNotFound, "token not found or has expired")
	_, err = f.svc.CheckPasswordReset(ctx, doc.ID, token)
	requireDomainError(t, err, http.StatusNotFound, "token not found or has expired")
}

func TestResetPasswordRequiresPassword(t *testing.T) {
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "old-secret", true)
	token := f.issueReset(t, doc)

	err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{SubjectID: doc.ID, Token: token})
	requireDomainError(t, err, http.StatusBadRequest, "New Password is required")
	assert.Len(t, f.ledger.Records(doc.ID, domain.TokenPurposeReset), 1, "token must survive a rejected request")
}

func TestResetTokenIsBoundToSubject(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	victim := f.seedPatient(t, "victim@example.com", "victim-secret", true)
	attacker := f.seedPatient(t, "attacker@example.com", "attacker-secret", true)
	token := f.issueReset(t, attacker)

	err := f.svc.ResetPassword(ctx, ResetPasswordInput{SubjectID: victim.ID, Token: token, Password: "owned"})
	requireDomainError(t, err, http.StatusNotFound, "token not found or has expired")

	_, err = f.svc.Login(ctx, LoginInput{Email: "victim@example.com", Password: "victim-secret", LoginAs: "patient"})
	require.NoError(t, err)
	assert.Len(t, f.ledger.Records(attacker.ID, domain.TokenPurposeReset), 1)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "old-secret", true)
	token := f.issueReset(t, doc)

	f.shiftClock(2*time.Hour + time.Second)
	err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{SubjectID: doc.ID, Token: token, Password: "new"})
	requireDomainError(t, err, http.StatusNotFound, "token not found or has expired")
}

func TestResetPasswordRestoresTokenWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	pat := f.seedPatient(t, "pat@example.com", "old-secret", true)
	token := f.issueReset(t, pat)

	f.patients.failUpdate = true
	err := f.svc.ResetPassword(ctx, ResetPasswordInput{SubjectID: pat.ID, Token: token, Password: "new-secret"})
	requireDomainError(t, err, http.StatusInternalServerError, "")

	f.patients.failUpdate = false
	require.NoError(t, f.svc.ResetPassword(ctx, ResetPasswordInput{SubjectID: pat.ID, Token: token, Password: "new-secret"}))
}

func TestConcurrentResetConsumesOnce(t *testing.T) {
	f := newAuthFixture(t)
	doc := f.seedClinician(t, "doc@example.com", "old-secret", true)
	token := f.issueReset(t, doc)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{SubjectID: doc.ID, Token: token, Password: "new-secret"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if requireStatus(err) == http.StatusNotFound {
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, notFound)
	assert.Equal(t, 1, f.sender.count(notification.TemplatePasswordResetSuccess))
}
