package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureTransport struct {
	sent []Email
}

func (c *captureTransport) Deliver(_ context.Context, email Email) error {
	c.sent = append(c.sent, email)
	return nil
}

func TestRendererMergesFooter(t *testing.T) {
	r, err := NewRenderer("https://app.example.org")
	require.NoError(t, err)

	html, err := r.Render(TemplateResetPassword, map[string]any{
		"name":      "Ada",
		"email":     "ada@x.com",
		"resetLink": "https://app.example.org/auth/reset/1?token=abc",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi Ada")
	assert.Contains(t, html, "https://app.example.org/auth/reset/1?token=abc")
	assert.Contains(t, html, "https://app.example.org/about/privacy")
}

func TestRendererUnknownTemplate(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	_, err = r.Render("nope", nil)
	assert.Error(t, err)
}

func TestRendererParsesAllTemplates(t *testing.T) {
	r, err := NewRenderer("http://c")
	require.NoError(t, err)
	for _, id := range []string{
		TemplateAccountCreated,
		TemplateAccountVerified,
		TemplateResetPassword,
		TemplatePasswordResetSuccess,
		TemplatePatientAccountCreated,
		TemplatePatientAdded,
	} {
		_, err := r.Render(id, map[string]any{"name": "x"})
		assert.NoError(t, err, id)
	}
}

func TestMailerSend(t *testing.T) {
	r, err := NewRenderer("http://c")
	require.NoError(t, err)
	transport := &captureTransport{}
	m := NewMailer(r, transport, "noreply@x.com", "HealthHub")

	err = m.Send(context.Background(), "ada@x.com", "Verify", TemplateAccountCreated, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "Ada", transport.sent[0].ToName)
	assert.Equal(t, "noreply@x.com", transport.sent[0].From)

	assert.Error(t, m.Send(context.Background(), "", "x", TemplateAccountCreated, nil))
}

func TestWebhookTransport(t *testing.T) {
	var got Email
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL, time.Second)
	require.NoError(t, tr.Deliver(context.Background(), Email{To: "a@b.c", Subject: "hi"}))
	assert.Equal(t, "a@b.c", got.To)
}

func TestWebhookTransportFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookTransport(srv.URL, time.Second).Deliver(context.Background(), Email{To: "a@b.c"})
	assert.Error(t, err)
}

func TestWebhookTransportHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := NewWebhookTransport(srv.URL, 5*time.Second).Deliver(ctx, Email{To: "a@b.c"})
	require.Error(t, err)
	assert.Less(t, time.Since(started), time.Second)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.ErrorIs(t, NewWebhookTransport(srv.URL, 5*time.Second).Deliver(expired, Email{To: "a@b.c"}), context.DeadlineExceeded)
}

func TestLogTransport(t *testing.T) {
	assert.NoError(t, NewLogTransport(zap.NewNop()).Deliver(context.Background(), Email{To: "a@b.c"}))
}
