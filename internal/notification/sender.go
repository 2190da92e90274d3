package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Sender delivers a templated message to one address.
type Sender interface {
	Send(ctx context.Context, address, subject, templateID string, data map[string]any) error
}

// Email is a rendered message ready for a transport.
type Email struct {
	From     string `json:"from"`
	FromName string `json:"from_name"`
	To       string `json:"to"`
	ToName   string `json:"to_name"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Template string `json:"template"`
}

// Transport hands a rendered e-mail to the outside world.
type Transport interface {
	Deliver(ctx context.Context, email Email) error
}

// Mailer renders templates and delivers them over a Transport.
type Mailer struct {
	renderer  *Renderer
	transport Transport
	from      string
	fromName  string
}

// NewMailer builds a Sender.
func NewMailer(renderer *Renderer, transport Transport, from, fromName string) *Mailer {
	return &Mailer{renderer: renderer, transport: transport, from: from, fromName: fromName}
}

// Send implements Sender.
func (m *Mailer) Send(ctx context.Context, address, subject, templateID string, data map[string]any) error {
	if address == "" {
		return errors.New("notification: empty address")
	}
	html, err := m.renderer.Render(templateID, data)
	if err != nil {
		return err
	}
	toName, _ := data["name"].(string)
	if toName == "" {
		toName = "HealthHub Friend"
	}
	return m.transport.Deliver(ctx, Email{
		From:     m.from,
		FromName: m.fromName,
		To:       address,
		ToName:   toName,
		Subject:  subject,
		HTML:     html,
		Template: templateID,
	})
}

// WebhookTransport POSTs the e-mail as JSON to a relay endpoint.
type WebhookTransport struct {
	url     string
	timeout time.Duration
}

// NewWebhookTransport targets url.
func NewWebhookTransport(url string, timeout time.Duration) *WebhookTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookTransport{url: url, timeout: timeout}
}

// Deliver implements Transport.
func (w *WebhookTransport) Deliver(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(email)
	if err != nil {
		return err
	}

	timeout := w.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return context.DeadlineExceeded
		}
		timeout = min(timeout, remaining)
	}

	agent := fiber.Post(w.url)
	agent.Timeout(timeout)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Body(body)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	status, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook delivery: %w", errors.Join(errs...))
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook delivery: status %d: %s", status, resp)
	}
	return nil
}

// LogTransport only logs messages; used when no relay is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport builds a LogTransport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Deliver implements Transport.
func (l *LogTransport) Deliver(_ context.Context, email Email) error {
	l.logger.Info("email queued",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("template", email.Template))
	l.logger.Debug("email body", zap.String("html", email.HTML))
	return nil
}
