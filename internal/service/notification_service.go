package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/notification"
)

// Subject lines of the account e-mails.
const (
	subjectVerifyAccount  = "Verify Your HealthHub Account"
	subjectVerified       = "Your Account has been verified"
	subjectResetPassword  = "Reset your HealthHub password"
	subjectResetSucceeded = "Your password has successfully been reset"
	subjectPatientAdded   = "You have been added to our healthcare system"
	subjectEnrolled       = "You have been added to a health program"
)

// NotificationService turns auth events into e-mails.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     notification.Sender
	logger     *zap.Logger
	clientURL  string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender notification.Sender, logger *zap.Logger, clientURL string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		clientURL:  clientURL,
	}
}

// RegisterHandlers subscribes every mail handler and returns the events it
// now listens to.
func (n *NotificationService) RegisterHandlers() []events.EventType {
	if n.dispatcher == nil || n.sender == nil {
		return nil
	}
	subscriptions := []struct {
		event  events.EventType
		handle events.EventHandler
	}{
		{events.EventClinicianRegistered, n.handleClinicianRegistered},
		{events.EventPatientRegistered, n.handlePatientRegistered},
		{events.EventAccountVerified, n.handleAccountVerified},
		{events.EventPasswordResetRequested, n.handleResetRequested},
		{events.EventPasswordResetCompleted, n.handleResetCompleted},
		{events.EventPatientEnrolled, n.handlePatientEnrolled},
	}
	registered := make([]events.EventType, 0, len(subscriptions))
	for _, sub := range subscriptions {
		n.dispatcher.Subscribe(sub.event, sub.handle)
		registered = append(registered, sub.event)
	}
	return registered
}

func (n *NotificationService) handleClinicianRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ClinicianRegisteredPayload)
	if !ok {
		return payloadError(event)
	}
	return n.send(ctx, event, subjectVerifyAccount, notification.TemplateAccountCreated, map[string]any{
		"verificationLink": payload.VerificationLink,
	})
}

func (n *NotificationService) handlePatientRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PatientRegisteredPayload)
	if !ok {
		return payloadError(event)
	}
	return n.send(ctx, event, subjectPatientAdded, notification.TemplatePatientAccountCreated, map[string]any{
		"doctorName":   payload.RegisteredBy,
		"tempPassword": payload.TempPassword,
		"loginLink":    n.clientURL + "/auth/login",
	})
}

func (n *NotificationService) handleAccountVerified(ctx context.Context, event events.Event) error {
	return n.send(ctx, event, subjectVerified, notification.TemplateAccountVerified, map[string]any{
		"loginLink": n.clientURL + "/auth/login",
	})
}

func (n *NotificationService) handleResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return payloadError(event)
	}
	return n.send(ctx, event, subjectResetPassword, notification.TemplateResetPassword, map[string]any{
		"resetLink": payload.ResetLink,
	})
}

func (n *NotificationService) handleResetCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetCompletedPayload)
	if !ok {
		return payloadError(event)
	}
	return n.send(ctx, event, subjectResetSucceeded, notification.TemplatePasswordResetSuccess, map[string]any{
		"resetTime":   event.Timestamp.UTC().Format(time.RFC1123),
		"resetIP":     payload.IPAddress,
		"resetDevice": payload.Device,
	})
}

func (n *NotificationService) handlePatientEnrolled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PatientEnrolledPayload)
	if !ok {
		return payloadError(event)
	}
	return n.send(ctx, event, subjectEnrolled, notification.TemplatePatientAdded, map[string]any{
		"patientName":        event.Subject.FirstName,
		"doctorName":         payload.CoordinatorName,
		"programName":        payload.ProgramName,
		"programDescription": payload.ProgramDescription,
		"startDate":          payload.StartDate.Format("January 2, 2006"),
		"patientPortalLink":  n.clientURL + "/auth/login",
	})
}

func (n *NotificationService) send(ctx context.Context, event events.Event, subject, templateID string, data map[string]any) error {
	data["name"] = event.Subject.FirstName
	data["email"] = event.Subject.Email
	if err := n.sender.Send(ctx, event.Subject.Email, subject, templateID, data); err != nil {
		n.logger.Error("send notification failed",
			zap.String("event", string(event.Type)),
			zap.String("subject_id", event.Subject.ID),
			zap.Error(err))
		return fmt.Errorf("notify %s: %w", event.Type, err)
	}
	n.logger.Debug("notification sent",
		zap.String("event", string(event.Type)),
		zap.String("template", templateID),
		zap.String("subject_id", event.Subject.ID))
	return nil
}

func payloadError(event events.Event) error {
	return fmt.Errorf("event %s: unexpected payload %T", event.Type, event.Payload)
}
