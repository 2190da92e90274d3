// Package notification renders and delivers transactional e-mail.
package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

// Template identifiers.
const (
	TemplateAccountCreated        = "accountCreated"
	TemplateAccountVerified       = "accountVerified"
	TemplateResetPassword         = "resetPassword"
	TemplatePasswordResetSuccess  = "passwordResetSuccess"
	TemplatePatientAccountCreated = "patientAccountCreated"
	TemplatePatientAdded          = "patientAdded"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded templates with footer data merged in.
type Renderer struct {
	tmpl      *template.Template
	clientURL string
}

// NewRenderer parses the embedded templates.
func NewRenderer(clientURL string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, clientURL: clientURL}, nil
}

// Render produces the HTML body for templateID.
func (r *Renderer) Render(templateID string, data map[string]any) (string, error) {
	merged := map[string]any{
		"currentYear":        time.Now().Year(),
		"unsubscribeLink":    r.clientURL + "/unsubscribe",
		"privacyPolicyLink":  r.clientURL + "/about/privacy",
		"termsOfServiceLink": r.clientURL + "/about/terms",
	}
	for k, v := range data {
		merged[k] = v
	}

	t := r.tmpl.Lookup(templateID + ".html")
	if t == nil {
		return "", fmt.Errorf("unknown template %q", templateID)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, merged); err != nil {
		return "", fmt.Errorf("render %s: %w", templateID, err)
	}
	return buf.String(), nil
}
