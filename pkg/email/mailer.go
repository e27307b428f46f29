package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/paygate/pkg/email/templates"
)

// Postmark metadata limits.
const (
	maxMetadataFields   = 10
	maxMetadataKeyLen   = 20
	maxMetadataValueLen = 80
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams describes one message. Body is rendered at send time when
// BodyHTML is empty.
type SendEmailParams struct {
	SendTo   string          `json:"send_to"`
	Subject  string          `json:"subject"`
	BodyHTML string          `json:"body_html,omitempty"`
	Body     templ.Component `json:"-"`
	// Tag groups messages by kind, e.g. "subscription-activated".
	Tag string `json:"tag,omitempty"`
	// Metadata is attached to the message for support lookups, typically the
	// user and preapproval ids.
	Metadata map[string]string `json:"metadata,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks required fields, the recipient address format and the
// metadata limits.
func (p SendEmailParams) Validate() error {
	switch {
	case strings.TrimSpace(p.SendTo) == "":
		return fmt.Errorf("%w: SendTo is required", ErrInvalidParams)
	case !emailRegex.MatchString(p.SendTo):
		return fmt.Errorf("%w: SendTo must be a valid email address", ErrInvalidParams)
	case strings.TrimSpace(p.Subject) == "":
		return fmt.Errorf("%w: Subject is required", ErrInvalidParams)
	case strings.TrimSpace(p.BodyHTML) == "" && p.Body == nil:
		return fmt.Errorf("%w: BodyHTML or Body is required", ErrInvalidParams)
	case len(p.Metadata) > maxMetadataFields:
		return fmt.Errorf("%w: at most %d metadata fields", ErrInvalidParams, maxMetadataFields)
	}
	for k, v := range p.Metadata {
		if k == "" || len(k) > maxMetadataKeyLen || len(v) > maxMetadataValueLen {
			return fmt.Errorf("%w: metadata %q exceeds limits", ErrInvalidParams, k)
		}
	}
	return nil
}

// html returns BodyHTML, rendering Body when needed.
func (p SendEmailParams) html(ctx context.Context) (string, error) {
	if p.BodyHTML != "" || p.Body == nil {
		return p.BodyHTML, nil
	}
	html, err := templates.Render(ctx, p.Body)
	if err != nil {
		return "", errors.Join(ErrFailedToRender, err)
	}
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("%w: body rendered empty", ErrInvalidParams)
	}
	return html, nil
}

// New returns a Postmark sender when credentials are configured and a
// DevSender otherwise.
func New(cfg Config) (EmailSender, error) {
	if !cfg.Enabled() {
		return NewDevSender(cfg.DevOutputDir), nil
	}
	return NewPostmarkClient(cfg)
}
