package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes each message to disk as an HTML body plus a JSON envelope,
// so lifecycle e-mails can be inspected without Postmark.
type DevSender struct {
	dir string
	now func() time.Time
}

// NewDevSender creates dir on first send.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir, now: time.Now}
}

type devEnvelope struct {
	Timestamp string            `json:"timestamp"`
	SendTo    string            `json:"send_to"`
	Subject   string            `json:"subject"`
	Tag       string            `json:"tag,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SendEmail renders the body and stores it next to its envelope. Files are
// named <timestamp>_<tag>[_<subscription id>] so deliveries for one
// preapproval sort together.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	body, err := params.html(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	base := now.Format("2006_01_02_150405.000000") + "_" + devFilename(params)

	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(body), 0o644); err != nil {
		return fmt.Errorf("%w: write body: %v", ErrFailedToSendEmail, err)
	}

	envelope, err := json.MarshalIndent(devEnvelope{
		Timestamp: now.Format(time.RFC3339),
		SendTo:    params.SendTo,
		Subject:   params.Subject,
		Tag:       params.Tag,
		Metadata:  params.Metadata,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal envelope: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), envelope, 0o644); err != nil {
		return fmt.Errorf("%w: write envelope: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func devFilename(p SendEmailParams) string {
	name := p.Tag
	if name == "" {
		name = p.Subject
	}
	if id := p.Metadata["subscription_id"]; id != "" {
		name += "_" + id
	}

	name = unsafeFilenameChars.ReplaceAllString(strings.ReplaceAll(name, " ", "_"), "")
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "email"
	}
	return strings.ToLower(name)
}
