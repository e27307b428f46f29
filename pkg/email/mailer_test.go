package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/paygate/pkg/email"
	"github.com/dmitrymomot/paygate/pkg/email/templates"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	body := templates.Paragraph(templates.Text("Gracias"))
	long := strings.Repeat("x", 81)

	tests := []struct {
		name   string
		params email.SendEmailParams
		errMsg string
	}{
		{
			name:   "html body",
			params: email.SendEmailParams{SendTo: "user@example.com", Subject: "s", BodyHTML: "<p>x</p>"},
		},
		{
			name: "component body with metadata",
			params: email.SendEmailParams{
				SendTo:   "user+tag@sub.example.com",
				Subject:  "s",
				Body:     body,
				Metadata: map[string]string{"subscription_id": "pre_1", "user_id": "u1"},
			},
		},
		{
			name:   "missing recipient",
			params: email.SendEmailParams{SendTo: "  ", Subject: "s", Body: body},
			errMsg: "SendTo is required",
		},
		{
			name:   "malformed recipient",
			params: email.SendEmailParams{SendTo: "user@", Subject: "s", Body: body},
			errMsg: "SendTo must be a valid email address",
		},
		{
			name:   "missing subject",
			params: email.SendEmailParams{SendTo: "user@example.com", Body: body},
			errMsg: "Subject is required",
		},
		{
			name:   "missing body",
			params: email.SendEmailParams{SendTo: "user@example.com", Subject: "s", BodyHTML: " "},
			errMsg: "BodyHTML or Body is required",
		},
		{
			name: "metadata value too long",
			params: email.SendEmailParams{
				SendTo:   "user@example.com",
				Subject:  "s",
				Body:     body,
				Metadata: map[string]string{"subscription_id": long},
			},
			errMsg: "exceeds limits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("renders the component and records the envelope", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		err := email.NewDevSender(dir).SendEmail(ctx, email.SendEmailParams{
			SendTo:   "ana@example.com",
			Subject:  "Tu plan Pro esta activo",
			Body:     templates.Paragraph(templates.Text("Plan "), templates.Strong("Pro")),
			Tag:      "subscription-activated",
			Metadata: map[string]string{"subscription_id": "pre_1", "user_id": "u1"},
		})
		require.NoError(t, err)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)

		var htmlFile, jsonFile string
		for _, f := range files {
			assert.Contains(t, f.Name(), "_subscription-activated_pre_1.")
			switch filepath.Ext(f.Name()) {
			case ".html":
				htmlFile = filepath.Join(dir, f.Name())
			case ".json":
				jsonFile = filepath.Join(dir, f.Name())
			}
		}

		html, err := os.ReadFile(htmlFile)
		require.NoError(t, err)
		assert.Equal(t, "<p>Plan <strong>Pro</strong></p>", string(html))

		raw, err := os.ReadFile(jsonFile)
		require.NoError(t, err)
		var envelope struct {
			SendTo   string            `json:"send_to"`
			Tag      string            `json:"tag"`
			Metadata map[string]string `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(raw, &envelope))
		assert.Equal(t, "ana@example.com", envelope.SendTo)
		assert.Equal(t, "subscription-activated", envelope.Tag)
		assert.Equal(t, map[string]string{"subscription_id": "pre_1", "user_id": "u1"}, envelope.Metadata)
	})

	t.Run("falls back to the subject for the filename", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		err := email.NewDevSender(dir).SendEmail(ctx, email.SendEmailParams{
			SendTo:   "ana@example.com",
			Subject:  "Hola Ana!",
			BodyHTML: "<p>x</p>",
		})
		require.NoError(t, err)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.True(t, strings.HasSuffix(files[0].Name(), "_hola_ana.html") || strings.HasSuffix(files[0].Name(), "_hola_ana.json"))
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "out")

		err := email.NewDevSender(dir).SendEmail(ctx, email.SendEmailParams{SendTo: "bad", Subject: "s", BodyHTML: "x"})
		require.ErrorIs(t, err, email.ErrInvalidParams)
		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("dev sender without tokens", func(t *testing.T) {
		t.Parallel()

		sender, err := email.New(email.Config{DevOutputDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, sender)
	})

	t.Run("postmark with tokens", func(t *testing.T) {
		t.Parallel()

		sender, err := email.New(email.Config{
			PostmarkServerToken:  "s",
			PostmarkAccountToken: "a",
			SenderEmail:          "billing@example.com",
			SupportEmail:         "support@example.com",
		})
		require.NoError(t, err)
		_, isDev := sender.(*email.DevSender)
		assert.False(t, isDev)
	})
}
