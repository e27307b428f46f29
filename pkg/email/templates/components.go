package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// LayoutProps describes the shell shared by every message.
type LayoutProps struct {
	Title    string
	Brand    string
	Greeting string
	Footer   string
}

// Layout wraps body in the HTML document used for all lifecycle e-mails.
func Layout(p LayoutProps, body ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8"><title>`, templ.EscapeString(p.Title), `</title></head>`,
			`<body style="font-family: Arial, sans-serif; color: #1f2937; max-width: 560px; margin: 0 auto; padding: 24px;">`,
			`<h1 style="font-size: 20px;">`, templ.EscapeString(p.Brand), `</h1>`,
		); err != nil {
			return err
		}
		if p.Greeting != "" {
			if err := write(w, `<p>`, templ.EscapeString(p.Greeting), `</p>`); err != nil {
				return err
			}
		}
		for _, c := range body {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		if p.Footer != "" {
			if err := write(w, `<p style="color: #6b7280; font-size: 12px; margin-top: 32px;">`, templ.EscapeString(p.Footer), `</p>`); err != nil {
				return err
			}
		}
		return write(w, `</body></html>`)
	})
}

// Paragraph renders parts as one paragraph. Parts are escaped unless they are
// Strong components.
func Paragraph(parts ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<p>`); err != nil {
			return err
		}
		for _, part := range parts {
			if err := part.Render(ctx, w); err != nil {
				return err
			}
		}
		return write(w, `</p>`)
	})
}

// Text is escaped inline text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w, templ.EscapeString(s))
	})
}

// Strong is escaped bold text.
func Strong(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w, `<strong>`, templ.EscapeString(s), `</strong>`)
	})
}

// Button renders a call-to-action link. Unsafe URLs are replaced by
// templ's failure placeholder.
func Button(href, label string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w,
			`<p style="margin-top: 32px;"><a href="`, templ.EscapeString(string(templ.URL(href))),
			`" style="background: #2563eb; color: #ffffff; padding: 10px 18px; border-radius: 6px; text-decoration: none;">`,
			templ.EscapeString(label), `</a></p>`,
		)
	})
}

func write(w io.Writer, parts ...string) error {
	for _, s := range parts {
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}
