package templates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/paygate/pkg/email/templates"
)

func TestRender(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("layout escapes user input", func(t *testing.T) {
		t.Parallel()

		html, err := templates.Render(ctx, templates.Layout(
			templates.LayoutProps{Title: "Plan <Pro>", Brand: "Paygate", Greeting: "Hola <b>Ana</b>,", Footer: "Responde a este correo."},
			templates.Paragraph(templates.Text("Tu plan "), templates.Strong("Pro & Co"), templates.Text(" esta activo.")),
			templates.Button("https://app.test/dashboard?a=1&b=2", "Ir"),
		))
		require.NoError(t, err)

		assert.Contains(t, html, "<title>Plan &lt;Pro&gt;</title>")
		assert.Contains(t, html, "<p>Hola &lt;b&gt;Ana&lt;/b&gt;,</p>")
		assert.Contains(t, html, "<p>Tu plan <strong>Pro &amp; Co</strong> esta activo.</p>")
		assert.Contains(t, html, `href="https://app.test/dashboard?a=1&amp;b=2"`)
		assert.Contains(t, html, "Responde a este correo.")
		assert.NotContains(t, html, "<b>Ana</b>")
	})

	t.Run("unsafe button url is neutralised", func(t *testing.T) {
		t.Parallel()

		html, err := templates.Render(ctx, templates.Button("javascript:alert(1)", "Ir"))
		require.NoError(t, err)
		assert.NotContains(t, html, "javascript:")
	})

	t.Run("optional blocks are omitted", func(t *testing.T) {
		t.Parallel()

		html, err := templates.Render(ctx, templates.Layout(templates.LayoutProps{Title: "t", Brand: "b"}))
		require.NoError(t, err)
		assert.NotContains(t, html, "font-size: 12px")
		assert.Contains(t, html, "</body></html>")
	})
}
