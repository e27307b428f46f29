package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/paygate/pkg/email"
	"github.com/dmitrymomot/paygate/pkg/email/templates"
	"github.com/dmitrymomot/paygate/pkg/subscription"
)

const (
	kindActivated = "activated"
	kindCancelled = "cancelled"
	kindExpiring  = "expiring"
)

// Config controls the content of lifecycle e-mails.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"Paygate"`
	AppURL  string `env:"APP_URL,required"`
	// DateLayout formats dates in e-mail bodies.
	DateLayout string `env:"NOTIFY_DATE_LAYOUT" envDefault:"02/01/2006"`
}

// Mailer sends lifecycle e-mails.
type Mailer struct {
	sender email.EmailSender
	cfg    Config
}

var _ subscription.Notifier = (*Mailer)(nil)

func NewMailer(sender email.EmailSender, cfg Config) *Mailer {
	if sender == nil {
		panic("notify: email sender is required")
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = "02/01/2006"
	}
	return &Mailer{sender: sender, cfg: cfg}
}

func (m *Mailer) SubscriptionActivated(ctx context.Context, user subscription.User, sub subscription.Subscription, plan subscription.Plan) error {
	charge := templates.Text(fmt.Sprintf("Monto: %s %s.", sub.Amount.StringFixedBank(0), sub.Currency))
	if next := m.date(sub.NextBillingDate); next != "" {
		charge = templates.Text(fmt.Sprintf("Monto: %s %s. Proximo cobro: %s.", sub.Amount.StringFixedBank(0), sub.Currency, next))
	}
	return m.send(ctx, kindActivated, user, sub,
		fmt.Sprintf("Tu plan %s esta activo", plan.Name),
		templates.Paragraph(
			templates.Text("Tu suscripcion al plan "), templates.Strong(plan.Name),
			templates.Text(" ("+cycleLabel(sub.Cycle)+") esta activa."),
		),
		templates.Paragraph(charge),
		templates.Button(m.url("/dashboard"), "Ir a mi cuenta"),
	)
}

func (m *Mailer) SubscriptionCancelled(ctx context.Context, user subscription.User, sub subscription.Subscription, plan subscription.Plan) error {
	return m.send(ctx, kindCancelled, user, sub,
		fmt.Sprintf("Tu plan %s fue cancelado", plan.Name),
		templates.Paragraph(templates.Text("Tu suscripcion al plan "), templates.Strong(plan.Name), templates.Text(" fue cancelada.")),
		templates.Paragraph(templates.Text("Puedes suscribirte de nuevo cuando quieras.")),
		templates.Button(m.url("/pricing"), "Ver planes"),
	)
}

func (m *Mailer) SubscriptionExpiring(ctx context.Context, user subscription.User, sub subscription.Subscription, plan subscription.Plan) error {
	return m.send(ctx, kindExpiring, user, sub,
		fmt.Sprintf("Tu plan %s vence pronto", plan.Name),
		templates.Paragraph(
			templates.Text("Tu suscripcion al plan "), templates.Strong(plan.Name),
			templates.Text(" vence el "+m.date(sub.EndDate)+"."),
		),
		templates.Paragraph(templates.Text("Renuevala para no perder el acceso.")),
		templates.Button(m.url("/pricing"), "Renovar"),
	)
}

func (m *Mailer) send(ctx context.Context, kind string, user subscription.User, sub subscription.Subscription, subject string, body ...templ.Component) error {
	name := user.Name
	if name == "" {
		name = user.Email
	}
	return m.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:  user.Email,
		Subject: subject,
		Body: templates.Layout(templates.LayoutProps{
			Title:    subject,
			Brand:    m.cfg.AppName,
			Greeting: "Hola " + name + ",",
			Footer:   "Si tienes preguntas responde a este correo.",
		}, body...),
		Tag: "subscription-" + kind,
		Metadata: map[string]string{
			"subscription_id": sub.ProviderID,
			"user_id":         user.ID,
			"plan_id":         sub.PlanID,
		},
	})
}

func cycleLabel(c subscription.BillingCycle) string {
	if c == subscription.Yearly {
		return "anual"
	}
	return "mensual"
}

func (m *Mailer) date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(m.cfg.DateLayout)
}

func (m *Mailer) url(path string) string {
	return strings.TrimRight(m.cfg.AppURL, "/") + path
}
