package billing

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/pkg/subscription"
	"github.com/dmitrymomot/paygate/svc/auth"
)

// SignatureVerifier is satisfied by *mercadopago.SignatureVerifier.
type SignatureVerifier interface {
	Verify(header, requestID, dataID string) error
}

// Module serves the billing routes.
type Module struct {
	cfg      Config
	svc      subscription.Service
	verifier SignatureVerifier
	log      *slog.Logger
	metrics  *Metrics
}

type Option func(*Module)

func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics enables Prometheus counters. Without it metrics are collected
// into unregistered collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Module) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

func NewModule(cfg Config, svc subscription.Service, verifier SignatureVerifier, opts ...Option) *Module {
	if svc == nil {
		panic("billing: subscription service is required")
	}
	if verifier == nil {
		panic("billing: signature verifier is required")
	}

	m := &Module{
		cfg:      cfg.withDefaults(),
		svc:      svc,
		verifier: verifier,
		log:      logger.Discard(),
		metrics:  NewMetrics(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("billing"))
	return m
}

// Handle returns the billing router. Mount it at the application root; the
// webhook path is absolute.
//
//	POST  <WebhookPath>              provider notifications
//	GET   /billing/plans             active plans
//	GET   /billing/access            caller's access state
//	POST  /billing/checkout          redirect to checkout
//	GET   /billing/portal            provider page for the active subscription
//	GET   /billing/admin/stats       bearer token
//	GET   /billing/admin/expiring    bearer token, ?days=7
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post(m.cfg.WebhookPath, m.webhook)

	r.Route("/billing", func(r chi.Router) {
		r.Get("/plans", m.plans)
		r.Post("/checkout", m.checkout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Get("/access", m.access)
			r.Get("/portal", m.portal)
		})

		if m.cfg.AdminToken != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(m.requireAdmin)
				r.Get("/stats", m.stats)
				r.Get("/expiring", m.expiring)
			})
		}
	})

	return r
}

func (m *Module) pricingURL(query string) string {
	u := strings.TrimRight(m.cfg.AppURL, "/") + m.cfg.PricingPath
	if query != "" {
		u += "?" + query
	}
	return u
}

func (m *Module) observeWebhook(kind, outcome string, start time.Time) {
	if kind == "" {
		kind = "unknown"
	}
	m.metrics.WebhookDeliveries.WithLabelValues(kind, outcome).Inc()
	m.metrics.WebhookDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
