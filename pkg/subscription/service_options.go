package subscription

import (
	"log/slog"
	"strings"
	"time"
)

// CheckoutConfig controls preapproval creation.
type CheckoutConfig struct {
	// AppURL is the public base URL, e.g. https://app.example.com.
	AppURL string
	// BackPath is where the provider sends the payer back to.
	BackPath string
	// NotificationPath is appended to AppURL for the webhook notification_url.
	// Empty means the account-level webhook setting is used.
	NotificationPath string
	Currency         string
	Sandbox          bool
	// TestPayerEmail replaces the payer e-mail, for provider test accounts.
	TestPayerEmail string
	// SubscriptionsURL is the provider page where payers manage subscriptions.
	SubscriptionsURL string
}

func (c CheckoutConfig) backURL() string {
	return strings.TrimRight(c.AppURL, "/") + c.BackPath
}

func (c CheckoutConfig) notificationURL() string {
	if c.NotificationPath == "" || c.AppURL == "" {
		return ""
	}
	return strings.TrimRight(c.AppURL, "/") + c.NotificationPath
}

func defaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		BackPath:         "/pricing",
		Currency:         "COP",
		SubscriptionsURL: "https://www.mercadopago.com.co/subscriptions",
	}
}

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLocker replaces the in-process locker, e.g. with a Redis lock so that
// several replicas serialise deliveries for the same subscription.
func WithLocker(l Locker, ttl time.Duration) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.locker = l
		}
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithDeduper enables redelivery suppression by notification identity.
func WithDeduper(d Deduper) ServiceOption {
	return func(s *service) { s.deduper = d }
}

func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCheckoutConfig sets checkout parameters. Empty fields keep defaults.
func WithCheckoutConfig(cfg CheckoutConfig) ServiceOption {
	return func(s *service) {
		def := defaultCheckoutConfig()
		if cfg.BackPath == "" {
			cfg.BackPath = def.BackPath
		}
		if cfg.Currency == "" {
			cfg.Currency = def.Currency
		}
		if cfg.SubscriptionsURL == "" {
			cfg.SubscriptionsURL = def.SubscriptionsURL
		}
		s.checkout = cfg
	}
}
