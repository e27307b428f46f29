package billing

// Config holds the HTTP-facing billing settings.
type Config struct {
	AppURL      string `env:"APP_URL,required"`
	PricingPath string `env:"BILLING_PRICING_PATH" envDefault:"/pricing"`
	WebhookPath string `env:"BILLING_WEBHOOK_PATH" envDefault:"/api/webhooks/mercadopago"`
	// PortalURL is the provider page listing a payer's subscription, the
	// preapproval id is appended as the last path segment.
	PortalURL string `env:"BILLING_PORTAL_URL" envDefault:"https://www.mercadopago.com.co/subscriptions/details"`
	// AdminToken protects /billing/admin. Empty disables the admin routes.
	AdminToken string `env:"ADMIN_API_TOKEN"`
	// MaxBodyBytes caps webhook payloads.
	MaxBodyBytes int64 `env:"BILLING_WEBHOOK_MAX_BODY" envDefault:"65536"`
	// ExpiringDays is the admin listing default.
	ExpiringDays int `env:"BILLING_EXPIRING_DAYS" envDefault:"7"`
}

func (c Config) withDefaults() Config {
	if c.PricingPath == "" {
		c.PricingPath = "/pricing"
	}
	if c.WebhookPath == "" {
		c.WebhookPath = "/api/webhooks/mercadopago"
	}
	if c.PortalURL == "" {
		c.PortalURL = "https://www.mercadopago.com.co/subscriptions/details"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 10
	}
	if c.ExpiringDays <= 0 {
		c.ExpiringDays = 7
	}
	return c
}
