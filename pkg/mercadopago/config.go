package mercadopago

import "time"

const DefaultBaseURL = "https://api.mercadopago.com"

type Config struct {
	AccessToken   string        `env:"MERCADOPAGO_ACCESS_TOKEN,required"`
	WebhookSecret string        `env:"MERCADOPAGO_WEBHOOK_SECRET,required"`
	BaseURL       string        `env:"MERCADOPAGO_API_URL" envDefault:"https://api.mercadopago.com"`
	Timeout       time.Duration `env:"MERCADOPAGO_TIMEOUT" envDefault:"10s"`
	RetryMax      int           `env:"MERCADOPAGO_RETRY_MAX" envDefault:"3"`

	// SignatureTolerance bounds the age of x-signature timestamps. Zero disables the check.
	SignatureTolerance time.Duration `env:"MERCADOPAGO_SIGNATURE_TOLERANCE" envDefault:"0s"`

	Sandbox          bool   `env:"MERCADOPAGO_SANDBOX" envDefault:"false"`
	Currency         string `env:"MERCADOPAGO_CURRENCY" envDefault:"COP"`
	TestPayerEmail   string `env:"MERCADOPAGO_TEST_PAYER_EMAIL"`
	SubscriptionsURL string `env:"MERCADOPAGO_SUBSCRIPTIONS_URL" envDefault:"https://www.mercadopago.com.co/subscriptions"`
}
