package mercadopago

import (
	"time"

	"github.com/shopspring/decimal"
)

// Preapproval statuses as reported by the provider.
const (
	StatusPending    = "pending"
	StatusAuthorized = "authorized"
	StatusPaused     = "paused"
	StatusCancelled  = "cancelled"
)

const FrequencyMonths = "months"

type AutoRecurring struct {
	Frequency         int             `json:"frequency"`
	FrequencyType     string          `json:"frequency_type"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	StartDate         *time.Time      `json:"start_date,omitempty"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
}

// Preapproval is a provider subscription.
type Preapproval struct {
	ID                string        `json:"id"`
	PayerID           int64         `json:"payer_id,omitempty"`
	PayerEmail        string        `json:"payer_email,omitempty"`
	Status            string        `json:"status"`
	Reason            string        `json:"reason,omitempty"`
	ExternalReference string        `json:"external_reference"`
	InitPoint         string        `json:"init_point,omitempty"`
	SandboxInitPoint  string        `json:"sandbox_init_point,omitempty"`
	BackURL           string        `json:"back_url,omitempty"`
	DateCreated       *time.Time    `json:"date_created,omitempty"`
	LastModified      *time.Time    `json:"last_modified,omitempty"`
	NextPaymentDate   *time.Time    `json:"next_payment_date,omitempty"`
	AutoRecurring     AutoRecurring `json:"auto_recurring"`
}

// CheckoutURL picks the sandbox or live payment page. It falls back to the
// other one when the preferred URL is empty.
func (p *Preapproval) CheckoutURL(sandbox bool) string {
	if sandbox && p.SandboxInitPoint != "" {
		return p.SandboxInitPoint
	}
	if p.InitPoint != "" {
		return p.InitPoint
	}
	return p.SandboxInitPoint
}

// CreatePreapprovalRequest starts a pending subscription checkout.
type CreatePreapprovalRequest struct {
	BackURL           string
	Reason            string
	ExternalReference string
	PayerEmail        string
	NotificationURL   string
	Frequency         int
	FrequencyType     string
	Amount            decimal.Decimal
	CurrencyID        string
	// IdempotencyKey is sent as X-Idempotency-Key so transport retries never
	// create a second preapproval.
	IdempotencyKey string
}
