package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker/v2"
)

const maxResponseBody = 1 << 20

// Client talks to the preapproval API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[[]byte]
	log         *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
	log        *slog.Logger
	breaker    *gobreaker.Settings
}

// WithHTTPClient replaces the retrying transport. Useful in tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) { o.baseURL = u }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.log = l }
}

// WithBreakerSettings overrides the circuit breaker settings.
func WithBreakerSettings(s gobreaker.Settings) ClientOption {
	return func(o *clientOptions) { o.breaker = &s }
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}

	o := &clientOptions{baseURL: cfg.BaseURL, log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.baseURL == "" {
		o.baseURL = DefaultBaseURL
	}

	httpClient := o.httpClient
	if httpClient == nil {
		rc := retryablehttp.NewClient()
		rc.RetryMax = cfg.RetryMax
		rc.RetryWaitMin = 200 * time.Millisecond
		rc.RetryWaitMax = 2 * time.Second
		rc.Logger = o.log.With(slog.String("component", "mercadopago.http"))
		// Return the last response instead of a generic "giving up" error so
		// the status code reaches the caller.
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		httpClient = rc.StandardClient()
		if cfg.Timeout > 0 {
			httpClient.Timeout = cfg.Timeout
		}
	}

	settings := gobreaker.Settings{
		Name:    "mercadopago",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	}
	if o.breaker != nil {
		settings = *o.breaker
	}
	log := o.log
	settings.IsSuccessful = isBreakerSuccess
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("circuit breaker state changed",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}

	return &Client{
		baseURL:     strings.TrimRight(o.baseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  httpClient,
		breaker:     gobreaker.NewCircuitBreaker[[]byte](settings),
		log:         log,
	}, nil
}

// GetPreapproval fetches the current state of a provider subscription.
func (c *Client) GetPreapproval(ctx context.Context, id string) (*Preapproval, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}

	var p Preapproval
	if err := c.do(ctx, http.MethodGet, "/preapproval/"+url.PathEscape(id), nil, "", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type createPreapprovalBody struct {
	BackURL           string               `json:"back_url"`
	Reason            string               `json:"reason"`
	ExternalReference string               `json:"external_reference"`
	PayerEmail        string               `json:"payer_email"`
	Status            string               `json:"status"`
	NotificationURL   string               `json:"notification_url,omitempty"`
	AutoRecurring     autoRecurringPayload `json:"auto_recurring"`
}

type autoRecurringPayload struct {
	Frequency         int         `json:"frequency"`
	FrequencyType     string      `json:"frequency_type"`
	TransactionAmount json.Number `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
}

// CreatePreapproval creates a pending subscription and returns it with its
// checkout URLs.
func (c *Client) CreatePreapproval(ctx context.Context, req CreatePreapprovalRequest) (*Preapproval, error) {
	freqType := req.FrequencyType
	if freqType == "" {
		freqType = FrequencyMonths
	}
	body := createPreapprovalBody{
		BackURL:           req.BackURL,
		Reason:            req.Reason,
		ExternalReference: req.ExternalReference,
		PayerEmail:        req.PayerEmail,
		Status:            StatusPending,
		NotificationURL:   req.NotificationURL,
		AutoRecurring: autoRecurringPayload{
			Frequency:         req.Frequency,
			FrequencyType:     freqType,
			TransactionAmount: json.Number(req.Amount.String()),
			CurrencyID:        req.CurrencyID,
		},
	}

	idemKey := req.IdempotencyKey
	if idemKey == "" {
		idemKey = uuid.NewString()
	}

	var p Preapproval
	if err := c.do(ctx, http.MethodPost, "/preapproval", body, idemKey, &p); err != nil {
		return nil, err
	}
	if p.InitPoint == "" && p.SandboxInitPoint == "" {
		return &p, ErrMissingCheckoutURL
	}
	return &p, nil
}

type updateStatusBody struct {
	Status string `json:"status"`
}

// CancelPreapproval stops future charges of a provider subscription.
// Cancelling an already cancelled preapproval succeeds.
func (c *Client) CancelPreapproval(ctx context.Context, id string) (*Preapproval, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}

	var p Preapproval
	body := updateStatusBody{Status: StatusCancelled}
	if err := c.do(ctx, http.MethodPut, "/preapproval/"+url.PathEscape(id), body, "", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, idemKey string, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return errors.Join(ErrRequestFailed, err)
		}
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, errors.Join(ErrRequestFailed, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idemKey != "" {
			req.Header.Set("X-Idempotency-Key", idemKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, errors.Join(ErrRequestFailed, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, errors.Join(ErrRequestFailed, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, newAPIError(resp.StatusCode, raw)
		}
		return raw, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrUnavailable, err)
	}
	if err != nil {
		c.log.WarnContext(ctx, "mercadopago request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err),
		)
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Join(ErrDecodeResponse, err)
		}
	}
	return nil
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{}
	_ = json.Unmarshal(raw, apiErr)
	apiErr.StatusCode = status
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// isBreakerSuccess treats client errors as healthy provider responses.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return errors.Is(err, context.Canceled)
}
