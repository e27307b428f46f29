package mercadopago

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAccessToken = errors.New("mercadopago: access token is required")
	ErrMissingID          = errors.New("mercadopago: preapproval id is required")
	ErrNotFound           = errors.New("mercadopago: resource not found")
	ErrUnexpectedStatus   = errors.New("mercadopago: unexpected response status")
	ErrUnavailable        = errors.New("mercadopago: provider unavailable")
	ErrRequestFailed      = errors.New("mercadopago: request failed")
	ErrDecodeResponse     = errors.New("mercadopago: failed to decode response")
	ErrMissingCheckoutURL = errors.New("mercadopago: no checkout url returned")

	ErrInvalidPayload     = errors.New("mercadopago: invalid notification payload")
	ErrMissingSignature   = errors.New("mercadopago: missing signature")
	ErrMalformedSignature = errors.New("mercadopago: malformed signature header")
	ErrInvalidSignature   = errors.New("mercadopago: invalid signature")
	ErrSignatureExpired   = errors.New("mercadopago: signature timestamp outside tolerance")
)

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int    `json:"status"`
	Message    string `json:"message"`
	Code       string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
}

// Unwrap lets errors.Is match ErrNotFound and ErrUnexpectedStatus.
func (e *APIError) Unwrap() []error {
	if e.StatusCode == 404 {
		return []error{ErrNotFound, ErrUnexpectedStatus}
	}
	return []error{ErrUnexpectedStatus}
}
