package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/paygate/pkg/correlation"
	"github.com/dmitrymomot/paygate/pkg/mercadopago"
	"github.com/dmitrymomot/paygate/pkg/subscription"
)

// Plain-text webhook responses.
const (
	msgOK               = "OK"
	msgMissingSignature = "Missing signature"
	msgInvalidSignature = "Invalid signature"
	msgInvalidJSON      = "Invalid JSON: "
	msgInvalidPayload   = "Invalid notification payload"
	msgBodyTooLarge     = "Payload too large"
	msgReadBody         = "Failed to read body"
)

// statusFor maps domain errors to HTTP status codes: bad input is 4xx,
// unknown references are 404, provider and storage failures are 500.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, mercadopago.ErrMissingSignature),
		errors.Is(err, mercadopago.ErrMalformedSignature),
		errors.Is(err, mercadopago.ErrInvalidSignature),
		errors.Is(err, mercadopago.ErrSignatureExpired),
		errors.Is(err, mercadopago.ErrInvalidPayload),
		errors.Is(err, subscription.ErrInvalidReference),
		errors.Is(err, correlation.ErrInvalidKey),
		errors.Is(err, subscription.ErrMissingProviderID),
		errors.Is(err, subscription.ErrMissingUserID),
		errors.Is(err, subscription.ErrInvalidCycle),
		errors.Is(err, subscription.ErrInvalidPrice),
		errors.Is(err, subscription.ErrPlanInactive):
		return http.StatusBadRequest
	case errors.Is(err, subscription.ErrUserNotFound),
		errors.Is(err, subscription.ErrPlanNotFound),
		errors.Is(err, subscription.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, subscription.ErrActiveConflict),
		errors.Is(err, subscription.ErrAlreadySubscribed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage never leaks provider or storage details.
func publicMessage(err error) string {
	switch statusFor(err) {
	case http.StatusInternalServerError:
		return "Internal error"
	case http.StatusNotFound:
		switch {
		case errors.Is(err, subscription.ErrUserNotFound):
			return "User not found"
		case errors.Is(err, subscription.ErrPlanNotFound):
			return "Plan not found"
		default:
			return "Subscription not found"
		}
	}
	switch {
	case errors.Is(err, subscription.ErrInvalidReference), errors.Is(err, correlation.ErrInvalidKey):
		return "Invalid external reference"
	case errors.Is(err, subscription.ErrInvalidPrice):
		return "El plan seleccionado no tiene precio para este ciclo"
	case errors.Is(err, subscription.ErrPlanInactive):
		return "El plan seleccionado no esta disponible"
	case errors.Is(err, subscription.ErrInvalidCycle):
		return "Ciclo de facturacion invalido"
	}
	return err.Error()
}
