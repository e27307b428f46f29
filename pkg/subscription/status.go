package subscription

import (
	"strings"

	"github.com/dmitrymomot/paygate/pkg/mercadopago"
)

// MapProviderStatus maps a preapproval status to a local Status. Unknown
// statuses map to PENDING so access is never granted by accident.
func MapProviderStatus(status string) Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case mercadopago.StatusAuthorized:
		return StatusActive
	case mercadopago.StatusCancelled, "canceled":
		return StatusCancelled
	default:
		return StatusPending
	}
}
