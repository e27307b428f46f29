package correlation

import (
	"errors"
	"fmt"
	"strings"
)

// BillingCycle is the billing period chosen at checkout.
type BillingCycle string

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

// ParseCycle validates s. An empty string yields Monthly.
func ParseCycle(s string) (BillingCycle, error) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(s))) {
	case "", Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCycle, s)
	}
}

func (c BillingCycle) Valid() bool {
	return c == Monthly || c == Yearly
}

// Key identifies who subscribed to what.
type Key struct {
	UserID string       `json:"u"`
	PlanID string       `json:"p"`
	Cycle  BillingCycle `json:"c"`
}

func (k Key) validate() error {
	if k.UserID == "" || k.PlanID == "" {
		return ErrInvalidKey
	}
	if !k.Cycle.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCycle, k.Cycle)
	}
	return nil
}

const delimiter = "|"

// Decode parses the legacy "userId|planId|billingCycle" form. The cycle part is
// optional and defaults to monthly.
func Decode(raw string) (Key, error) {
	parts := strings.Split(raw, delimiter)
	if len(parts) < 2 || len(parts) > 3 {
		return Key{}, fmt.Errorf("%w: expected 2 or 3 parts, got %d", ErrInvalidKey, len(parts))
	}

	k := Key{UserID: parts[0], PlanID: parts[1], Cycle: Monthly}
	if k.UserID == "" || k.PlanID == "" {
		return Key{}, fmt.Errorf("%w: user id and plan id are required", ErrInvalidKey)
	}
	if len(parts) == 3 {
		cycle, err := ParseCycle(parts[2])
		if err != nil {
			return Key{}, err
		}
		k.Cycle = cycle
	}
	return k, nil
}

// EncodeLegacy renders k in the delimited form.
func EncodeLegacy(k Key) (string, error) {
	if k.Cycle == "" {
		k.Cycle = Monthly
	}
	if err := k.validate(); err != nil {
		return "", err
	}
	if strings.Contains(k.UserID, delimiter) || strings.Contains(k.PlanID, delimiter) {
		return "", errors.Join(ErrInvalidKey, ErrDelimiterInID)
	}
	return k.UserID + delimiter + k.PlanID + delimiter + string(k.Cycle), nil
}
