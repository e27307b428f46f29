package correlation

import "errors"

var (
	ErrInvalidKey       = errors.New("invalid correlation key")
	ErrInvalidCycle     = errors.New("invalid billing cycle")
	ErrInvalidSignature = errors.New("correlation key signature mismatch")
	ErrMissingSecret    = errors.New("correlation secret is required")
	ErrDelimiterInID    = errors.New("identifier contains the key delimiter")
)
