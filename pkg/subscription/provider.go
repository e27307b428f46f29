package subscription

import (
	"context"

	"github.com/dmitrymomot/paygate/pkg/correlation"
	"github.com/dmitrymomot/paygate/pkg/mercadopago"
)

// Provider is the part of the MercadoPago API the service uses.
// *mercadopago.Client satisfies it.
type Provider interface {
	GetPreapproval(ctx context.Context, id string) (*mercadopago.Preapproval, error)
	CreatePreapproval(ctx context.Context, req mercadopago.CreatePreapprovalRequest) (*mercadopago.Preapproval, error)
	CancelPreapproval(ctx context.Context, id string) (*mercadopago.Preapproval, error)
}

// KeyCodec encodes the correlation key carried as external_reference.
// *correlation.Codec satisfies it.
type KeyCodec interface {
	Encode(k correlation.Key) (string, error)
	Decode(raw string) (correlation.Key, error)
}
