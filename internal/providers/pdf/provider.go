package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Provider renders printable documents.
type Provider interface {
	GenerateOrderReceipt(ctx context.Context, data OrderReceipt) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(func() Provider { return NewMaroto() }),
)

// MarotoProvider renders A4 documents with maroto.
type MarotoProvider struct{}

func NewMaroto() *MarotoProvider {
	return &MarotoProvider{}
}
