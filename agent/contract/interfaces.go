package contract

import (
	"context"

	catalogx "github.com/demostore/cod-agent/agent/catalog"
)

// Generator is the language-generation collaborator. It returns the
// raw completion text; parsing and validation happen on our side
// because the output is untrusted.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// CatalogStore is the read-only product catalog. Implementations
// return active, in-stock products ordered by category then name.
type CatalogStore interface {
	Active(ctx context.Context) ([]catalogx.Product, error)
	ByCategory(ctx context.Context, category string) ([]catalogx.Product, error)
	Search(ctx context.Context, query string) ([]catalogx.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// OrderStore persists completed orders. CreateOrder must be called at
// most once per finalized checkout and returns the order identifier.
type OrderStore interface {
	CreateOrder(ctx context.Context, req OrderRequest) (string, error)
}

// Sender delivers an outbound reply through the message-transport
// bridge. Delivery failure is reported to the caller, never retried
// here.
type Sender interface {
	SendText(ctx context.Context, to string, body string) error
}
