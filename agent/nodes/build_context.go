package nodes

import (
	"context"
	"fmt"
	"strings"

	catalogx "github.com/demostore/cod-agent/agent/catalog"
	contractx "github.com/demostore/cod-agent/agent/contract"
)

// BuildContext assembles the context snapshot the collaborator sees:
// conversation state, cart summary, collected fields, recent history
// and the current catalog listing.
func BuildContext(ctx context.Context, in *GraphState, catalog contractx.CatalogStore, currency string) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	products, err := catalog.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load catalog: %v", contractx.ErrPersistence, err)
	}
	categories, err := catalog.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load categories: %v", contractx.ErrPersistence, err)
	}

	sess := in.Session
	in.Products = products
	in.GenReq = contractx.GenerationRequest{
		Message:        in.Text,
		State:          string(sess.State),
		CartSummary:    sess.CartSummary(currency),
		CartTotal:      sess.CartTotal(),
		CartItems:      len(sess.Cart),
		CustomerName:   sess.CustomerName,
		AddressLine:    sess.AddressLine,
		City:           sess.City,
		Phone:          sess.Address,
		CatalogListing: catalogx.FormatPromptCatalog(products, currency),
		Categories:     strings.Join(categories, ", "),
		History:        sess.RecentHistory(10),
	}
	return in, nil
}
