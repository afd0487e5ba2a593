package catalog

import (
	"errors"
	"strings"
)

var ErrProductNotFound = errors.New("product not found")

// Resolve maps a loose product reference (a truncated id or a name
// fragment) to exactly one catalog entry. Each product is tested in
// catalog order for an id-prefix match or a case-insensitive substring
// match on the name, and the first hit wins.
//
// The policy is deliberately permissive and keeps the historical
// first-match behavior on ambiguous input; it does not try to
// disambiguate.
func Resolve(ref string, products []Product) (Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Product{}, ErrProductNotFound
	}

	needle := strings.ToLower(ref)
	for _, p := range products {
		if strings.HasPrefix(p.ID, ref) ||
			strings.Contains(strings.ToLower(p.Name), needle) {
			return p, nil
		}
	}

	return Product{}, ErrProductNotFound
}
