package catalog

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// Product is one catalog entry. The agent only ever reads catalog
// data; all writes happen through the storefront admin, which is not
// part of this service.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID             string   `bun:"id,pk" json:"id"`
	Name           string   `bun:"name" json:"name"`
	Price          float64  `bun:"price" json:"price"`
	CompareAtPrice *float64 `bun:"compare_at_price" json:"compare_at_price,omitempty"`
	Description    string   `bun:"description" json:"description,omitempty"`
	Category       string   `bun:"category" json:"category"`
	Stock          int      `bun:"stock" json:"stock"`
	IsFreeShipping bool     `bun:"is_free_shipping" json:"is_free_shipping"`
	Colors         []string `bun:"colors,array" json:"colors,omitempty"`
	Status         string   `bun:"status" json:"status"`
}

// OnPromo reports whether the product has a higher compare-at price.
func (p Product) OnPromo() bool {
	return p.CompareAtPrice != nil && *p.CompareAtPrice > p.Price
}

const listingLimit = 10

// FormatListing renders up to ten products the way they are shown to a
// customer, with promo and free-shipping callouts.
func FormatListing(products []Product, currency string) string {
	if len(products) == 0 {
		return "No products available right now."
	}
	var b strings.Builder
	b.WriteString("Available products:\n")
	for i, p := range products {
		if i == listingLimit {
			break
		}
		promo := ""
		if p.OnPromo() {
			promo = fmt.Sprintf(" (was %g %s - PROMO)", *p.CompareAtPrice, currency)
		}
		shipping := ""
		if p.IsFreeShipping {
			shipping = " | free shipping"
		}
		fmt.Fprintf(&b, "%d. %s - %g %s%s%s\n", i+1, p.Name, p.Price, currency, promo, shipping)
	}
	b.WriteString("\nTell me the number or the name of the product you want.")
	return b.String()
}

// FormatPromptCatalog renders the catalog for the collaborator prompt,
// including the truncated ids it is expected to echo back.
func FormatPromptCatalog(products []Product, currency string) string {
	if len(products) == 0 {
		return "No products in stock."
	}
	var b strings.Builder
	for _, p := range products {
		promo := ""
		if p.OnPromo() {
			promo = fmt.Sprintf(" (was %g %s - PROMO)", *p.CompareAtPrice, currency)
		}
		colors := ""
		if len(p.Colors) > 0 {
			colors = " | colors: " + strings.Join(p.Colors, ", ")
		}
		shipping := ""
		if p.IsFreeShipping {
			shipping = " | FREE SHIPPING"
		}
		id := p.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&b, "- [%s] %s - %g %s%s%s%s\n", id, p.Name, p.Price, currency, promo, colors, shipping)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatCategories renders the distinct category listing for a reply.
func FormatCategories(categories []string) string {
	if len(categories) == 0 {
		return "No categories available right now."
	}
	var b strings.Builder
	b.WriteString("Our categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return strings.TrimRight(b.String(), "\n")
}
