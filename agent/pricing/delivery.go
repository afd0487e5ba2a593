// Package pricing computes delivery fees for cash-on-delivery orders.
package pricing

// Config holds the store's delivery pricing knobs.
type Config struct {
	FlatFee       float64 `envconfig:"FLAT_FEE" split_words:"true" default:"30"`
	FreeThreshold float64 `envconfig:"FREE_THRESHOLD" split_words:"true" default:"500"`
	Currency      string  `envconfig:"CURRENCY" split_words:"true" default:"DH"`
}

// DeliveryFee returns the flat fee, waived when the cart total reaches
// the free-delivery threshold. The comparison is inclusive: a total
// exactly at the threshold ships free.
func DeliveryFee(cartTotal, flatFee, freeThreshold float64) float64 {
	if cartTotal >= freeThreshold {
		return 0
	}
	return flatFee
}

// Fee applies the configured flat fee and threshold.
func (c Config) Fee(cartTotal float64) float64 {
	return DeliveryFee(cartTotal, c.FlatFee, c.FreeThreshold)
}
