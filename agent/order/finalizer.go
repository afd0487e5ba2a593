package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/demostore/cod-agent/agent/contract"
	pricingx "github.com/demostore/cod-agent/agent/pricing"
	statex "github.com/demostore/cod-agent/agent/state"
)

var (
	ErrNotConfirming = fmt.Errorf("%w: session is not awaiting confirmation", contractx.ErrInvalidTransition)
	ErrEmptyCart     = fmt.Errorf("%w: cart is empty", contractx.ErrIncompleteCheckout)
	ErrMissingFields = fmt.Errorf("%w: checkout fields are missing", contractx.ErrIncompleteCheckout)
	ErrAlreadyPlaced = fmt.Errorf("%w: order was already placed for this confirmation", contractx.ErrInvalidTransition)
)

// Receipt is the confirmation payload returned after a successful
// finalization.
type Receipt struct {
	OrderID string
	Total   float64
}

// Finalizer converts a confirmed session into exactly one persisted
// order. On success the cart is cleared and the session parks in
// ORDER_COMPLETE; on failure the session is left untouched so the
// customer can simply confirm again.
type Finalizer struct {
	orders  contractx.OrderStore
	pricing pricingx.Config
	channel string
	now     func() time.Time
}

func NewFinalizer(orders contractx.OrderStore, pricing pricingx.Config, channel string) (*Finalizer, error) {
	if orders == nil {
		return nil, errors.New("order store is required")
	}
	if channel == "" {
		channel = "whatsapp"
	}
	return &Finalizer{
		orders:  orders,
		pricing: pricing,
		channel: channel,
		now:     time.Now,
	}, nil
}

// Finalize validates the session, builds the immutable order snapshot
// and submits it. The confirm token is only cleared when the store
// accepted the order, so a failed submission can be retried, while a
// duplicate confirmation after success hits ErrAlreadyPlaced instead
// of creating a second order.
func (f *Finalizer) Finalize(ctx context.Context, sess *statex.Session) (Receipt, error) {
	if sess == nil {
		return Receipt{}, fmt.Errorf("%w: nil session", contractx.ErrValidation)
	}
	if sess.State != statex.StateConfirmingOrder {
		return Receipt{}, fmt.Errorf("%w: state=%s", ErrNotConfirming, sess.State)
	}
	if len(sess.Cart) == 0 {
		return Receipt{}, ErrEmptyCart
	}
	if missing := sess.MissingFields(); len(missing) > 0 {
		return Receipt{}, fmt.Errorf("%w: %v", ErrMissingFields, missing)
	}
	if sess.ConfirmToken == "" {
		return Receipt{}, ErrAlreadyPlaced
	}

	req := f.buildRequest(sess)

	orderID, err := f.orders.CreateOrder(ctx, req)
	if err != nil {
		// Session and cart stay intact so the customer can retry.
		log.Error().Err(err).Str("address", sess.Address).Msg("order creation failed")
		if errors.Is(err, contractx.ErrPersistence) {
			return Receipt{}, err
		}
		return Receipt{}, fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
	}

	sess.CompleteOrder(f.now())
	log.Info().
		Str("order_id", orderID).
		Str("address", sess.Address).
		Float64("total", req.TotalPrice).
		Msg("order placed")

	return Receipt{OrderID: orderID, Total: req.TotalPrice}, nil
}

func (f *Finalizer) buildRequest(sess *statex.Session) contractx.OrderRequest {
	lines := make([]contractx.OrderLine, 0, len(sess.Cart))
	for _, line := range sess.Cart {
		lines = append(lines, contractx.OrderLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Color:     line.Color,
		})
	}

	subtotal := sess.CartTotal()
	total := subtotal + f.pricing.Fee(subtotal)

	return contractx.OrderRequest{
		CustomerName:  sess.CustomerName,
		CustomerPhone: sess.Address,
		Address:       sess.AddressLine,
		City:          sess.City,
		Lines:         lines,
		TotalPrice:    total,
		SourceChannel: f.channel,
	}
}
