package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	catalogx "github.com/demostore/cod-agent/agent/catalog"
	contractx "github.com/demostore/cod-agent/agent/contract"
	orderx "github.com/demostore/cod-agent/agent/order"
	pricingx "github.com/demostore/cod-agent/agent/pricing"
	statex "github.com/demostore/cod-agent/agent/state"
)

// Outcome is what executing one proposed intent produced: a reply
// fragment to append to the collaborator's message, and the order id
// when a checkout completed.
type Outcome struct {
	Fragment string
	OrderID  string
}

// Executor is the state machine core. It takes the untrusted proposed
// intent, guards it against the session's current state, applies the
// resulting mutation (or none) and renders the reply fragment for the
// action. All failures that are the customer's to fix become reply
// text; only persistence failures surface as errors.
type Executor struct {
	catalog   contractx.CatalogStore
	finalizer *orderx.Finalizer
	pricing   pricingx.Config
	now       func() time.Time
}

func NewExecutor(catalog contractx.CatalogStore, finalizer *orderx.Finalizer, pricing pricingx.Config) (*Executor, error) {
	if catalog == nil {
		return nil, errors.New("catalog store is required")
	}
	if finalizer == nil {
		return nil, errors.New("order finalizer is required")
	}
	return &Executor{
		catalog:   catalog,
		finalizer: finalizer,
		pricing:   pricing,
		now:       time.Now,
	}, nil
}

// Execute applies one validated action to the session. The returned
// error is non-nil only for persistence failures; in that case the
// session was not mutated and the caller should apologize and keep the
// session for retry.
func (e *Executor) Execute(ctx context.Context, sess *statex.Session, in contractx.ProposedIntent) (Outcome, error) {
	if sess == nil {
		return Outcome{}, fmt.Errorf("%w: nil session", contractx.ErrValidation)
	}

	switch in.Action {
	case contractx.ActionNone:
		return Outcome{}, nil
	case contractx.ActionShowProducts:
		return e.showProducts(ctx, sess, in.Payload)
	case contractx.ActionShowCategories:
		return e.showCategories(ctx, sess)
	case contractx.ActionAddToCart:
		return e.addToCart(ctx, sess, in.Payload)
	case contractx.ActionRemoveFromCart:
		return e.removeFromCart(sess, in.Payload)
	case contractx.ActionCheckout:
		return e.checkout(sess)
	case contractx.ActionCollectInfo:
		return e.collectInfo(sess, in.Payload)
	case contractx.ActionConfirmOrder:
		return e.confirmOrder(sess)
	case contractx.ActionCompleteOrder:
		return e.completeOrder(ctx, sess, in.Payload)
	default:
		// Parse already normalizes unknown kinds; treat anything that
		// slips through as a no-op.
		log.Warn().Str("action", string(in.Action)).Msg("unknown action kind ignored")
		return Outcome{}, nil
	}
}

func (e *Executor) showProducts(ctx context.Context, sess *statex.Session, p contractx.ActionPayload) (Outcome, error) {
	var (
		products []catalogx.Product
		err      error
	)
	if p.Category != "" {
		products, err = e.catalog.ByCategory(ctx, p.Category)
	} else {
		products, err = e.catalog.Active(ctx)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
	}
	if len(products) == 0 {
		// Informational only; the state does not move.
		return Outcome{Fragment: "\n\nNo products found there. Ask me for our categories!"}, nil
	}

	sess.State = statex.StateBrowsing
	return Outcome{Fragment: "\n\n" + catalogx.FormatListing(products, e.pricing.Currency)}, nil
}

func (e *Executor) showCategories(ctx context.Context, sess *statex.Session) (Outcome, error) {
	categories, err := e.catalog.Categories(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
	}
	if len(categories) == 0 {
		return Outcome{Fragment: "\n\nNo categories available right now."}, nil
	}

	sess.State = statex.StateBrowsing
	return Outcome{Fragment: "\n\n" + catalogx.FormatCategories(categories)}, nil
}

func (e *Executor) addToCart(ctx context.Context, sess *statex.Session, p contractx.ActionPayload) (Outcome, error) {
	products, err := e.catalog.Active(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
	}

	product, err := catalogx.Resolve(p.ProductRef, products)
	if err != nil {
		// Reply only; the cart must not change on an unresolved ref.
		return Outcome{Fragment: "\n\nI couldn't find that product. Ask me for the product list!"}, nil
	}

	quantity := p.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if err := sess.AddItem(product.ID, product.Name, product.Price, quantity, p.Color); err != nil {
		return Outcome{Fragment: "\n\nThat quantity doesn't look right, tell me how many you want."}, nil
	}

	sess.State = statex.StateCart
	sess.LastViewedProduct = product.ID
	return Outcome{
		Fragment: fmt.Sprintf("\n\n%s added to your cart!\n\nYour cart:\n%s",
			product.Name, sess.CartSummary(e.pricing.Currency)),
	}, nil
}

func (e *Executor) removeFromCart(sess *statex.Session, p contractx.ActionPayload) (Outcome, error) {
	if p.ProductRef == "" {
		return Outcome{}, nil
	}
	target := ""
	for _, line := range sess.Cart {
		if strings.HasPrefix(line.ProductID, p.ProductRef) ||
			strings.Contains(strings.ToLower(line.Name), strings.ToLower(p.ProductRef)) {
			target = line.ProductID
			break
		}
	}
	if target == "" {
		return Outcome{Fragment: "\n\nThat product isn't in your cart."}, nil
	}

	sess.RemoveItem(target)
	if len(sess.Cart) == 0 {
		sess.State = statex.StateBrowsing
		return Outcome{Fragment: "\n\nRemoved. Your cart is now empty."}, nil
	}
	return Outcome{Fragment: "\n\nRemoved!\n\nYour cart:\n" + sess.CartSummary(e.pricing.Currency)}, nil
}

func (e *Executor) checkout(sess *statex.Session) (Outcome, error) {
	if len(sess.Cart) == 0 {
		// IncompleteCheckout: reply flags the empty cart, no state move.
		return Outcome{Fragment: "\n\nYour cart is empty! Add a product before checking out."}, nil
	}
	sess.State = sess.NextCollectState()
	if sess.State == statex.StateConfirmingOrder {
		sess.EnterConfirmation(e.now())
		return Outcome{Fragment: e.orderSummary(sess)}, nil
	}
	return Outcome{}, nil
}

func (e *Executor) collectInfo(sess *statex.Session, p contractx.ActionPayload) (Outcome, error) {
	switch sess.State {
	case statex.StateCollectingName, statex.StateCollectingAddress,
		statex.StateCollectingCity, statex.StateCollectingPhone:
	default:
		log.Debug().
			Str("state", string(sess.State)).
			Msg("collect_info outside collection flow ignored")
		return Outcome{}, nil
	}

	if !sess.SetField(p.Field, p.Value) {
		// Missing or empty value: nothing stored, state unchanged.
		return Outcome{}, nil
	}

	// Whatever field arrived, the flow advances to the next uncollected
	// step in the fixed name -> address -> city order.
	next := sess.NextCollectState()
	if next == statex.StateConfirmingOrder {
		sess.EnterConfirmation(e.now())
		return Outcome{Fragment: e.orderSummary(sess)}, nil
	}
	sess.State = next
	return Outcome{}, nil
}

func (e *Executor) confirmOrder(sess *statex.Session) (Outcome, error) {
	sess.EnterConfirmation(e.now())
	return Outcome{Fragment: e.orderSummary(sess)}, nil
}

func (e *Executor) completeOrder(ctx context.Context, sess *statex.Session, p contractx.ActionPayload) (Outcome, error) {
	if sess.State != statex.StateConfirmingOrder {
		// InvalidTransition: ignored, logged, no mutation.
		log.Warn().
			Str("address", sess.Address).
			Str("state", string(sess.State)).
			Msg("complete_order outside confirmation ignored")
		return Outcome{}, nil
	}

	if !p.Confirmed {
		sess.DeclineConfirmation(e.now())
		return Outcome{Fragment: "\n\nNo problem! Tell me what you'd like to change."}, nil
	}

	receipt, err := e.finalizer.Finalize(ctx, sess)
	switch {
	case err == nil:
	case errors.Is(err, orderx.ErrEmptyCart):
		return Outcome{Fragment: "\n\nYour cart is empty! Add a product before confirming."}, nil
	case errors.Is(err, orderx.ErrMissingFields):
		return Outcome{Fragment: "\n\nI still need some details:" + missingFieldsText(sess)}, nil
	case errors.Is(err, orderx.ErrAlreadyPlaced):
		return Outcome{Fragment: "\n\nYour order is already placed, no need to confirm again!"}, nil
	default:
		return Outcome{}, err
	}

	orderRef := receipt.OrderID
	if len(orderRef) > 8 {
		orderRef = orderRef[:8]
	}
	fragment := fmt.Sprintf(
		"\n\nORDER CONFIRMED!\n\nOrder number: %s\nTotal: %s %s (Cash on Delivery)\n\nWe'll contact you soon to confirm delivery. Thank you!",
		orderRef, statex.FormatAmount(receipt.Total), e.pricing.Currency)
	return Outcome{Fragment: fragment, OrderID: receipt.OrderID}, nil
}

// orderSummary renders the confirmation recap: cart, delivery fee,
// final total and collected fields with missing ones flagged.
func (e *Executor) orderSummary(sess *statex.Session) string {
	subtotal := sess.CartTotal()
	fee := e.pricing.Fee(subtotal)
	total := subtotal + fee

	deliveryLine := fmt.Sprintf("%s %s", statex.FormatAmount(fee), e.pricing.Currency)
	if fee == 0 {
		deliveryLine = "FREE!"
	}

	var b strings.Builder
	b.WriteString("\n\nORDER SUMMARY\n\nProducts:\n")
	b.WriteString(sess.CartSummary(e.pricing.Currency))
	fmt.Fprintf(&b, "\n\nDelivery: %s", deliveryLine)
	fmt.Fprintf(&b, "\nFINAL TOTAL: %s %s", statex.FormatAmount(total), e.pricing.Currency)
	b.WriteString("\n\nYour details:")
	fmt.Fprintf(&b, "\n- Name: %s", orMissing(sess.CustomerName))
	fmt.Fprintf(&b, "\n- Address: %s", orMissing(sess.AddressLine))
	fmt.Fprintf(&b, "\n- City: %s", orMissing(sess.City))
	fmt.Fprintf(&b, "\n- Phone: %s", sess.Address)
	b.WriteString("\n\nSay \"yes\" to confirm, or tell me what to change.")
	return b.String()
}

func missingFieldsText(sess *statex.Session) string {
	var b strings.Builder
	for _, field := range sess.MissingFields() {
		b.WriteString(" " + field)
	}
	return b.String()
}

func orMissing(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(missing)"
	}
	return v
}
