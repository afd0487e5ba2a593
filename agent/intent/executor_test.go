package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	catalogx "github.com/demostore/cod-agent/agent/catalog"
	contractx "github.com/demostore/cod-agent/agent/contract"
	orderx "github.com/demostore/cod-agent/agent/order"
	pricingx "github.com/demostore/cod-agent/agent/pricing"
	statex "github.com/demostore/cod-agent/agent/state"
)

type fakeCatalog struct {
	products []catalogx.Product
	err      error
}

func (f *fakeCatalog) Active(ctx context.Context) ([]catalogx.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) ByCategory(ctx context.Context, category string) ([]catalogx.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []catalogx.Product
	for _, p := range f.products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string) ([]catalogx.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) Categories(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"shoes", "clothing"}, nil
}

type fakeOrders struct {
	err     error
	created []contractx.OrderRequest
}

func (f *fakeOrders) CreateOrder(ctx context.Context, req contractx.OrderRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, req)
	return fmt.Sprintf("a1b2c3d4-order-%d", len(f.created)), nil
}

func executorProducts() []catalogx.Product {
	return []catalogx.Product{
		{ID: "abc12345-0000", Name: "Running Shoes", Price: 300, Category: "shoes", Stock: 5, Status: "active"},
		{ID: "def67890-0000", Name: "Leather Jacket", Price: 450, Category: "clothing", Stock: 2, Status: "active"},
	}
}

func testPricing() pricingx.Config {
	return pricingx.Config{FlatFee: 30, FreeThreshold: 500, Currency: "DH"}
}

func newTestExecutor(t *testing.T, catalog contractx.CatalogStore, orders contractx.OrderStore) *Executor {
	t.Helper()
	finalizer, err := orderx.NewFinalizer(orders, testPricing(), "whatsapp")
	if err != nil {
		t.Fatalf("NewFinalizer: %v", err)
	}
	exec, err := NewExecutor(catalog, finalizer, testPricing())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return exec
}

func newConfirmingSession(t *testing.T) *statex.Session {
	t.Helper()
	now := time.Now().UTC()
	sess := statex.NewSession("212600000001", now)
	if err := sess.AddItem("abc12345-0000", "Running Shoes", 300, 1, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	sess.CustomerName = "Amine"
	sess.AddressLine = "12 Rue Atlas"
	sess.City = "Casablanca"
	sess.EnterConfirmation(now)
	return sess
}

func TestExecuteShowProducts(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action: contractx.ActionShowProducts,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sess.State != statex.StateBrowsing {
		t.Errorf("state = %s, want browsing", sess.State)
	}
	if !strings.Contains(out.Fragment, "Running Shoes") {
		t.Errorf("fragment missing listing: %q", out.Fragment)
	}
}

func TestExecuteShowProductsEmptyCategoryKeepsState(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionShowProducts,
		Payload: contractx.ActionPayload{Category: "toys"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sess.State != statex.StateNew {
		t.Errorf("empty result must not move state, got %s", sess.State)
	}
	if !strings.Contains(out.Fragment, "No products found") {
		t.Errorf("fragment = %q", out.Fragment)
	}
}

func TestExecuteAddToCartUnresolvedLeavesCart(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionAddToCart,
		Payload: contractx.ActionPayload{ProductRef: "nonexistent"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(sess.Cart) != 0 {
		t.Errorf("unresolved ref must not touch the cart: %+v", sess.Cart)
	}
	if sess.State != statex.StateNew {
		t.Errorf("state = %s, want new", sess.State)
	}
	if !strings.Contains(out.Fragment, "couldn't find that product") {
		t.Errorf("fragment = %q", out.Fragment)
	}
}

func TestExecuteAddToCartDefaultsQuantity(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())

	_, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionAddToCart,
		Payload: contractx.ActionPayload{ProductRef: "abc12345"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(sess.Cart) != 1 || sess.Cart[0].Quantity != 1 {
		t.Errorf("zero quantity must default to 1: %+v", sess.Cart)
	}
	if sess.State != statex.StateCart {
		t.Errorf("state = %s, want cart", sess.State)
	}
	if sess.LastViewedProduct != "abc12345-0000" {
		t.Errorf("last viewed = %q", sess.LastViewedProduct)
	}
}

func TestExecuteRemoveFromCart(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	_ = sess.AddItem("abc12345-0000", "Running Shoes", 300, 1, "")
	sess.State = statex.StateCart

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionRemoveFromCart,
		Payload: contractx.ActionPayload{ProductRef: "running"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(sess.Cart) != 0 {
		t.Errorf("cart not emptied: %+v", sess.Cart)
	}
	if sess.State != statex.StateBrowsing {
		t.Errorf("emptied cart must return to browsing, got %s", sess.State)
	}
	if !strings.Contains(out.Fragment, "cart is now empty") {
		t.Errorf("fragment = %q", out.Fragment)
	}
}

func TestExecuteCheckoutEmptyCartRejected(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	sess.State = statex.StateBrowsing

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action: contractx.ActionCheckout,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sess.State != statex.StateBrowsing {
		t.Errorf("empty-cart checkout must not move state, got %s", sess.State)
	}
	if !strings.Contains(out.Fragment, "cart is empty") {
		t.Errorf("fragment = %q", out.Fragment)
	}
}

func TestExecuteCheckoutStartsCollection(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	_ = sess.AddItem("abc12345-0000", "Running Shoes", 300, 1, "")

	if _, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action: contractx.ActionCheckout,
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sess.State != statex.StateCollectingName {
		t.Errorf("state = %s, want collecting_name", sess.State)
	}
}

func TestExecuteCheckoutSkipsCollectedFields(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	_ = sess.AddItem("abc12345-0000", "Running Shoes", 300, 1, "")
	sess.CustomerName = "Amine"

	if _, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action: contractx.ActionCheckout,
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sess.State != statex.StateCollectingAddress {
		t.Errorf("known name must skip to address, got %s", sess.State)
	}
}

func TestExecuteCollectInfoFlow(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	_ = sess.AddItem("abc12345-0000", "Running Shoes", 300, 1, "")
	sess.State = statex.StateCollectingName

	ctx := context.Background()
	steps := []struct {
		field, value string
		wantState    statex.ConversationState
	}{
		{statex.FieldName, "Amine", statex.StateCollectingAddress},
		{statex.FieldAddress, "12 Rue Atlas", statex.StateCollectingCity},
		{statex.FieldCity, "Casablanca", statex.StateConfirmingOrder},
	}
	for _, step := range steps {
		out, err := exec.Execute(ctx, sess, contractx.ProposedIntent{
			Action:  contractx.ActionCollectInfo,
			Payload: contractx.ActionPayload{Field: step.field, Value: step.value},
		})
		if err != nil {
			t.Fatalf("collect %s: %v", step.field, err)
		}
		if sess.State != step.wantState {
			t.Fatalf("after %s: state = %s, want %s", step.field, sess.State, step.wantState)
		}
		if step.wantState == statex.StateConfirmingOrder && !strings.Contains(out.Fragment, "ORDER SUMMARY") {
			t.Errorf("confirmation entry must include the summary: %q", out.Fragment)
		}
	}
	if sess.ConfirmToken == "" {
		t.Error("entering confirmation must mint a confirm token")
	}
}

func TestExecuteCollectInfoOutsideFlowIgnored(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	sess.State = statex.StateBrowsing

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionCollectInfo,
		Payload: contractx.ActionPayload{Field: statex.FieldName, Value: "Amine"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Fragment != "" {
		t.Errorf("unexpected fragment: %q", out.Fragment)
	}
	if sess.CustomerName != "" {
		t.Errorf("field must not be stored outside the collection flow, got %q", sess.CustomerName)
	}
	if sess.State != statex.StateBrowsing {
		t.Errorf("state = %s, want browsing", sess.State)
	}
}

func TestExecuteCollectInfoEmptyValueKeepsState(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	sess.State = statex.StateCollectingName

	if _, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionCollectInfo,
		Payload: contractx.ActionPayload{Field: statex.FieldName, Value: "   "},
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sess.State != statex.StateCollectingName {
		t.Errorf("empty value must not advance the flow, got %s", sess.State)
	}
}

func TestExecuteCompleteOrderSuccess(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{}
	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, orders)
	sess := newConfirmingSession(t)

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionCompleteOrder,
		Payload: contractx.ActionPayload{Confirmed: true},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(orders.created) != 1 {
		t.Fatalf("expected one order, got %d", len(orders.created))
	}
	req := orders.created[0]
	if req.TotalPrice != 330 {
		t.Errorf("total = %v, want 330 (300 + 30 delivery)", req.TotalPrice)
	}
	if req.CustomerPhone != "212600000001" {
		t.Errorf("phone = %q", req.CustomerPhone)
	}
	if sess.State != statex.StateOrderComplete {
		t.Errorf("state = %s, want order_complete", sess.State)
	}
	if !strings.Contains(out.Fragment, "ORDER CONFIRMED!") {
		t.Errorf("fragment = %q", out.Fragment)
	}
	if !strings.Contains(out.Fragment, "a1b2c3d4") || strings.Contains(out.Fragment, "a1b2c3d4-order") {
		t.Errorf("order ref must be truncated to 8 chars: %q", out.Fragment)
	}
	if out.OrderID == "" {
		t.Error("outcome must carry the full order id")
	}
}

func TestExecuteCompleteOrderOutsideConfirmingIgnored(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{}
	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, orders)
	sess := statex.NewSession("212600000001", time.Now())
	_ = sess.AddItem("abc12345-0000", "Running Shoes", 300, 1, "")
	sess.State = statex.StateCart

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionCompleteOrder,
		Payload: contractx.ActionPayload{Confirmed: true},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(orders.created) != 0 {
		t.Error("no order may be created outside confirmation")
	}
	if sess.State != statex.StateCart || len(sess.Cart) != 1 {
		t.Errorf("session must be untouched: state=%s cart=%+v", sess.State, sess.Cart)
	}
	if out.Fragment != "" {
		t.Errorf("unexpected fragment: %q", out.Fragment)
	}
}

func TestExecuteCompleteOrderDeclined(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{}
	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, orders)
	sess := newConfirmingSession(t)

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionCompleteOrder,
		Payload: contractx.ActionPayload{Confirmed: false},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(orders.created) != 0 {
		t.Error("declined confirmation must not create an order")
	}
	if sess.State != statex.StateBrowsing {
		t.Errorf("state = %s, want browsing", sess.State)
	}
	if len(sess.Cart) != 1 {
		t.Errorf("declining keeps the cart: %+v", sess.Cart)
	}
	if !strings.Contains(out.Fragment, "No problem") {
		t.Errorf("fragment = %q", out.Fragment)
	}
}

func TestExecuteCompleteOrderPersistenceFailure(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{err: fmt.Errorf("%w: connection refused", contractx.ErrPersistence)}
	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, orders)
	sess := newConfirmingSession(t)
	token := sess.ConfirmToken

	_, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action:  contractx.ActionCompleteOrder,
		Payload: contractx.ActionPayload{Confirmed: true},
	})
	if !errors.Is(err, contractx.ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}
	if sess.State != statex.StateConfirmingOrder {
		t.Errorf("failed submission must keep CONFIRMING_ORDER, got %s", sess.State)
	}
	if len(sess.Cart) != 1 {
		t.Errorf("failed submission must keep the cart: %+v", sess.Cart)
	}
	if sess.ConfirmToken != token {
		t.Error("failed submission must keep the confirm token for retry")
	}
}

func TestExecuteCompleteOrderDuplicateConfirmation(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{}
	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, orders)
	sess := newConfirmingSession(t)

	ctx := context.Background()
	confirm := contractx.ProposedIntent{
		Action:  contractx.ActionCompleteOrder,
		Payload: contractx.ActionPayload{Confirmed: true},
	}
	if _, err := exec.Execute(ctx, sess, confirm); err != nil {
		t.Fatalf("first confirmation: %v", err)
	}

	// The session parked in ORDER_COMPLETE; a second confirmation is an
	// ignored transition and must not hit the order store again.
	if _, err := exec.Execute(ctx, sess, confirm); err != nil {
		t.Fatalf("second confirmation: %v", err)
	}
	if len(orders.created) != 1 {
		t.Errorf("duplicate confirmation created %d orders, want 1", len(orders.created))
	}
}

func TestExecuteConfirmOrderSummaryFreeDelivery(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())
	_ = sess.AddItem("def67890-0000", "Leather Jacket", 450, 2, "")
	sess.CustomerName = "Amine"

	out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action: contractx.ActionConfirmOrder,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sess.State != statex.StateConfirmingOrder {
		t.Errorf("state = %s, want confirming_order", sess.State)
	}
	if !strings.Contains(out.Fragment, "Delivery: FREE!") {
		t.Errorf("900 total must ship free: %q", out.Fragment)
	}
	if !strings.Contains(out.Fragment, "FINAL TOTAL: 900 DH") {
		t.Errorf("fragment = %q", out.Fragment)
	}
	if !strings.Contains(out.Fragment, "Address: (missing)") {
		t.Errorf("missing field must be flagged: %q", out.Fragment)
	}
}

func TestExecuteNoneAndUnknownAreNoOps(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{products: executorProducts()}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())

	for _, action := range []contractx.ActionKind{contractx.ActionNone, contractx.ActionKind("bogus")} {
		out, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{Action: action})
		if err != nil {
			t.Fatalf("Execute(%s): %v", action, err)
		}
		if out.Fragment != "" || sess.State != statex.StateNew {
			t.Errorf("action %s must be a no-op", action)
		}
	}
}

func TestExecuteCatalogFailureSurfacesPersistence(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, &fakeCatalog{err: errors.New("connection reset")}, &fakeOrders{})
	sess := statex.NewSession("212600000001", time.Now())

	_, err := exec.Execute(context.Background(), sess, contractx.ProposedIntent{
		Action: contractx.ActionShowProducts,
	})
	if !errors.Is(err, contractx.ErrPersistence) {
		t.Errorf("got %v, want ErrPersistence", err)
	}
	if sess.State != statex.StateNew {
		t.Errorf("failed lookup must not move state, got %s", sess.State)
	}
}
