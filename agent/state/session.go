package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConversationState is the checkout stage a session is in. Transitions
// are owned by the intent executor and the order finalizer; nothing
// else may move a session between states.
type ConversationState string

const (
	StateNew               ConversationState = "new"
	StateBrowsing          ConversationState = "browsing"
	StateViewingProduct    ConversationState = "viewing_product"
	StateCart              ConversationState = "cart"
	StateCollectingName    ConversationState = "collecting_name"
	StateCollectingAddress ConversationState = "collecting_address"
	StateCollectingCity    ConversationState = "collecting_city"
	StateCollectingPhone   ConversationState = "collecting_phone"
	StateConfirmingOrder   ConversationState = "confirming_order"
	StateOrderComplete     ConversationState = "order_complete"
)

// Checkout field names accepted by collect_info.
const (
	FieldName    = "name"
	FieldAddress = "address"
	FieldCity    = "city"
	FieldPhone   = "phone"
)

const maxHistory = 20

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrEmptyAddress    = errors.New("session address is empty")
)

// CartLine is one product (plus optional color variant) in the cart
// with the unit price captured at add time.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Color     string  `json:"color,omitempty"`
}

// HistoryEntry is one message in the bounded conversation history.
type HistoryEntry struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the per-customer conversation state: cart, collected
// checkout fields, state-machine position and a lossy most-recent-20
// message history. It is owned by a Store and must only be mutated
// while the orchestrator holds the per-address lock.
type Session struct {
	Address string            `json:"address"`
	State   ConversationState `json:"state"`
	Cart    []CartLine        `json:"cart,omitempty"`

	CustomerName string `json:"customer_name,omitempty"`
	AddressLine  string `json:"customer_address,omitempty"`
	City         string `json:"customer_city,omitempty"`

	LastViewedProduct string `json:"last_viewed_product,omitempty"`

	// ConfirmToken is minted once when the session enters
	// CONFIRMING_ORDER and consumed by finalization, so a duplicate
	// confirmation cannot create a second order.
	ConfirmToken string `json:"confirm_token,omitempty"`

	History      []HistoryEntry `json:"message_history,omitempty"`
	LastActivity time.Time      `json:"last_activity"`
}

func NewSession(address string, now time.Time) *Session {
	return &Session{
		Address:      strings.TrimSpace(address),
		State:        StateNew,
		LastActivity: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.LastActivity = now.UTC()
}

func (s *Session) Validate() error {
	if s == nil {
		return errors.New("nil session")
	}
	if strings.TrimSpace(s.Address) == "" {
		return ErrEmptyAddress
	}
	for _, line := range s.Cart {
		if line.Quantity < 1 {
			return fmt.Errorf("%w: product_id=%s", ErrInvalidQuantity, line.ProductID)
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones instead of the
// live pointer so a session is never mutated by one goroutine while
// another reads it.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Cart != nil {
		out.Cart = append([]CartLine(nil), s.Cart...)
	}
	if s.History != nil {
		out.History = append([]HistoryEntry(nil), s.History...)
	}
	return &out
}

/* ------------------------------- Cart ops ------------------------------- */

// AddItem merges into an existing line when (productID, color) matches,
// otherwise appends a new line. Quantity must be >= 1.
func (s *Session) AddItem(productID, name string, unitPrice float64, quantity int, color string) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	for i := range s.Cart {
		if s.Cart[i].ProductID == productID && s.Cart[i].Color == color {
			s.Cart[i].Quantity += quantity
			return nil
		}
	}
	s.Cart = append(s.Cart, CartLine{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		Color:     color,
	})
	return nil
}

// RemoveItem drops every line for the product id, all variants included.
func (s *Session) RemoveItem(productID string) {
	kept := s.Cart[:0]
	for _, line := range s.Cart {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	s.Cart = kept
}

func (s *Session) ClearCart() {
	s.Cart = nil
}

// CartTotal is computed freshly on every call; there is no cached total
// to go stale.
func (s *Session) CartTotal() float64 {
	var total float64
	for _, line := range s.Cart {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// CartSummary renders the ordered line listing plus total, suitable for
// inclusion in a reply.
func (s *Session) CartSummary(currency string) string {
	if len(s.Cart) == 0 {
		return "Cart is empty"
	}
	var b strings.Builder
	for i, line := range s.Cart {
		variant := ""
		if line.Color != "" {
			variant = fmt.Sprintf(" (%s)", line.Color)
		}
		fmt.Fprintf(&b, "%d. %s%s x%d = %s %s\n",
			i+1, line.Name, variant, line.Quantity,
			FormatAmount(line.UnitPrice*float64(line.Quantity)), currency)
	}
	fmt.Fprintf(&b, "\nTotal: %s %s", FormatAmount(s.CartTotal()), currency)
	return b.String()
}

/* --------------------------- Checkout fields ---------------------------- */

// SetField stores one collected checkout field. Phone is accepted but
// not stored; it is already known from the channel identity.
func (s *Session) SetField(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	switch field {
	case FieldName:
		s.CustomerName = value
	case FieldAddress:
		s.AddressLine = value
	case FieldCity:
		s.City = value
	case FieldPhone:
		// channel identity wins
	default:
		return false
	}
	return true
}

// MissingFields lists the checkout fields not collected yet, in the
// fixed collection order.
func (s *Session) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(s.CustomerName) == "" {
		missing = append(missing, FieldName)
	}
	if strings.TrimSpace(s.AddressLine) == "" {
		missing = append(missing, FieldAddress)
	}
	if strings.TrimSpace(s.City) == "" {
		missing = append(missing, FieldCity)
	}
	return missing
}

// NextCollectState returns the state for the next uncollected field, or
// StateConfirmingOrder when everything is present.
func (s *Session) NextCollectState() ConversationState {
	missing := s.MissingFields()
	if len(missing) == 0 {
		return StateConfirmingOrder
	}
	switch missing[0] {
	case FieldName:
		return StateCollectingName
	case FieldAddress:
		return StateCollectingAddress
	default:
		return StateCollectingCity
	}
}

/* ---------------------------- Order lifecycle --------------------------- */

// EnterConfirmation moves the session to CONFIRMING_ORDER and mints a
// single-use confirm token if none is pending.
func (s *Session) EnterConfirmation(now time.Time) {
	s.State = StateConfirmingOrder
	if s.ConfirmToken == "" {
		s.ConfirmToken = uuid.NewString()
	}
	s.Touch(now)
}

// DeclineConfirmation returns the session to browsing with the cart
// retained. The pending confirm token is invalidated.
func (s *Session) DeclineConfirmation(now time.Time) {
	s.State = StateBrowsing
	s.ConfirmToken = ""
	s.Touch(now)
}

// CompleteOrder is called by the finalizer after the order store
// accepted the order. The cart and collected fields are cleared and the
// session parks in the terminal ORDER_COMPLETE state until the next
// message resets it.
func (s *Session) CompleteOrder(now time.Time) {
	s.ClearCart()
	s.CustomerName = ""
	s.AddressLine = ""
	s.City = ""
	s.ConfirmToken = ""
	s.State = StateOrderComplete
	s.Touch(now)
}

// ResetIfComplete restarts a session that finished an order so the
// next conversation begins from scratch.
func (s *Session) ResetIfComplete(now time.Time) {
	if s.State != StateOrderComplete {
		return
	}
	s.State = StateNew
	s.Touch(now)
}

/* ------------------------------- History -------------------------------- */

// AppendMessage appends to the bounded history ring, dropping the
// oldest entries beyond capacity 20.
func (s *Session) AppendMessage(role, content string, now time.Time) {
	s.History = append(s.History, HistoryEntry{
		Role:      role,
		Content:   content,
		Timestamp: now.UTC(),
	})
	if len(s.History) > maxHistory {
		s.History = append([]HistoryEntry(nil), s.History[len(s.History)-maxHistory:]...)
	}
}

// RecentHistory returns up to the last n entries, oldest first.
func (s *Session) RecentHistory(n int) []HistoryEntry {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// FormatAmount renders a monetary amount without trailing decimal noise:
// whole amounts print bare, fractional ones with two decimals.
func FormatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
