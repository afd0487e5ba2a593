package contract

import (
	statex "github.com/demostore/cod-agent/agent/state"
)

// ActionKind is the validated tag of a ProposedIntent. Anything the
// collaborator emits that is not one of these values normalizes to
// ActionNone before it can touch a session.
type ActionKind string

const (
	ActionNone           ActionKind = "none"
	ActionShowProducts   ActionKind = "show_products"
	ActionShowCategories ActionKind = "show_categories"
	ActionAddToCart      ActionKind = "add_to_cart"
	ActionRemoveFromCart ActionKind = "remove_from_cart"
	ActionCheckout       ActionKind = "checkout"
	ActionCollectInfo    ActionKind = "collect_info"
	ActionConfirmOrder   ActionKind = "confirm_order"
	ActionCompleteOrder  ActionKind = "complete_order"
)

// KnownActionKind reports whether kind is part of the action table.
func KnownActionKind(kind ActionKind) bool {
	switch kind {
	case ActionNone, ActionShowProducts, ActionShowCategories,
		ActionAddToCart, ActionRemoveFromCart, ActionCheckout,
		ActionCollectInfo, ActionConfirmOrder, ActionCompleteOrder:
		return true
	}
	return false
}

// ActionPayload carries the per-action arguments. Only the fields
// relevant to the tagged ActionKind are meaningful.
type ActionPayload struct {
	Category   string `json:"category,omitempty"`
	ProductRef string `json:"product_id,omitempty"` // partial id or name fragment
	Quantity   int    `json:"quantity,omitempty"`
	Color      string `json:"color,omitempty"`
	Field      string `json:"field,omitempty"` // name|address|city|phone
	Value      string `json:"value,omitempty"`
	Confirmed  bool   `json:"confirmed,omitempty"`
}

// ProposedIntent is the structured suggestion produced by the
// language-generation collaborator. It is untrusted input: the
// executor re-validates every field against the session before any
// mutation happens.
type ProposedIntent struct {
	Reply   string        `json:"message"`
	Action  ActionKind    `json:"action"`
	Payload ActionPayload `json:"action_data"`
}

// InboundMessage is one customer message delivered by the transport
// bridge.
type InboundMessage struct {
	Address     string `json:"phone"`
	Text        string `json:"message"`
	ProfileName string `json:"name,omitempty"`
}

// GenerationRequest is the context snapshot handed to the collaborator
// together with the new message text.
type GenerationRequest struct {
	Message        string
	State          string
	CartSummary    string
	CartTotal      float64
	CartItems      int
	CustomerName   string
	AddressLine    string
	City           string
	Phone          string
	CatalogListing string
	Categories     string
	History        []statex.HistoryEntry
}

// OrderLine is one snapshotted cart line inside an order request.
type OrderLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Color     string  `json:"color,omitempty"`
}

// OrderRequest is the immutable order-creation payload built by the
// finalizer. TotalPrice already includes the delivery fee.
type OrderRequest struct {
	CustomerName  string
	CustomerPhone string
	Address       string
	City          string
	Lines         []OrderLine
	TotalPrice    float64
	SourceChannel string
}
