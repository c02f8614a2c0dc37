package checkout

import (
	"time"
)

// Status is the lifecycle state of a checkout session.
type Status string

const (
	// StatusDraft is a transient internal state; callers never observe it
	// because Create promotes the session before returning.
	StatusDraft Status = "draft"

	StatusReadyForComplete Status = "ready_for_complete"
	StatusCompleted        Status = "completed"
)

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the session can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Item is a snapshot of the purchased product at checkout time.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int64  `json:"price"`
}

// Total is one entry of an ordered totals breakdown.
type Total struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

const (
	TotalSubtotal = "subtotal"
	TotalDiscount = "discount"
	TotalFinal    = "total"
)

// LineItem attaches a quantity of one product to a session. Totals are
// derived from the item snapshot and quantity, never stored stale.
type LineItem struct {
	ID       string  `json:"id"`
	Item     Item    `json:"item"`
	Quantity int     `json:"quantity"`
	Totals   []Total `json:"totals"`
}

// SetQuantity updates the quantity and recomputes the line totals.
func (li *LineItem) SetQuantity(quantity int) {
	li.Quantity = quantity
	li.Totals = lineTotals(li.Item.Price, quantity)
}

// Subtotal returns the line subtotal (price x quantity).
func (li *LineItem) Subtotal() int64 {
	return li.Item.Price * int64(li.Quantity)
}

func lineTotals(price int64, quantity int) []Total {
	subtotal := price * int64(quantity)
	return []Total{
		{Type: TotalSubtotal, Amount: subtotal},
		{Type: TotalFinal, Amount: subtotal},
	}
}

// Buyer identifies the purchasing customer.
type Buyer struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Allocation attributes a portion of a discount amount to a totals bucket.
type Allocation struct {
	Path   string `json:"path"`
	Amount int64  `json:"amount"`
}

// Discount is a discount applied to a session.
type Discount struct {
	Code        string       `json:"code"`
	Title       string       `json:"title"`
	Amount      int64        `json:"amount"`
	Automatic   bool         `json:"automatic"`
	Allocations []Allocation `json:"allocations"`
}

// PaymentHandler is a stub payment integration; real payment processing is
// out of scope.
type PaymentHandler struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is a checkout session. Totals are always derivable from line items
// and applied discounts; they are never persisted independently.
type Session struct {
	ID        string           `json:"id"`
	Currency  string           `json:"currency"`
	LineItems []LineItem       `json:"line_items"`
	Buyer     *Buyer           `json:"buyer,omitempty"`
	Status    Status           `json:"status"`
	Codes     []string         `json:"codes,omitempty"`
	Applied   []Discount       `json:"applied,omitempty"`
	Payment   []PaymentHandler `json:"payment_handlers"`
	CreatedAt time.Time        `json:"created_at"`
}

// Subtotal sums line item subtotals.
func (s *Session) Subtotal() int64 {
	var subtotal int64
	for _, li := range s.LineItems {
		subtotal += li.Totals[0].Amount
	}
	return subtotal
}

// Totals returns the ordered breakdown: subtotal, one entry per applied
// discount, then the final total clamped at zero.
func (s *Session) Totals() []Total {
	subtotal := s.Subtotal()
	totals := []Total{{Type: TotalSubtotal, Amount: subtotal}}

	var discountTotal int64
	for _, d := range s.Applied {
		totals = append(totals, Total{Type: TotalDiscount, Amount: d.Amount})
		discountTotal += d.Amount
	}

	final := subtotal - discountTotal
	if final < 0 {
		final = 0
	}
	totals = append(totals, Total{Type: TotalFinal, Amount: final})

	return totals
}

// ApplyDiscount validates the code against the compiled-in table and applies
// it to the session. Discounts do not stack: the latest valid code wins and
// replaces both the recorded code list and the applied discount, so totals
// stay consistent with the recorded codes.
func (s *Session) ApplyDiscount(code string) error {
	spec, ok := discountTable[code]
	if !ok {
		return errInvalidDiscountCode(code)
	}

	amount := spec.amountFor(s.Subtotal())

	s.Codes = []string{code}
	s.Applied = []Discount{{
		Code:        code,
		Title:       spec.title,
		Amount:      amount,
		Automatic:   false,
		Allocations: []Allocation{{Path: TotalSubtotal, Amount: amount}},
	}}

	return nil
}

// SetBuyer replaces the buyer information.
func (s *Session) SetBuyer(fullName, email string) {
	s.Buyer = &Buyer{FullName: fullName, Email: email}
}

// Clone returns a deep copy so store readers never alias stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s

	out.LineItems = make([]LineItem, len(s.LineItems))
	for i, li := range s.LineItems {
		cp := li
		cp.Totals = append([]Total(nil), li.Totals...)
		out.LineItems[i] = cp
	}

	if s.Buyer != nil {
		b := *s.Buyer
		out.Buyer = &b
	}
	out.Codes = append([]string(nil), s.Codes...)

	out.Applied = make([]Discount, len(s.Applied))
	for i, d := range s.Applied {
		cp := d
		cp.Allocations = append([]Allocation(nil), d.Allocations...)
		out.Applied[i] = cp
	}

	out.Payment = append([]PaymentHandler(nil), s.Payment...)

	return &out
}
