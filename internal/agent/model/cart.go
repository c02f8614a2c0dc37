package model

import (
	"fmt"
	"strings"
)

// CartItem is a quantity of one product with title and price snapshotted at
// add time. Price is integer minor units.
type CartItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Cart is an ordered item list, unique by product id. Operations return a
// new cart; callers thread the value explicitly rather than mutating shared
// state.
type Cart []CartItem

// Clone returns an independent copy.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Add merges the item into a copy of the cart: an existing entry for the
// same product id gets its quantity incremented, otherwise the item is
// appended.
func (c Cart) Add(item CartItem) Cart {
	out := c.Clone()
	for i := range out {
		if out[i].ProductID == item.ProductID {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	return append(out, item)
}

// Subtotal sums price x quantity over all items.
func (c Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c {
		subtotal += item.Price * int64(item.Quantity)
	}
	return subtotal
}

// TotalQuantity sums item quantities.
func (c Cart) TotalQuantity() int {
	var n int
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

// Digest renders a short human-readable cart summary for the system prompt.
// Empty carts produce an empty string.
func (c Cart) Digest() string {
	if len(c) == 0 {
		return ""
	}
	parts := make([]string, len(c))
	for i, item := range c {
		parts[i] = fmt.Sprintf("%s (x%d)", item.Title, item.Quantity)
	}
	return fmt.Sprintf("Current cart contains %d item(s): %s", len(c), strings.Join(parts, ", "))
}
