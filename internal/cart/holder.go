package cart

import "repairshop/internal/model"

// Holder keeps the persistent cart alongside an optional buy-now override.
type Holder struct {
	persistent Cart
	buyNow     *Cart
}

// NewHolder wraps an existing persistent cart.
func NewHolder(persistent Cart) *Holder {
	return &Holder{persistent: persistent}
}

// Persistent returns the long-lived cart for mutation.
func (h *Holder) Persistent() *Cart {
	return &h.persistent
}

// BuyNow replaces the checkout cart with a single item without touching the persistent cart.
func (h *Holder) BuyNow(item model.CartItem) error {
	c, err := New(item)
	if err != nil {
		return err
	}
	h.buyNow = &c
	return nil
}

// ClearBuyNow drops the override.
func (h *Holder) ClearBuyNow() {
	h.buyNow = nil
}

// Active returns the cart a checkout should use.
func (h *Holder) Active() Cart {
	if h.buyNow != nil {
		return *h.buyNow
	}
	return h.persistent
}

// Completed clears whichever cart was checked out.
func (h *Holder) Completed() {
	if h.buyNow != nil {
		h.buyNow = nil
		return
	}
	h.persistent.Clear()
}
