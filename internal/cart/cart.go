package cart

import (
	"repairshop/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Cart is an ordered collection of line items. The zero value is an empty cart.
type Cart struct {
	items []model.CartItem
}

// New builds a cart from items, merging duplicates and validating each line.
func New(items ...model.CartItem) (Cart, error) {
	var c Cart
	for _, item := range items {
		if err := c.Add(item); err != nil {
			return Cart{}, err
		}
	}
	return c, nil
}

// Add appends an item, summing quantities when the same id and type is already present.
func (c *Cart) Add(item model.CartItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if i := c.index(item.ID, item.Type); i >= 0 {
		c.items[i].Quantity += item.Quantity
		return nil
	}
	c.items = append(c.items, item)
	return nil
}

// SetQuantity changes a line's quantity. A quantity below one removes the line.
func (c *Cart) SetQuantity(id string, itemType model.ItemType, quantity int) bool {
	i := c.index(id, itemType)
	if i < 0 {
		return false
	}
	if quantity < 1 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		return true
	}
	c.items[i].Quantity = quantity
	return true
}

// Remove drops a line from the cart.
func (c *Cart) Remove(id string, itemType model.ItemType) bool {
	return c.SetQuantity(id, itemType, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Len returns the number of lines.
func (c Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Total returns the sum of all line totals in major units.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// MinorUnits returns the cart total in minor units (cents).
func (c Cart) MinorUnits() int64 {
	return ToMinorUnits(c.Total())
}

// HasRepairPart reports whether any line is a repair part.
func (c Cart) HasRepairPart() bool {
	for _, item := range c.items {
		if item.Type == model.ItemTypePart {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the lines, safe to hand to another owner.
func (c Cart) Snapshot() []model.CartItem {
	out := make([]model.CartItem, len(c.items))
	for i, item := range c.items {
		out[i] = item
		if item.Image != nil {
			img := *item.Image
			out[i].Image = &img
		}
	}
	return out
}

func (c Cart) index(id string, itemType model.ItemType) int {
	for i, item := range c.items {
		if item.ID == id && item.Type == itemType {
			return i
		}
	}
	return -1
}

// ToMinorUnits converts a major-unit amount to rounded minor units.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
