package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemType distinguishes repair parts from accessories in a cart.
type ItemType string

const (
	ItemTypePart      ItemType = "part"
	ItemTypeAccessory ItemType = "accessory"
)

// IsValid reports whether the value is a known ItemType.
func (t ItemType) IsValid() bool {
	return t == ItemTypePart || t == ItemTypeAccessory
}

// CartItem is a single line of a cart or of an order's cart snapshot.
type CartItem struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"min=1"`
	Type     ItemType        `json:"type" validate:"required,oneof=part accessory"`
	Image    *string         `json:"image,omitempty"`
}

// Validate checks the per-item invariants.
func (i CartItem) Validate() error {
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if i.ID == "" || !i.Type.IsValid() {
		return ErrItemNotFound
	}
	return nil
}

// LineTotal returns price multiplied by quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Address is the structured postal address collected at checkout.
type Address struct {
	Name       string `json:"name" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
	Phone      string `json:"phone,omitempty"`
}

// Missing returns the names of required fields that are blank.
func (a Address) Missing() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"line1", a.Line1},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Complete reports whether every required field is filled in.
func (a Address) Complete() bool {
	return len(a.Missing()) == 0
}

// Order is the persisted record created when a payment intent is requested.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Cart            []CartItem      `json:"cartSnapshot"`
	RepairType      *RepairType     `json:"repairType"`
	ShippingOption  *ShippingOption `json:"shippingOption"`
	Email           string          `json:"email"`
	UserID          *string         `json:"userId,omitempty"`
	Address         Address         `json:"address"`
	Status          Status          `json:"status"`
	PaymentIntentID *string         `json:"paymentIntentId,omitempty"`
	TrackingNumber  *string         `json:"trackingNumber,omitempty"`
	LabelLocation   *string         `json:"labelLocation,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Routing returns the order's repair routing.
func (o *Order) Routing() Routing {
	r, err := RoutingFromFields(o.RepairType, o.ShippingOption)
	if err != nil {
		return Routing{}
	}
	return r
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// ShipmentNote carries the fulfillment fields written alongside a transition to shipped.
type ShipmentNote struct {
	TrackingNumber *string
	LabelLocation  string
}

// IntentRequest is the serialized hand-off from a checkout to intent creation.
type IntentRequest struct {
	Items          []CartItem      `json:"items" validate:"required,min=1,dive"`
	RepairType     *RepairType     `json:"repairType,omitempty"`
	ShippingOption *ShippingOption `json:"shippingOption,omitempty"`
	Email          string          `json:"email" validate:"required,email"`
	UserID         *string         `json:"userId,omitempty"`
	Address        Address         `json:"address"`
}

// IntentResponse is returned once an order and its payment intent exist.
type IntentResponse struct {
	OrderID      uuid.UUID `json:"orderId"`
	ClientSecret string    `json:"clientSecret"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
}

// PaymentOutcome is a definitive or pending result reported by the gateway.
type PaymentOutcome string

const (
	OutcomeSucceeded      PaymentOutcome = "succeeded"
	OutcomeFailed         PaymentOutcome = "failed"
	OutcomeRequiresAction PaymentOutcome = "requires_action"
)

// Definitive reports whether the outcome ends the payment step.
func (o PaymentOutcome) Definitive() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed
}

// StatusUpdate is a guarded status write against the persisted order. Source
// selects the edge set the write is checked against. Idempotent turns a write
// of the current status into a no-op instead of a transition error;
// settlement redeliveries use it.
type StatusUpdate struct {
	Next       Status
	Source     Source
	Note       *ShipmentNote
	Idempotent bool
}

// StatusChange reports the outcome of a StatusUpdate.
type StatusChange struct {
	Order   *Order
	From    Status
	Changed bool
}
