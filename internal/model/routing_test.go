package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRoutingFromFields(t *testing.T) {
	tests := []struct {
		name        string
		repairType  *RepairType
		shipping    *ShippingOption
		expectError error
		ships       bool
	}{
		{name: "No routing", repairType: nil, shipping: nil},
		{name: "Self repair", repairType: ptr(RepairTypeSelf)},
		{name: "By us at shop", repairType: ptr(RepairTypeByUs), shipping: ptr(ShippingAtShop)},
		{name: "By us send", repairType: ptr(RepairTypeByUs), shipping: ptr(ShippingSend), ships: true},
		{name: "By us receive", repairType: ptr(RepairTypeByUs), shipping: ptr(ShippingReceive)},
		{name: "Self with shipping", repairType: ptr(RepairTypeSelf), shipping: ptr(ShippingSend), expectError: ErrShippingOptionNotApplicable},
		{name: "Shipping without repair type", shipping: ptr(ShippingSend), expectError: ErrShippingOptionNotApplicable},
		{name: "By us without shipping", repairType: ptr(RepairTypeByUs), expectError: ErrShippingOptionRequired},
		{name: "Unknown repair type", repairType: ptr(RepairType("courier")), expectError: ErrInvalidRouting},
		{name: "Unknown shipping", repairType: ptr(RepairTypeByUs), shipping: ptr(ShippingOption("drone")), expectError: ErrInvalidRouting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := RoutingFromFields(tt.repairType, tt.shipping)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.repairType, r.RepairType())
			assert.Equal(t, tt.shipping, r.ShippingOption())
			assert.Equal(t, tt.ships, r.ShipsToCustomer())
		})
	}
}

func TestRouting_SelfHasNoShippingOption(t *testing.T) {
	r := SelfRepair()
	assert.Nil(t, r.ShippingOption())
	assert.False(t, r.ShipsToCustomer())
}

func TestRouting_ValidateFor(t *testing.T) {
	byUs, err := RepairByUs(ShippingSend)
	require.NoError(t, err)

	assert.ErrorIs(t, NoRouting().ValidateFor(true), ErrRoutingRequired)
	assert.NoError(t, SelfRepair().ValidateFor(true))
	assert.NoError(t, byUs.ValidateFor(true))
	assert.NoError(t, NoRouting().ValidateFor(false))
	assert.ErrorIs(t, SelfRepair().ValidateFor(false), ErrInvalidRouting)
}

func TestAddress_Missing(t *testing.T) {
	full := Address{Name: "Ana", Line1: "Calle 1", City: "Madrid", PostalCode: "28001", Country: "ES"}
	assert.True(t, full.Complete())

	partial := Address{Name: "Ana", City: " "}
	assert.False(t, partial.Complete())
	assert.Equal(t, []string{"line1", "city", "postalCode", "country"}, partial.Missing())
}

func TestCartItem_Validate(t *testing.T) {
	ok := CartItem{ID: "screen", Name: "Screen", Price: decimal.RequireFromString("89.90"), Quantity: 1, Type: ItemTypePart}
	assert.NoError(t, ok.Validate())

	zeroQty := ok
	zeroQty.Quantity = 0
	assert.ErrorIs(t, zeroQty.Validate(), ErrInvalidQuantity)

	negative := ok
	negative.Price = decimal.RequireFromString("-1")
	assert.ErrorIs(t, negative.Validate(), ErrInvalidPrice)

	assert.True(t, decimal.RequireFromString("179.80").Equal(CartItem{Price: ok.Price, Quantity: 2}.LineTotal()))
}
