package model

// RepairType says who performs a part-replacement repair.
type RepairType string

const (
	RepairTypeSelf RepairType = "self"
	RepairTypeByUs RepairType = "by_us"
)

// ParseRepairType converts raw input into a RepairType.
func ParseRepairType(value string) (RepairType, error) {
	switch RepairType(value) {
	case RepairTypeSelf, RepairTypeByUs:
		return RepairType(value), nil
	}
	return "", ErrInvalidRouting
}

// ShippingOption says how the device travels between customer and shop.
type ShippingOption string

const (
	ShippingAtShop  ShippingOption = "at_shop"
	ShippingSend    ShippingOption = "send"
	ShippingReceive ShippingOption = "receive"
)

// ParseShippingOption converts raw input into a ShippingOption.
func ParseShippingOption(value string) (ShippingOption, error) {
	switch ShippingOption(value) {
	case ShippingAtShop, ShippingSend, ShippingReceive:
		return ShippingOption(value), nil
	}
	return "", ErrInvalidRouting
}

// Routing is the closed set of repair routing choices. The zero value means
// no routing applies (cart without repair parts). A shipping option only
// exists together with RepairTypeByUs.
type Routing struct {
	repairType RepairType
	shipping   ShippingOption
}

// NoRouting is used for carts without repair parts.
func NoRouting() Routing { return Routing{} }

// SelfRepair is used when the customer repairs the device.
func SelfRepair() Routing { return Routing{repairType: RepairTypeSelf} }

// RepairByUs is used when the shop repairs the device.
func RepairByUs(option ShippingOption) (Routing, error) {
	if _, err := ParseShippingOption(string(option)); err != nil {
		return Routing{}, err
	}
	return Routing{repairType: RepairTypeByUs, shipping: option}, nil
}

// RoutingFromFields builds a Routing from nullable wire fields.
func RoutingFromFields(repairType *RepairType, shipping *ShippingOption) (Routing, error) {
	if repairType == nil {
		if shipping != nil {
			return Routing{}, ErrShippingOptionNotApplicable
		}
		return NoRouting(), nil
	}
	switch *repairType {
	case RepairTypeSelf:
		if shipping != nil {
			return Routing{}, ErrShippingOptionNotApplicable
		}
		return SelfRepair(), nil
	case RepairTypeByUs:
		if shipping == nil {
			return Routing{}, ErrShippingOptionRequired
		}
		return RepairByUs(*shipping)
	default:
		return Routing{}, ErrInvalidRouting
	}
}

// ValidateFor checks the routing against the cart contents.
func (r Routing) ValidateFor(hasRepairPart bool) error {
	if !hasRepairPart {
		if r.repairType != "" {
			return ErrInvalidRouting
		}
		return nil
	}
	if r.repairType == "" {
		return ErrRoutingRequired
	}
	return nil
}

// RepairType returns the repair type, or nil when routing does not apply.
func (r Routing) RepairType() *RepairType {
	if r.repairType == "" {
		return nil
	}
	rt := r.repairType
	return &rt
}

// ShippingOption returns the shipping option, or nil unless the shop repairs.
func (r Routing) ShippingOption() *ShippingOption {
	if r.shipping == "" {
		return nil
	}
	so := r.shipping
	return &so
}

// ShipsToCustomer reports whether a shipping label can be issued.
func (r Routing) ShipsToCustomer() bool {
	return r.repairType == RepairTypeByUs && r.shipping == ShippingSend
}

// Metadata renders the routing as gateway metadata values.
func (r Routing) Metadata() (repairType, shipping string) {
	return string(r.repairType), string(r.shipping)
}
