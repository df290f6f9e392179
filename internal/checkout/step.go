package checkout

// Step is a stage of the checkout stepper.
type Step string

const (
	StepAddress Step = "address"
	StepPayment Step = "payment"
	StepResult  Step = "result"
)

var stepOrder = map[Step]int{
	StepAddress: 0,
	StepPayment: 1,
	StepResult:  2,
}

// IsValid reports whether s is a known step.
func (s Step) IsValid() bool {
	_, ok := stepOrder[s]
	return ok
}

// IsTerminal reports whether the session ends at s.
func (s Step) IsTerminal() bool {
	return s == StepResult
}

// before reports whether s comes earlier in the flow than other.
func (s Step) before(other Step) bool {
	return stepOrder[s] < stepOrder[other]
}

// RoutingStep is the pending question of the repair sub-stepper. It is empty
// once routing is complete or when the cart has no repair parts.
type RoutingStep string

const (
	RoutingDone           RoutingStep = ""
	RoutingRepairType     RoutingStep = "repair_type"
	RoutingShippingOption RoutingStep = "shipping_option"
)
