package model

import "fmt"

// Status tracks the lifecycle of an order.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusReady     Status = "ready"
	StatusShipped   Status = "shipped"
	StatusFinished  Status = "finished"
	StatusRefunded  Status = "refunded"
)

var validStatuses = []Status{
	StatusCreated,
	StatusPaid,
	StatusSucceeded,
	StatusFailed,
	StatusReady,
	StatusShipped,
	StatusFinished,
	StatusRefunded,
}

// Source names the writer of a status change.
type Source string

// The gateway writes settlements and reconciled confirmations; staff write
// through the fulfillment endpoints.
const (
	SourceGateway Source = "gateway"
	SourceStaff   Source = "staff"
)

// IsValid reports whether the value is a known Source.
func (s Source) IsValid() bool {
	return s == SourceGateway || s == SourceStaff
}

// transitions lists every legal single edge of the order graph, keyed by the
// writer allowed to take it. Only the gateway moves an order out of created.
// Staff may mark a failed order paid once the charge was taken in the shop.
var transitions = map[Source]map[Status][]Status{
	SourceGateway: {
		StatusCreated: {StatusSucceeded, StatusPaid, StatusFailed},
	},
	SourceStaff: {
		StatusSucceeded: {StatusReady, StatusShipped, StatusRefunded},
		StatusPaid:      {StatusReady, StatusShipped, StatusRefunded},
		StatusReady:     {StatusShipped, StatusRefunded},
		StatusShipped:   {StatusFinished, StatusRefunded},
		StatusFailed:    {StatusPaid},
	},
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Status.
func (s Status) IsValid() bool {
	for _, candidate := range validStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSettled reports whether the gateway has confirmed the charge.
func (s Status) IsSettled() bool {
	return s == StatusSucceeded || s == StatusPaid
}

// IsTerminal reports whether no writer can move the order any further.
func (s Status) IsTerminal() bool {
	for _, edges := range transitions {
		if len(edges[s]) > 0 {
			return false
		}
	}
	return true
}

// ParseStatus converts raw input into a Status.
func ParseStatus(value string) (Status, error) {
	for _, candidate := range validStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

// CanTransition reports whether by may move an order from current to next in
// one edge.
func CanTransition(by Source, current, next Status) bool {
	for _, candidate := range transitions[by][current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidateTransition is consulted by every writer of an order status.
func ValidateTransition(by Source, current, next Status) error {
	if !by.IsValid() {
		return fmt.Errorf("%w: unknown writer %q", ErrInvalidTransition, by)
	}
	if !next.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if !current.IsValid() {
		return fmt.Errorf("%w: stored status %q", ErrInvalidStatus, current)
	}
	if !CanTransition(by, current, next) {
		return fmt.Errorf("%w: %s -> %s by %s", ErrInvalidTransition, current, next, by)
	}
	return nil
}

// NextStatuses returns the statuses by can reach from current in one edge.
func NextStatuses(by Source, current Status) []Status {
	edges := transitions[by][current]
	out := make([]Status, len(edges))
	copy(out, edges)
	return out
}
