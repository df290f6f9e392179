package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"repairshop/internal/cart"
	"repairshop/internal/model"
	"repairshop/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentRequester creates the order and payment intent for a submitted checkout.
type IntentRequester interface {
	RequestPaymentIntent(ctx context.Context, req *model.IntentRequest) (*model.IntentResponse, error)
}

// Confirmer confirms a payment intent with the gateway.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, clientSecret string, details payment.ConfirmDetails) (*payment.ConfirmResult, error)
}

// Session is one customer's pass through address, payment and result. It is
// safe for concurrent use; gateway calls run without holding the lock and a
// second call while one is outstanding fails with model.ErrRequestInFlight.
type Session struct {
	mu sync.Mutex

	id       uuid.UUID
	cart     cart.Cart
	step     Step
	visited  map[Step]bool
	inFlight bool

	repairType *model.RepairType
	shipping   *model.ShippingOption
	address    *model.Address
	email      string
	userID     *string

	orderID      uuid.UUID
	clientSecret string
	amount       int64
	currency     string
	result       *payment.ConfirmResult

	intents   IntentRequester
	confirmer Confirmer
	timeout   time.Duration
	touched   time.Time
	now       func() time.Time
}

// NewSession starts a checkout on a copy of c.
func NewSession(id uuid.UUID, c cart.Cart, intents IntentRequester, confirmer Confirmer, timeout time.Duration) (*Session, error) {
	if c.IsEmpty() {
		return nil, model.ErrEmptyCart
	}
	snapshot, err := cart.New(c.Snapshot()...)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:        id,
		cart:      snapshot,
		step:      StepAddress,
		visited:   map[Step]bool{StepAddress: true},
		intents:   intents,
		confirmer: confirmer,
		timeout:   timeout,
		now:       time.Now,
	}
	s.touched = s.now()
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// SelectRepairType answers the first routing question. Choosing self clears
// any shipping option.
func (s *Session) SelectRepairType(rt model.RepairType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if !s.cart.HasRepairPart() {
		return model.ErrInvalidRouting
	}
	if _, err := model.ParseRepairType(string(rt)); err != nil {
		return err
	}

	s.repairType = &rt
	if rt != model.RepairTypeByUs {
		s.shipping = nil
	}
	s.touch()
	return nil
}

// SelectShippingOption answers the second routing question, which only
// exists when the shop performs the repair.
func (s *Session) SelectShippingOption(opt model.ShippingOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if s.repairType == nil {
		return model.ErrRoutingRequired
	}
	if *s.repairType != model.RepairTypeByUs {
		return model.ErrShippingOptionNotApplicable
	}
	if _, err := model.ParseShippingOption(string(opt)); err != nil {
		return err
	}

	s.shipping = &opt
	s.touch()
	return nil
}

// SetAddress records the contact and postal details. Completeness is checked
// on Submit so the form can be filled in several passes.
func (s *Session) SetAddress(addr model.Address, email string, userID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	s.address = &addr
	s.email = email
	s.userID = userID
	s.touch()
	return nil
}

// Submit leaves the address step. The first successful call obtains a client
// secret; later calls only move back to payment.
func (s *Session) Submit(ctx context.Context) (View, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	if s.clientSecret != "" {
		s.enter(StepPayment)
		v := s.view()
		s.mu.Unlock()
		return v, nil
	}
	req, err := s.intentRequest()
	if err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	s.inFlight = true
	s.mu.Unlock()

	callCtx, cancel := s.withTimeout(ctx)
	resp, err := s.intents.RequestPaymentIntent(callCtx, req)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.touch()

	if err != nil {
		return View{}, gatewayError(err)
	}
	if resp == nil || resp.ClientSecret == "" {
		return View{}, fmt.Errorf("%w: no client secret returned", model.ErrGateway)
	}

	s.orderID = resp.OrderID
	s.clientSecret = resp.ClientSecret
	s.amount = resp.Amount
	s.currency = resp.Currency
	s.enter(StepPayment)
	return s.view(), nil
}

// Confirm sends the payment details. A definitive outcome ends the session on
// the result step; anything else keeps it on payment.
func (s *Session) Confirm(ctx context.Context, details payment.ConfirmDetails) (View, *payment.ConfirmResult, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return View{}, nil, err
	}
	if s.step != StepPayment || s.clientSecret == "" {
		s.mu.Unlock()
		return View{}, nil, model.ErrStepNotReachable
	}
	orderID, secret := s.orderID, s.clientSecret
	s.inFlight = true
	s.mu.Unlock()

	callCtx, cancel := s.withTimeout(ctx)
	result, err := s.confirmer.ConfirmPayment(callCtx, orderID, secret, details)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.touch()

	if err != nil {
		return View{}, nil, gatewayError(err)
	}
	if result == nil {
		return View{}, nil, fmt.Errorf("%w: empty confirmation result", model.ErrGateway)
	}
	if result.Outcome.Definitive() {
		s.result = result
		s.enter(StepResult)
	}
	return s.view(), result, nil
}

// Back returns to an already visited, non-terminal step. It never requests a
// new intent.
func (s *Session) Back(target Step) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step.IsTerminal() {
		return View{}, model.ErrSessionTerminal
	}
	if s.inFlight {
		return View{}, model.ErrRequestInFlight
	}
	if !target.IsValid() || target.IsTerminal() || !s.visited[target] || !target.before(s.step) {
		return View{}, model.ErrStepNotReachable
	}
	s.step = target
	s.touch()
	return s.view(), nil
}

// Snapshot returns a read-only view of the session.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight && now.Sub(s.touched) > ttl
}

func (s *Session) editable() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.clientSecret != "" {
		return model.ErrCheckoutLocked
	}
	return nil
}

func (s *Session) ready() error {
	if s.step.IsTerminal() {
		return model.ErrSessionTerminal
	}
	if s.inFlight {
		return model.ErrRequestInFlight
	}
	return nil
}

func (s *Session) intentRequest() (*model.IntentRequest, error) {
	routing, err := model.RoutingFromFields(s.repairType, s.shipping)
	if err != nil {
		return nil, err
	}
	if err := routing.ValidateFor(s.cart.HasRepairPart()); err != nil {
		return nil, err
	}
	if s.address == nil {
		return nil, model.ErrIncompleteAddress
	}
	if !s.address.Complete() || s.email == "" {
		return nil, model.ErrIncompleteAddress
	}

	return &model.IntentRequest{
		Items:          s.cart.Snapshot(),
		RepairType:     routing.RepairType(),
		ShippingOption: routing.ShippingOption(),
		Email:          s.email,
		UserID:         s.userID,
		Address:        *s.address,
	}, nil
}

func (s *Session) pendingRouting() RoutingStep {
	if !s.cart.HasRepairPart() {
		return RoutingDone
	}
	if s.repairType == nil {
		return RoutingRepairType
	}
	if *s.repairType == model.RepairTypeByUs && s.shipping == nil {
		return RoutingShippingOption
	}
	return RoutingDone
}

func (s *Session) enter(step Step) {
	s.step = step
	s.visited[step] = true
}

func (s *Session) touch() {
	s.touched = s.now()
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func gatewayError(err error) error {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrGateway, err)
}

// View is the serializable state of a session.
type View struct {
	ID             uuid.UUID             `json:"id"`
	Step           Step                  `json:"step"`
	PendingRouting RoutingStep           `json:"pendingRouting,omitempty"`
	Items          []model.CartItem      `json:"items"`
	Total          decimal.Decimal       `json:"total"`
	RepairType     *model.RepairType     `json:"repairType,omitempty"`
	ShippingOption *model.ShippingOption `json:"shippingOption,omitempty"`
	Address        *model.Address        `json:"address,omitempty"`
	Email          string                `json:"email,omitempty"`
	OrderID        *uuid.UUID            `json:"orderId,omitempty"`
	ClientSecret   string                `json:"clientSecret,omitempty"`
	Amount         int64                 `json:"amount,omitempty"`
	Currency       string                `json:"currency,omitempty"`
	Outcome        model.PaymentOutcome  `json:"outcome,omitempty"`
	FailureMessage string                `json:"failureMessage,omitempty"`
	InFlight       bool                  `json:"inFlight"`
}

func (s *Session) view() View {
	v := View{
		ID:             s.id,
		Step:           s.step,
		PendingRouting: s.pendingRouting(),
		Items:          s.cart.Snapshot(),
		Total:          s.cart.Total(),
		RepairType:     s.repairType,
		ShippingOption: s.shipping,
		Email:          s.email,
		ClientSecret:   s.clientSecret,
		Amount:         s.amount,
		Currency:       s.currency,
		InFlight:       s.inFlight,
	}
	if s.address != nil {
		addr := *s.address
		v.Address = &addr
	}
	if s.orderID != uuid.Nil {
		id := s.orderID
		v.OrderID = &id
	}
	if s.result != nil {
		v.Outcome = s.result.Outcome
		v.FailureMessage = s.result.FailureMessage
	}
	return v
}
