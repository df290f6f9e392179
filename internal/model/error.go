package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Message       string            `json:"message"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInvalidPrice         = "INVALID_PRICE"
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodePriceMismatch        = "PRICE_MISMATCH"
	ErrCodeIncompleteAddress    = "INCOMPLETE_ADDRESS"
	ErrCodeRoutingRequired      = "REPAIR_TYPE_REQUIRED"
	ErrCodeShippingRequired     = "SHIPPING_OPTION_REQUIRED"
	ErrCodeShippingNotAllowed   = "SHIPPING_OPTION_NOT_APPLICABLE"
	ErrCodeInvalidRouting       = "INVALID_ROUTING"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeAmountMismatch       = "AMOUNT_MISMATCH"
	ErrCodeLabelNotEligible     = "LABEL_NOT_ELIGIBLE"
	ErrCodeAttachmentRequired   = "ATTACHMENT_REQUIRED"
	ErrCodeAlreadyShipped       = "ALREADY_SHIPPED"
	ErrCodeLabelInProgress      = "LABEL_IN_PROGRESS"
	ErrCodeOrderBusy            = "ORDER_BUSY"
	ErrCodeGateway              = "GATEWAY_ERROR"
	ErrCodeNotificationFailed   = "NOTIFICATION_FAILED"
	ErrCodeRequestInFlight      = "REQUEST_IN_FLIGHT"
	ErrCodeSessionNotFound      = "SESSION_NOT_FOUND"
	ErrCodeSessionTerminal      = "SESSION_TERMINAL"
	ErrCodeStepNotReachable     = "STEP_NOT_REACHABLE"
	ErrCodeCheckoutLocked       = "CHECKOUT_LOCKED"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	ErrCodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Cart and checkout input errors.
var (
	ErrEmptyCart                   = NewDomainError(ErrCodeEmptyCart, "Cart must contain at least one item")
	ErrInvalidQuantity             = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be at least one")
	ErrInvalidPrice                = NewDomainError(ErrCodeInvalidPrice, "Price must not be negative")
	ErrItemNotFound                = NewDomainError(ErrCodeItemNotFound, "One or more cart items are not in the catalogue")
	ErrPriceMismatch               = NewDomainError(ErrCodePriceMismatch, "Cart prices no longer match the catalogue")
	ErrIncompleteAddress           = NewDomainError(ErrCodeIncompleteAddress, "Address is incomplete")
	ErrRoutingRequired             = NewDomainError(ErrCodeRoutingRequired, "A repair type must be selected for carts with repair parts")
	ErrShippingOptionRequired      = NewDomainError(ErrCodeShippingRequired, "A shipping option must be selected when the shop performs the repair")
	ErrShippingOptionNotApplicable = NewDomainError(ErrCodeShippingNotAllowed, "Shipping option only applies when the shop performs the repair")
	ErrInvalidRouting              = NewDomainError(ErrCodeInvalidRouting, "Unknown repair type or shipping option")
)

// Order store errors.
var (
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidStatus     = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Status change is not allowed from the current status")
	ErrAmountMismatch    = NewDomainError(ErrCodeAmountMismatch, "Settled amount does not match the order amount")
)

// Fulfillment errors.
var (
	ErrLabelNotEligible    = NewDomainError(ErrCodeLabelNotEligible, "Shipping labels are only issued for shop repairs shipped to the customer")
	ErrAttachmentRequired  = NewDomainError(ErrCodeAttachmentRequired, "A label attachment with filename and content type is required")
	ErrLabelAlreadyShipped = NewDomainError(ErrCodeAlreadyShipped, "Order has already been shipped")
	ErrLabelInProgress     = NewDomainError(ErrCodeLabelInProgress, "A shipping label is already being issued for this order")
	ErrOrderBusy           = NewDomainError(ErrCodeOrderBusy, "Another change to this order is in progress, please retry")
	ErrNotificationFailed  = NewDomainError(ErrCodeNotificationFailed, "Customer notification could not be sent")
)

// Gateway and session errors.
var (
	ErrGateway          = NewDomainError(ErrCodeGateway, "Payment gateway request failed, please retry")
	ErrRequestInFlight  = NewDomainError(ErrCodeRequestInFlight, "A payment request is already in progress")
	ErrSessionNotFound  = NewDomainError(ErrCodeSessionNotFound, "Checkout session not found")
	ErrSessionTerminal  = NewDomainError(ErrCodeSessionTerminal, "Checkout has finished, start a new checkout")
	ErrStepNotReachable = NewDomainError(ErrCodeStepNotReachable, "Checkout step cannot be reached from here")
	ErrCheckoutLocked   = NewDomainError(ErrCodeCheckoutLocked, "Checkout details cannot change once payment has started")
	ErrInvalidSignature = NewDomainError(ErrCodeInvalidSignature, "Webhook signature verification failed")
)
