package matching

import "errors"

// Validation errors: rejected before any state change.
var (
	ErrEmptySymbol        = errors.New("symbol must not be empty")
	ErrInvalidSide        = errors.New("invalid side")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrNonPositiveQty     = errors.New("quantity must be positive")
	ErrMissingPrice       = errors.New("price is required for this order type")
	ErrNonPositivePrice   = errors.New("price must be positive")
	ErrUnexpectedPrice    = errors.New("market orders must not specify a price")
	ErrDecimalParse       = errors.New("unable to parse decimal value")
	ErrDuplicateOrderID   = errors.New("order id already in use")
	ErrSymbolNotSupported = errors.New("symbol is not supported")
)

// Lookup errors.
var (
	ErrOrderNotFound = errors.New("order not found")
)

// Lifecycle errors.
var (
	ErrOrderTerminal   = errors.New("order is already in a terminal state")
	ErrOrderNotResting = errors.New("order is not currently resting")
)

// Precondition errors.
var (
	ErrSymbolMismatch = errors.New("order symbol does not match book symbol")
)

// Bounds errors for the read-only query surface.
var (
	ErrInvalidDepth = errors.New("levels must be within the configured bounds")
	ErrInvalidLimit = errors.New("limit must be within the configured bounds")
)
