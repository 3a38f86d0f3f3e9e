package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInvalidCurrency         = errors.New("invalid currency")
	ErrNoAccount               = errors.New("no account selected")
	ErrNoAllocations           = errors.New("at least one allocation is required")
	ErrKindMismatch            = errors.New("invoice kind does not match payment direction")
	ErrInvoiceCancelled        = errors.New("invoice is cancelled")
	ErrOverAllocation          = errors.New("allocation exceeds invoice balance due")
	ErrPaymentVoid             = errors.New("payment already void")
	ErrRateMismatch            = errors.New("exchange rate does not cover currency pair")
	ErrInvalidRate             = errors.New("exchange rate must be greater than zero")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)
