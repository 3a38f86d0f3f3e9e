package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Allocation amounts must not be negative"}
	ErrInvalidCurrency  = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidRate      = &AppError{http.StatusBadRequest, "INVALID_RATE", "Exchange rate must be greater than zero"}
	ErrNoAccount        = &AppError{http.StatusBadRequest, "NO_ACCOUNT", "A customer or supplier must be selected"}
	ErrNoAllocations    = &AppError{http.StatusBadRequest, "NO_ALLOCATIONS", "At least one invoice allocation is required"}
	ErrKindMismatch     = &AppError{http.StatusUnprocessableEntity, "KIND_MISMATCH", "Invoice kind does not match payment direction"}
	ErrInvoiceCancelled = &AppError{http.StatusUnprocessableEntity, "INVOICE_CANCELLED", "Invoice is cancelled"}
	ErrOverAllocation   = &AppError{http.StatusUnprocessableEntity, "OVER_ALLOCATION", "Allocation exceeds invoice balance due"}
	ErrRateMismatch     = &AppError{http.StatusUnprocessableEntity, "RATE_MISMATCH", "Exchange rate does not cover the currency pair"}
	ErrPaymentVoid      = &AppError{http.StatusConflict, "PAYMENT_ALREADY_VOID", "Payment is already void"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
