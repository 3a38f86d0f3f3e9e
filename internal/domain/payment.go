package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentDirection string

const (
	DirectionIncoming PaymentDirection = "incoming"
	DirectionOutgoing PaymentDirection = "outgoing"
)

func (d PaymentDirection) IsValid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// InvoiceKind returns the invoice kind a payment in this direction may be
// allocated against: incoming money settles customer invoices, outgoing
// settles supplier invoices.
func (d PaymentDirection) InvoiceKind() InvoiceKind {
	if d == DirectionOutgoing {
		return InvoiceKindSupplier
	}
	return InvoiceKindCustomer
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusVoid      PaymentStatus = "void"
)

// Payment is one financial record: money received from a customer or sent to
// a supplier, split across one or more invoices by its allocations. Immutable
// after creation except for the transition to void.
type Payment struct {
	ID              uuid.UUID
	Direction       PaymentDirection
	AccountID       uuid.UUID
	InvoiceID       *uuid.UUID // set when exactly one invoice is paid
	Amount          decimal.Decimal
	Currency        Currency
	Rate            *ExchangeRate
	PaymentMethod   string
	ReferenceNumber string
	PaidAt          time.Time
	ReceiptURL      *string
	Status          PaymentStatus
	Metadata        json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Allocation assigns a portion of a payment to exactly one invoice. The
// amount is denominated in the payment's currency.
type Allocation struct {
	ID          uuid.UUID
	PaymentID   uuid.UUID
	InvoiceID   uuid.UUID
	InvoiceKind InvoiceKind
	Amount      decimal.Decimal
	Currency    Currency
	CreatedAt   time.Time
}
