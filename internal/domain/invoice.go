package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceKind string

const (
	InvoiceKindCustomer InvoiceKind = "customer"
	InvoiceKindSupplier InvoiceKind = "supplier"
)

func (k InvoiceKind) IsValid() bool {
	return k == InvoiceKindCustomer || k == InvoiceKindSupplier
}

// Collection is the activity-log collection name for the kind.
func (k InvoiceKind) Collection() string {
	if k == InvoiceKindSupplier {
		return "purchase_order"
	}
	return "orders"
}

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusConfirmed InvoiceStatus = "confirmed"
	InvoiceStatusShipped   InvoiceStatus = "shipped"
	InvoiceStatusCompleted InvoiceStatus = "completed"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Open reports whether the invoice still counts toward the account's open
// exposure on the ledger.
func (s InvoiceStatus) Open() bool {
	return s != InvoiceStatusCompleted && s != InvoiceStatusCancelled
}

// Invoice is the receivable/payable view of a customer order or supplier
// purchase order. Owned by the invoice store; this core only ever mutates the
// supplier-side deposit tracking fields, and only through atomic increments.
type Invoice struct {
	ID         uuid.UUID
	Kind       InvoiceKind
	AccountID  uuid.UUID
	Number     string
	TotalValue decimal.Decimal
	Currency   Currency
	Status     InvoiceStatus
	CreatedAt  time.Time

	// Supplier tracking fields, zero for customer invoices. Cached
	// read-optimizations: the authoritative balance always comes from the
	// allocation ledger.
	DepositPaid   decimal.Decimal
	BalancePaid   decimal.Decimal
	DepositPaidAt *time.Time
}

// Counterpart is the customer or supplier an invoice or payment belongs to.
type Counterpart struct {
	ID        uuid.UUID
	Kind      InvoiceKind
	Name      string
	Currency  Currency
	CreatedAt time.Time
}
