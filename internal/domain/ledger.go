package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger entry descriptions and remarks as they appear on the statement.
const (
	LedgerDescInvoiceCreated  = "Invoice Created"
	LedgerDescPaymentReceived = "Payment Received"
	LedgerDescPaymentSent     = "Payment Sent"

	LedgerRemarkOpen   = "open"
	LedgerRemarkClosed = "closed"
)

// LedgerEntry is one derived row of an account statement: either a debit from
// an invoice or a credit from a payment. Never persisted.
type LedgerEntry struct {
	Serial      int
	Date        time.Time
	Description string
	Reference   string // invoice number(s), "/"-joined for multi-invoice payments
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal // running (debit - credit) in stream order
	Remark      string
}

// LedgerTotals always covers the full, unfiltered stream. Filters on the
// rendered entries are a display lens and never change these numbers.
type LedgerTotals struct {
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
	Balance      decimal.Decimal
	OpenInvoices int
}

type LedgerStatement struct {
	AccountID   uuid.UUID
	AccountName string
	GeneratedAt time.Time
	Entries     []LedgerEntry
	Totals      LedgerTotals
}
