// Package balance computes outstanding invoice balances from the allocation
// ledger. Results are point-in-time snapshots with no side effects.
package balance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/repository"
)

type invoiceRepo interface {
	ListByAccount(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID) ([]domain.Invoice, error)
}

type allocationRepo interface {
	ListForInvoices(ctx context.Context, kind domain.InvoiceKind, invoiceIDs []uuid.UUID) ([]repository.AllocationWithPayment, error)
}

// OpenInvoice is an invoice with money still owed on it. TotalPaid and
// BalanceDue are in the invoice's currency; CurrencyMismatch is set when an
// allocation in another currency carried no usable rate and was counted at
// face value.
type OpenInvoice struct {
	Invoice          domain.Invoice
	TotalPaid        decimal.Decimal
	BalanceDue       decimal.Decimal
	CurrencyMismatch bool
}

type Resolver struct {
	invoices    invoiceRepo
	allocations allocationRepo
}

func NewResolver(invoices invoiceRepo, allocations allocationRepo) *Resolver {
	return &Resolver{invoices: invoices, allocations: allocations}
}

// UnpaidInvoices returns the account's invoices that still carry a positive
// balance due. Fully paid and overpaid invoices are filtered out, never
// reported with a negative balance. The customer and supplier paths share the
// same conversion arithmetic.
func (r *Resolver) UnpaidInvoices(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID) ([]OpenInvoice, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("UnpaidInvoices: kind %q: %w", kind, domain.ErrInvalidRequest)
	}
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("UnpaidInvoices: %w", domain.ErrNoAccount)
	}

	invoices, err := r.invoices.ListByAccount(ctx, kind, accountID)
	if err != nil {
		return nil, fmt.Errorf("UnpaidInvoices: %w", err)
	}
	if len(invoices) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}

	allocations, err := r.allocations.ListForInvoices(ctx, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("UnpaidInvoices: %w", err)
	}

	paid, mismatched := PaidPerInvoice(invoices, allocations)

	var open []OpenInvoice
	for _, inv := range invoices {
		totalPaid := paid[inv.ID]
		balanceDue := inv.TotalValue.Sub(totalPaid)
		if balanceDue.Sign() <= 0 {
			continue
		}
		open = append(open, OpenInvoice{
			Invoice:          inv,
			TotalPaid:        totalPaid,
			BalanceDue:       balanceDue,
			CurrencyMismatch: mismatched[inv.ID],
		})
	}
	return open, nil
}

// PaidPerInvoice aggregates non-void allocations into per-invoice totals in
// each invoice's currency, converting through the owning payment's rate pair.
// Shared with the allocation writer's in-transaction re-check so both sides
// agree on the arithmetic.
func PaidPerInvoice(invoices []domain.Invoice, allocations []repository.AllocationWithPayment) (map[uuid.UUID]decimal.Decimal, map[uuid.UUID]bool) {
	currencies := make(map[uuid.UUID]domain.Currency, len(invoices))
	for _, inv := range invoices {
		currencies[inv.ID] = inv.Currency
	}

	paid := make(map[uuid.UUID]decimal.Decimal, len(invoices))
	mismatched := make(map[uuid.UUID]bool)
	for _, a := range allocations {
		if a.PaymentStatus == domain.PaymentStatusVoid {
			continue
		}
		invoiceCurrency, ok := currencies[a.InvoiceID]
		if !ok {
			continue
		}
		amount, converted := domain.AllocatedInInvoiceCurrency(a.Amount, a.Currency, invoiceCurrency, a.Rate)
		if !converted {
			mismatched[a.InvoiceID] = true
		}
		paid[a.InvoiceID] = paid[a.InvoiceID].Add(amount)
	}
	return paid, mismatched
}
