// Package ledger projects an account statement from invoices and payments.
// Every row is derived on demand; nothing here is persisted.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
)

type invoiceRepo interface {
	ListByAccount(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID) ([]domain.Invoice, error)
}

type paymentRepo interface {
	ListByAccount(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID) ([]domain.Payment, error)
}

type allocationRepo interface {
	InvoiceNumbersByPayment(ctx context.Context, paymentIDs []uuid.UUID) (map[uuid.UUID][]string, error)
}

type counterpartRepo interface {
	Get(ctx context.Context, kind domain.InvoiceKind, id uuid.UUID) (*domain.Counterpart, error)
}

// Filter narrows which rows of the statement are rendered. It is strictly a
// display lens: serials, running balances, and totals are always computed over
// the full stream first, then rows outside the window are dropped.
type Filter struct {
	From *time.Time
	To   *time.Time
	// Remark keeps only invoice rows with the given remark ("open" or
	// "closed"). Payment rows are always rendered.
	Remark string
}

type Projector struct {
	invoices     invoiceRepo
	payments     paymentRepo
	allocations  allocationRepo
	counterparts counterpartRepo
}

func NewProjector(invoices invoiceRepo, payments paymentRepo, allocations allocationRepo, counterparts counterpartRepo) *Projector {
	return &Projector{
		invoices:     invoices,
		payments:     payments,
		allocations:  allocations,
		counterparts: counterparts,
	}
}

// BuildLedger assembles the account statement: one debit row per
// non-cancelled invoice, one credit row per non-void payment, interleaved by
// date with invoices winning ties on the same day. The running balance is
// cumulative debit minus credit in stream order.
func (p *Projector) BuildLedger(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID, filter Filter) (*domain.LedgerStatement, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("BuildLedger: kind %q: %w", kind, domain.ErrInvalidRequest)
	}
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("BuildLedger: %w", domain.ErrNoAccount)
	}
	if filter.Remark != "" && filter.Remark != domain.LedgerRemarkOpen && filter.Remark != domain.LedgerRemarkClosed {
		return nil, fmt.Errorf("BuildLedger: remark %q: %w", filter.Remark, domain.ErrInvalidRequest)
	}

	counterpart, err := p.counterparts.Get(ctx, kind, accountID)
	if err != nil {
		return nil, fmt.Errorf("BuildLedger: %w", err)
	}

	invoices, err := p.invoices.ListByAccount(ctx, kind, accountID)
	if err != nil {
		return nil, fmt.Errorf("BuildLedger: %w", err)
	}
	payments, err := p.payments.ListByAccount(ctx, kind, accountID)
	if err != nil {
		return nil, fmt.Errorf("BuildLedger: %w", err)
	}

	paymentIDs := make([]uuid.UUID, len(payments))
	for i, pay := range payments {
		paymentIDs[i] = pay.ID
	}
	refs, err := p.allocations.InvoiceNumbersByPayment(ctx, paymentIDs)
	if err != nil {
		return nil, fmt.Errorf("BuildLedger: %w", err)
	}

	entries := assemble(kind, invoices, payments, refs)

	totals := domain.LedgerTotals{}
	for _, e := range entries {
		totals.TotalDebit = totals.TotalDebit.Add(e.Debit)
		totals.TotalCredit = totals.TotalCredit.Add(e.Credit)
	}
	totals.Balance = totals.TotalDebit.Sub(totals.TotalCredit)
	for _, inv := range invoices {
		if inv.Status.Open() {
			totals.OpenInvoices++
		}
	}

	return &domain.LedgerStatement{
		AccountID:   accountID,
		AccountName: counterpart.Name,
		GeneratedAt: time.Now().UTC(),
		Entries:     applyFilter(entries, filter),
		Totals:      totals,
	}, nil
}

// assemble builds the full dated stream with serials and running balances.
// Invoices are appended before payments so the stable sort keeps a same-day
// invoice ahead of the payment that settles it.
func assemble(kind domain.InvoiceKind, invoices []domain.Invoice, payments []domain.Payment, refs map[uuid.UUID][]string) []domain.LedgerEntry {
	credit := domain.LedgerDescPaymentReceived
	if kind == domain.InvoiceKindSupplier {
		credit = domain.LedgerDescPaymentSent
	}

	entries := make([]domain.LedgerEntry, 0, len(invoices)+len(payments))
	for _, inv := range invoices {
		remark := domain.LedgerRemarkClosed
		if inv.Status.Open() {
			remark = domain.LedgerRemarkOpen
		}
		entries = append(entries, domain.LedgerEntry{
			Date:        inv.CreatedAt,
			Description: domain.LedgerDescInvoiceCreated,
			Reference:   inv.Number,
			Debit:       inv.TotalValue,
			Remark:      remark,
		})
	}
	for _, pay := range payments {
		entries = append(entries, domain.LedgerEntry{
			Date:        pay.PaidAt,
			Description: credit,
			Reference:   strings.Join(refs[pay.ID], "/"),
			Credit:      pay.Amount,
			Remark:      pay.PaymentMethod,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	balance := decimal.Zero
	for i := range entries {
		balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
		entries[i].Serial = i + 1
		entries[i].Balance = balance
	}
	return entries
}

func applyFilter(entries []domain.LedgerEntry, f Filter) []domain.LedgerEntry {
	if f.From == nil && f.To == nil && f.Remark == "" {
		return entries
	}

	filtered := make([]domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if f.From != nil && e.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Date.After(*f.To) {
			continue
		}
		// Open/closed is an invoice property; payment rows always render.
		if f.Remark != "" && e.Debit.Sign() != 0 && e.Remark != f.Remark {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}
