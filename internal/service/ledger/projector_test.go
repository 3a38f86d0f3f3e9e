package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/orbitrade/finance-backend/internal/domain"
)

type fakeInvoices struct {
	invoices []domain.Invoice
}

func (f *fakeInvoices) ListByAccount(_ context.Context, _ domain.InvoiceKind, _ uuid.UUID) ([]domain.Invoice, error) {
	return f.invoices, nil
}

type fakePayments struct {
	payments []domain.Payment
}

func (f *fakePayments) ListByAccount(_ context.Context, _ domain.InvoiceKind, _ uuid.UUID) ([]domain.Payment, error) {
	return f.payments, nil
}

type fakeAllocations struct {
	refs map[uuid.UUID][]string
}

func (f *fakeAllocations) InvoiceNumbersByPayment(_ context.Context, _ []uuid.UUID) (map[uuid.UUID][]string, error) {
	return f.refs, nil
}

type fakeCounterparts struct {
	name string
}

func (f *fakeCounterparts) Get(_ context.Context, kind domain.InvoiceKind, id uuid.UUID) (*domain.Counterpart, error) {
	return &domain.Counterpart{ID: id, Kind: kind, Name: f.name}, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestProjector(invoices []domain.Invoice, payments []domain.Payment, refs map[uuid.UUID][]string) *Projector {
	return NewProjector(
		&fakeInvoices{invoices: invoices},
		&fakePayments{payments: payments},
		&fakeAllocations{refs: refs},
		&fakeCounterparts{name: "Acme Trading Co"},
	)
}

func TestBuildLedgerRunningBalance(t *testing.T) {
	accountID := uuid.New()
	invoiceID := uuid.New()
	paymentID := uuid.New()

	invoices := []domain.Invoice{{
		ID:         invoiceID,
		Kind:       domain.InvoiceKindCustomer,
		AccountID:  accountID,
		Number:     "SO-1001",
		TotalValue: decimal.NewFromInt(1000),
		Currency:   domain.CurrencyUSD,
		Status:     domain.InvoiceStatusConfirmed,
		CreatedAt:  date(2026, time.January, 1),
	}}
	payments := []domain.Payment{{
		ID:        paymentID,
		Direction: domain.DirectionIncoming,
		AccountID: accountID,
		Amount:    decimal.NewFromInt(300),
		Currency:  domain.CurrencyUSD,
		Status:    domain.PaymentStatusCompleted,
		PaidAt:    date(2026, time.January, 5),
	}}
	refs := map[uuid.UUID][]string{paymentID: {"SO-1001"}}

	p := newTestProjector(invoices, payments, refs)
	stmt, err := p.BuildLedger(context.Background(), domain.InvoiceKindCustomer, accountID, Filter{})
	require.NoError(t, err)

	require.Equal(t, "Acme Trading Co", stmt.AccountName)
	require.Len(t, stmt.Entries, 2)

	require.Equal(t, 1, stmt.Entries[0].Serial)
	require.Equal(t, domain.LedgerDescInvoiceCreated, stmt.Entries[0].Description)
	require.Equal(t, "SO-1001", stmt.Entries[0].Reference)
	require.True(t, stmt.Entries[0].Balance.Equal(decimal.NewFromInt(1000)))
	require.Equal(t, domain.LedgerRemarkOpen, stmt.Entries[0].Remark)

	require.Equal(t, 2, stmt.Entries[1].Serial)
	require.Equal(t, domain.LedgerDescPaymentReceived, stmt.Entries[1].Description)
	require.Equal(t, "SO-1001", stmt.Entries[1].Reference)
	require.True(t, stmt.Entries[1].Balance.Equal(decimal.NewFromInt(700)))

	require.True(t, stmt.Totals.TotalDebit.Equal(decimal.NewFromInt(1000)))
	require.True(t, stmt.Totals.TotalCredit.Equal(decimal.NewFromInt(300)))
	require.True(t, stmt.Totals.Balance.Equal(decimal.NewFromInt(700)))
	require.Equal(t, 1, stmt.Totals.OpenInvoices)
}

func TestBuildLedgerSameDayInvoiceFirst(t *testing.T) {
	accountID := uuid.New()
	paymentID := uuid.New()
	day := date(2026, time.March, 10)

	invoices := []domain.Invoice{{
		ID:         uuid.New(),
		Number:     "PO-77",
		TotalValue: decimal.NewFromInt(500),
		Status:     domain.InvoiceStatusConfirmed,
		CreatedAt:  day,
	}}
	payments := []domain.Payment{{
		ID:     paymentID,
		Amount: decimal.NewFromInt(500),
		Status: domain.PaymentStatusCompleted,
		PaidAt: day,
	}}

	p := newTestProjector(invoices, payments, map[uuid.UUID][]string{paymentID: {"PO-77"}})
	stmt, err := p.BuildLedger(context.Background(), domain.InvoiceKindSupplier, accountID, Filter{})
	require.NoError(t, err)

	require.Len(t, stmt.Entries, 2)
	require.Equal(t, domain.LedgerDescInvoiceCreated, stmt.Entries[0].Description)
	require.Equal(t, domain.LedgerDescPaymentSent, stmt.Entries[1].Description)
	require.True(t, stmt.Entries[1].Balance.IsZero())
}

func TestBuildLedgerMultiInvoicePaymentReference(t *testing.T) {
	accountID := uuid.New()
	paymentID := uuid.New()

	invoices := []domain.Invoice{
		{ID: uuid.New(), Number: "PO-1", TotalValue: decimal.NewFromInt(200), Status: domain.InvoiceStatusConfirmed, CreatedAt: date(2026, time.February, 1)},
		{ID: uuid.New(), Number: "PO-2", TotalValue: decimal.NewFromInt(300), Status: domain.InvoiceStatusConfirmed, CreatedAt: date(2026, time.February, 2)},
	}
	payments := []domain.Payment{{
		ID:     paymentID,
		Amount: decimal.NewFromInt(500),
		Status: domain.PaymentStatusCompleted,
		PaidAt: date(2026, time.February, 3),
	}}

	p := newTestProjector(invoices, payments, map[uuid.UUID][]string{paymentID: {"PO-1", "PO-2"}})
	stmt, err := p.BuildLedger(context.Background(), domain.InvoiceKindSupplier, accountID, Filter{})
	require.NoError(t, err)

	require.Len(t, stmt.Entries, 3)
	require.Equal(t, "PO-1/PO-2", stmt.Entries[2].Reference)
}

func TestBuildLedgerFiltersAreDisplayOnly(t *testing.T) {
	accountID := uuid.New()
	paymentID := uuid.New()

	invoices := []domain.Invoice{
		{ID: uuid.New(), Number: "SO-1", TotalValue: decimal.NewFromInt(1000), Status: domain.InvoiceStatusCompleted, CreatedAt: date(2026, time.January, 1)},
		{ID: uuid.New(), Number: "SO-2", TotalValue: decimal.NewFromInt(400), Status: domain.InvoiceStatusConfirmed, CreatedAt: date(2026, time.April, 1)},
	}
	payments := []domain.Payment{{
		ID:     paymentID,
		Amount: decimal.NewFromInt(1000),
		Status: domain.PaymentStatusCompleted,
		PaidAt: date(2026, time.January, 5),
	}}

	p := newTestProjector(invoices, payments, map[uuid.UUID][]string{paymentID: {"SO-1"}})

	from := date(2026, time.March, 1)
	stmt, err := p.BuildLedger(context.Background(), domain.InvoiceKindCustomer, accountID, Filter{From: &from})
	require.NoError(t, err)

	// Only the April invoice is rendered, but it keeps its full-stream
	// serial and running balance, and totals still cover everything.
	require.Len(t, stmt.Entries, 1)
	require.Equal(t, "SO-2", stmt.Entries[0].Reference)
	require.Equal(t, 3, stmt.Entries[0].Serial)
	require.True(t, stmt.Entries[0].Balance.Equal(decimal.NewFromInt(400)))

	require.True(t, stmt.Totals.TotalDebit.Equal(decimal.NewFromInt(1400)))
	require.True(t, stmt.Totals.TotalCredit.Equal(decimal.NewFromInt(1000)))
	require.True(t, stmt.Totals.Balance.Equal(decimal.NewFromInt(400)))
}

func TestBuildLedgerRemarkFilterKeepsPayments(t *testing.T) {
	accountID := uuid.New()
	paymentID := uuid.New()

	invoices := []domain.Invoice{
		{ID: uuid.New(), Number: "SO-1", TotalValue: decimal.NewFromInt(1000), Status: domain.InvoiceStatusCompleted, CreatedAt: date(2026, time.January, 1)},
		{ID: uuid.New(), Number: "SO-2", TotalValue: decimal.NewFromInt(400), Status: domain.InvoiceStatusConfirmed, CreatedAt: date(2026, time.January, 2)},
	}
	payments := []domain.Payment{{
		ID:     paymentID,
		Amount: decimal.NewFromInt(1000),
		Status: domain.PaymentStatusCompleted,
		PaidAt: date(2026, time.January, 5),
	}}

	p := newTestProjector(invoices, payments, map[uuid.UUID][]string{paymentID: {"SO-1"}})
	stmt, err := p.BuildLedger(context.Background(), domain.InvoiceKindCustomer, accountID, Filter{Remark: domain.LedgerRemarkOpen})
	require.NoError(t, err)

	require.Len(t, stmt.Entries, 2)
	require.Equal(t, "SO-2", stmt.Entries[0].Reference)
	require.Equal(t, domain.LedgerDescPaymentReceived, stmt.Entries[1].Description)
}

func TestBuildLedgerRejectsBadInput(t *testing.T) {
	p := newTestProjector(nil, nil, nil)

	_, err := p.BuildLedger(context.Background(), "vendor", uuid.New(), Filter{})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = p.BuildLedger(context.Background(), domain.InvoiceKindCustomer, uuid.Nil, Filter{})
	require.ErrorIs(t, err, domain.ErrNoAccount)

	_, err = p.BuildLedger(context.Background(), domain.InvoiceKindCustomer, uuid.New(), Filter{Remark: "overdue"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
