package allocation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/fx"
	"github.com/orbitrade/finance-backend/internal/repository"
	"github.com/orbitrade/finance-backend/internal/service/balance"
	"github.com/orbitrade/finance-backend/internal/testutil"
)

func setupWriter(t *testing.T, db *sql.DB) (*Writer, *balance.Resolver) {
	t.Helper()

	advisor, err := fx.Parse("USD_CNY=7.2")
	require.NoError(t, err)

	invoices := repository.NewInvoiceRepository(db)
	allocations := repository.NewAllocationRepository(db)

	writer := NewWriter(
		invoices,
		repository.NewPaymentRepository(db),
		allocations,
		repository.NewActivityRepository(db),
		repository.NewOutboxRepository(db),
		advisor,
		db,
	)
	resolver := balance.NewResolver(invoices, allocations)
	return writer, resolver
}

func usdRate(to domain.Currency, rate string) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		From: domain.CurrencyUSD,
		To:   to,
		Rate: decimal.RequireFromString(rate),
		AsOf: time.Now().UTC(),
	}
}

func TestRecordPaymentPartialAllocation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	writer, resolver := setupWriter(t, db)
	ctx := context.Background()

	customerID := testutil.SeedCustomer(t, db, "Acme Trading Co", domain.CurrencyUSD)
	invoiceID := testutil.SeedOrder(t, db, customerID, "SO-1001",
		decimal.NewFromInt(1000), domain.CurrencyUSD, domain.InvoiceStatusConfirmed, time.Now().UTC())

	result, err := writer.RecordPayment(ctx, RecordRequest{
		Direction: domain.DirectionIncoming,
		AccountID: customerID,
		Currency:  domain.CurrencyUSD,
		Allocations: []AllocationInput{
			{InvoiceID: invoiceID, Amount: decimal.NewFromInt(300)},
		},
		PaymentMethod:   "wire",
		ReferenceNumber: "WIRE-42",
		PaidAt:          time.Now().UTC(),
		Actor:           "ops@test",
	})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(300)))
	require.Len(t, result.Allocations, 1)

	open, err := resolver.UnpaidInvoices(ctx, domain.InvoiceKindCustomer, customerID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.True(t, open[0].BalanceDue.Equal(decimal.NewFromInt(700)))

	require.Equal(t, 1, testutil.CountActivityRows(t, db, "orders", invoiceID))

	p, allocations, err := writer.GetPayment(ctx, result.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusCompleted, p.Status)
	require.Len(t, allocations, 1)
	require.Equal(t, invoiceID, allocations[0].InvoiceID)
}

func TestRecordPaymentRejectsOverAllocation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	writer, _ := setupWriter(t, db)
	ctx := context.Background()

	customerID := testutil.SeedCustomer(t, db, "Acme Trading Co", domain.CurrencyUSD)
	invoiceID := testutil.SeedOrder(t, db, customerID, "SO-2001",
		decimal.NewFromInt(1000), domain.CurrencyUSD, domain.InvoiceStatusConfirmed, time.Now().UTC())

	record := func(amount int64) error {
		_, err := writer.RecordPayment(ctx, RecordRequest{
			Direction: domain.DirectionIncoming,
			AccountID: customerID,
			Currency:  domain.CurrencyUSD,
			Allocations: []AllocationInput{
				{InvoiceID: invoiceID, Amount: decimal.NewFromInt(amount)},
			},
			PaidAt: time.Now().UTC(),
			Actor:  "ops@test",
		})
		return err
	}

	require.ErrorIs(t, record(1100), domain.ErrOverAllocation)
	require.NoError(t, record(300))

	// The balance re-check sees the earlier 300.
	require.ErrorIs(t, record(800), domain.ErrOverAllocation)
	require.NoError(t, record(700))
}

func TestRecordOutgoingCrossCurrencySettlesDeposit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	writer, resolver := setupWriter(t, db)
	ctx := context.Background()

	supplierID := testutil.SeedSupplier(t, db, "Shenzhen Factory Ltd", domain.CurrencyCNY)
	poID := testutil.SeedPurchaseOrder(t, db, supplierID, "PO-3001",
		decimal.NewFromInt(7200), domain.CurrencyCNY, domain.InvoiceStatusConfirmed, time.Now().UTC())

	result, err := writer.RecordPayment(ctx, RecordRequest{
		Direction: domain.DirectionOutgoing,
		AccountID: supplierID,
		Currency:  domain.CurrencyUSD,
		Rate:      usdRate(domain.CurrencyCNY, "7.2"),
		Allocations: []AllocationInput{
			{InvoiceID: poID, Amount: decimal.NewFromInt(1000)},
		},
		PaymentMethod: "wire",
		PaidAt:        time.Now().UTC(),
		Actor:         "ops@test",
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)

	// 1000 USD at 7.2 fully settles the 7200 CNY purchase order.
	open, err := resolver.UnpaidInvoices(ctx, domain.InvoiceKindSupplier, supplierID)
	require.NoError(t, err)
	require.Empty(t, open)

	deposit := testutil.GetDepositPaid(t, db, poID)
	require.True(t, deposit.Equal(decimal.NewFromInt(7200)), "deposit paid = %s", deposit)

	// Outgoing payments enqueue a counterpart notification.
	require.Equal(t, 1, testutil.CountPendingOutbox(t, db))
}

func TestRecordPaymentWithoutRateCountsFaceValue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	writer, resolver := setupWriter(t, db)
	ctx := context.Background()

	supplierID := testutil.SeedSupplier(t, db, "Shenzhen Factory Ltd", domain.CurrencyCNY)
	poID := testutil.SeedPurchaseOrder(t, db, supplierID, "PO-4001",
		decimal.NewFromInt(7200), domain.CurrencyCNY, domain.InvoiceStatusConfirmed, time.Now().UTC())

	result, err := writer.RecordPayment(ctx, RecordRequest{
		Direction: domain.DirectionOutgoing,
		AccountID: supplierID,
		Currency:  domain.CurrencyUSD,
		Allocations: []AllocationInput{
			{InvoiceID: poID, Amount: decimal.NewFromInt(1000)},
		},
		PaidAt: time.Now().UTC(),
		Actor:  "ops@test",
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "face value")

	// Without a rate the 1000 USD counts as 1000 against 7200 CNY.
	open, err := resolver.UnpaidInvoices(ctx, domain.InvoiceKindSupplier, supplierID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.True(t, open[0].BalanceDue.Equal(decimal.NewFromInt(6200)))
	require.True(t, open[0].CurrencyMismatch)
}

func TestVoidPaymentRestoresBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	writer, resolver := setupWriter(t, db)
	ctx := context.Background()

	supplierID := testutil.SeedSupplier(t, db, "Shenzhen Factory Ltd", domain.CurrencyCNY)
	poID := testutil.SeedPurchaseOrder(t, db, supplierID, "PO-5001",
		decimal.NewFromInt(7200), domain.CurrencyCNY, domain.InvoiceStatusConfirmed, time.Now().UTC())

	result, err := writer.RecordPayment(ctx, RecordRequest{
		Direction: domain.DirectionOutgoing,
		AccountID: supplierID,
		Currency:  domain.CurrencyUSD,
		Rate:      usdRate(domain.CurrencyCNY, "7.2"),
		Allocations: []AllocationInput{
			{InvoiceID: poID, Amount: decimal.NewFromInt(1000)},
		},
		PaidAt: time.Now().UTC(),
		Actor:  "ops@test",
	})
	require.NoError(t, err)

	voided, err := writer.VoidPayment(ctx, result.Payment.ID, "ops@test")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusVoid, voided.Status)

	// Balance due comes back in full and the deposit tracking reverses.
	open, err := resolver.UnpaidInvoices(ctx, domain.InvoiceKindSupplier, supplierID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.True(t, open[0].BalanceDue.Equal(decimal.NewFromInt(7200)))

	deposit := testutil.GetDepositPaid(t, db, poID)
	require.True(t, deposit.IsZero(), "deposit paid = %s", deposit)

	// Voiding twice is rejected.
	_, err = writer.VoidPayment(ctx, result.Payment.ID, "ops@test")
	require.ErrorIs(t, err, domain.ErrPaymentVoid)
}

func TestRecordPaymentRejectsCancelledInvoice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	writer, _ := setupWriter(t, db)
	ctx := context.Background()

	customerID := testutil.SeedCustomer(t, db, "Acme Trading Co", domain.CurrencyUSD)
	invoiceID := testutil.SeedOrder(t, db, customerID, "SO-6001",
		decimal.NewFromInt(1000), domain.CurrencyUSD, domain.InvoiceStatusCancelled, time.Now().UTC())

	_, err := writer.RecordPayment(ctx, RecordRequest{
		Direction: domain.DirectionIncoming,
		AccountID: customerID,
		Currency:  domain.CurrencyUSD,
		Allocations: []AllocationInput{
			{InvoiceID: invoiceID, Amount: decimal.NewFromInt(100)},
		},
		PaidAt: time.Now().UTC(),
		Actor:  "ops@test",
	})
	require.ErrorIs(t, err, domain.ErrInvoiceCancelled)
}
