package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
)

const orderColumns = `id, customer_id, number, total_value, currency, status, created_at`

const purchaseOrderColumns = `id, supplier_id, number, total_value, currency, status,
	factory_deposit_amount, factory_balance_amount, factory_deposit_paid_at, created_at`

// InvoiceRepository reads customer orders and supplier purchase orders as
// invoices. The two tables are owned by the surrounding order-management
// modules; the only mutation allowed from here is the atomic deposit-tracking
// increment on purchase orders.
type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// ListByAccount returns the account's non-cancelled invoices in creation
// order.
func (r *InvoiceRepository) ListByAccount(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID) ([]domain.Invoice, error) {
	var query string
	if kind == domain.InvoiceKindSupplier {
		query = `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders
			WHERE supplier_id = $1 AND status <> 'cancelled' ORDER BY created_at, number`
	} else {
		query = `SELECT ` + orderColumns + ` FROM orders
			WHERE customer_id = $1 AND status <> 'cancelled' ORDER BY created_at, number`
	}

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return invoices, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, kind domain.InvoiceKind, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := r.get(ctx, r.db.QueryRowContext, kind, id, "")
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

// GetForUpdate locks the invoice row for the duration of the transaction.
// Callers lock multiple invoices in ascending UUID order to avoid deadlocks.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, kind domain.InvoiceKind, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := r.get(ctx, tx.QueryRowContext, kind, id, " FOR UPDATE")
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return inv, nil
}

type queryRowFunc func(ctx context.Context, query string, args ...any) *sql.Row

func (r *InvoiceRepository) get(ctx context.Context, queryRow queryRowFunc, kind domain.InvoiceKind, id uuid.UUID, suffix string) (*domain.Invoice, error) {
	var query string
	if kind == domain.InvoiceKindSupplier {
		query = `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE id = $1` + suffix
	} else {
		query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1` + suffix
	}

	inv, err := scanInvoice(queryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

// AddDepositPaid moves the purchase order's cached deposit-paid figure by
// delta (invoice currency) in a single atomic statement. Negative deltas
// reverse a voided payment's contribution and do not restamp the paid-at
// time.
func (r *InvoiceRepository) AddDepositPaid(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	var query string
	if delta.Sign() >= 0 {
		query = `UPDATE purchase_orders
			SET factory_deposit_amount = factory_deposit_amount + $1,
			    factory_deposit_paid_at = now()
			WHERE id = $2`
	} else {
		query = `UPDATE purchase_orders
			SET factory_deposit_amount = factory_deposit_amount + $1
			WHERE id = $2`
	}

	res, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("AddDepositPaid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("AddDepositPaid: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("AddDepositPaid: %w", domain.ErrNotFound)
	}
	return nil
}

func scanInvoice(s scanner, kind domain.InvoiceKind) (*domain.Invoice, error) {
	inv := domain.Invoice{Kind: kind}

	var err error
	if kind == domain.InvoiceKindSupplier {
		err = s.Scan(
			&inv.ID, &inv.AccountID, &inv.Number, &inv.TotalValue, &inv.Currency,
			&inv.Status, &inv.DepositPaid, &inv.BalancePaid, &inv.DepositPaidAt,
			&inv.CreatedAt,
		)
	} else {
		err = s.Scan(
			&inv.ID, &inv.AccountID, &inv.Number, &inv.TotalValue, &inv.Currency,
			&inv.Status, &inv.CreatedAt,
		)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
