package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
)

// AllocationWithPayment is an allocation joined with the fields of its owning
// payment needed for balance arithmetic.
type AllocationWithPayment struct {
	domain.Allocation
	PaymentStatus domain.PaymentStatus
	Rate          *domain.ExchangeRate
}

type AllocationRepository struct {
	db *sql.DB
}

func NewAllocationRepository(db *sql.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) Create(ctx context.Context, tx *sql.Tx, a *domain.Allocation) error {
	var orderID, purchaseOrderID uuid.NullUUID
	if a.InvoiceKind == domain.InvoiceKindSupplier {
		purchaseOrderID = uuid.NullUUID{UUID: a.InvoiceID, Valid: true}
	} else {
		orderID = uuid.NullUUID{UUID: a.InvoiceID, Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO payment_allocations (
			id, financial_record_id, order_id, purchase_order_id,
			allocated_amount, currency, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PaymentID, orderID, purchaseOrderID, a.Amount, a.Currency, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListForInvoices returns all non-void allocations against the given
// invoices, in insertion order.
func (r *AllocationRepository) ListForInvoices(ctx context.Context, kind domain.InvoiceKind, invoiceIDs []uuid.UUID) ([]AllocationWithPayment, error) {
	return listForInvoices(ctx, r.db, kind, invoiceIDs)
}

// ListForInvoicesTx is ListForInvoices inside a transaction, used for the
// in-transaction balance re-check while invoice rows are locked.
func (r *AllocationRepository) ListForInvoicesTx(ctx context.Context, tx *sql.Tx, kind domain.InvoiceKind, invoiceIDs []uuid.UUID) ([]AllocationWithPayment, error) {
	return listForInvoices(ctx, tx, kind, invoiceIDs)
}

func listForInvoices(ctx context.Context, q querier, kind domain.InvoiceKind, invoiceIDs []uuid.UUID) ([]AllocationWithPayment, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}

	column := "order_id"
	if kind == domain.InvoiceKindSupplier {
		column = "purchase_order_id"
	}

	ids := make([]string, len(invoiceIDs))
	for i, id := range invoiceIDs {
		ids[i] = id.String()
	}

	rows, err := q.QueryContext(ctx,
		`SELECT a.id, a.financial_record_id, a.`+column+`, a.allocated_amount, a.currency, a.created_at,
			f.status, f.exchange_rate, f.rate_from, f.rate_to, f.rate_as_of
		FROM payment_allocations a
		JOIN financial_records f ON f.id = a.financial_record_id
		WHERE a.`+column+` = ANY($1::uuid[]) AND f.status <> 'void'
		ORDER BY a.created_at, a.id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("listForInvoices: %w", err)
	}
	defer rows.Close()

	var allocations []AllocationWithPayment
	for rows.Next() {
		var a AllocationWithPayment
		var rate decimal.NullDecimal
		var rateFrom, rateTo *string
		var rateAsOf sql.NullTime

		err := rows.Scan(
			&a.ID, &a.PaymentID, &a.InvoiceID, &a.Amount, &a.Currency, &a.CreatedAt,
			&a.PaymentStatus, &rate, &rateFrom, &rateTo, &rateAsOf,
		)
		if err != nil {
			return nil, fmt.Errorf("listForInvoices: scan: %w", err)
		}
		a.InvoiceKind = kind

		if rate.Valid && rateFrom != nil && rateTo != nil {
			r := domain.ExchangeRate{
				From: domain.Currency(*rateFrom),
				To:   domain.Currency(*rateTo),
				Rate: rate.Decimal,
			}
			if rateAsOf.Valid {
				r.AsOf = rateAsOf.Time
			}
			a.Rate = &r
		}

		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listForInvoices: rows: %w", err)
	}
	return allocations, nil
}

// ListByPayment returns a payment's allocations in insertion order,
// regardless of payment status.
func (r *AllocationRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]domain.Allocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, financial_record_id, order_id, purchase_order_id,
			allocated_amount, currency, created_at
		FROM payment_allocations
		WHERE financial_record_id = $1
		ORDER BY created_at, id`, paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByPayment: %w", err)
	}
	defer rows.Close()

	var allocations []domain.Allocation
	for rows.Next() {
		var a domain.Allocation
		var orderID, purchaseOrderID uuid.NullUUID
		err := rows.Scan(&a.ID, &a.PaymentID, &orderID, &purchaseOrderID, &a.Amount, &a.Currency, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ListByPayment: scan: %w", err)
		}
		if purchaseOrderID.Valid {
			a.InvoiceID = purchaseOrderID.UUID
			a.InvoiceKind = domain.InvoiceKindSupplier
		} else {
			a.InvoiceID = orderID.UUID
			a.InvoiceKind = domain.InvoiceKindCustomer
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByPayment: rows: %w", err)
	}
	return allocations, nil
}

// InvoiceNumbersByPayment maps each payment id to the numbers of the invoices
// it was allocated against, in allocation order. Feeds the ledger's reference
// column.
func (r *AllocationRepository) InvoiceNumbersByPayment(ctx context.Context, paymentIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	if len(paymentIDs) == 0 {
		return map[uuid.UUID][]string{}, nil
	}

	ids := make([]string, len(paymentIDs))
	for i, id := range paymentIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.financial_record_id, COALESCE(o.number, po.number, '')
		FROM payment_allocations a
		LEFT JOIN orders o ON o.id = a.order_id
		LEFT JOIN purchase_orders po ON po.id = a.purchase_order_id
		WHERE a.financial_record_id = ANY($1::uuid[])
		ORDER BY a.created_at, a.id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("InvoiceNumbersByPayment: %w", err)
	}
	defer rows.Close()

	refs := make(map[uuid.UUID][]string)
	for rows.Next() {
		var paymentID uuid.UUID
		var number string
		if err := rows.Scan(&paymentID, &number); err != nil {
			return nil, fmt.Errorf("InvoiceNumbersByPayment: scan: %w", err)
		}
		refs[paymentID] = append(refs[paymentID], number)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("InvoiceNumbersByPayment: rows: %w", err)
	}
	return refs, nil
}
