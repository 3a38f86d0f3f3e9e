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

const paymentColumns = `id, direction, customer_id, supplier_id, order_id, purchase_order_id,
	amount, currency, exchange_rate, rate_from, rate_to, rate_as_of,
	payment_method, reference_number, paid_at, receipt_url, status, metadata,
	created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error {
	var customerID, supplierID, orderID, purchaseOrderID uuid.NullUUID
	if p.Direction == domain.DirectionOutgoing {
		supplierID = uuid.NullUUID{UUID: p.AccountID, Valid: true}
		if p.InvoiceID != nil {
			purchaseOrderID = uuid.NullUUID{UUID: *p.InvoiceID, Valid: true}
		}
	} else {
		customerID = uuid.NullUUID{UUID: p.AccountID, Valid: true}
		if p.InvoiceID != nil {
			orderID = uuid.NullUUID{UUID: *p.InvoiceID, Valid: true}
		}
	}

	var rate decimal.NullDecimal
	var rateFrom, rateTo *string
	var rateAsOf sql.NullTime
	if p.Rate != nil {
		rate = decimal.NullDecimal{Decimal: p.Rate.Rate, Valid: true}
		from, to := string(p.Rate.From), string(p.Rate.To)
		rateFrom, rateTo = &from, &to
		rateAsOf = sql.NullTime{Time: p.Rate.AsOf, Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO financial_records (
			id, direction, customer_id, supplier_id, order_id, purchase_order_id,
			amount, currency, exchange_rate, rate_from, rate_to, rate_as_of,
			payment_method, reference_number, paid_at, receipt_url, status, metadata,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`,
		p.ID, p.Direction, customerID, supplierID, orderID, purchaseOrderID,
		p.Amount, p.Currency, rate, rateFrom, rateTo, rateAsOf,
		p.PaymentMethod, p.ReferenceNumber, p.PaidAt, p.ReceiptURL, p.Status, []byte(p.Metadata),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM financial_records WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

// GetForUpdate locks the payment row; used by void to serialize against
// concurrent reversals.
func (r *PaymentRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM financial_records WHERE id = $1 FOR UPDATE`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return p, nil
}

// ListByAccount returns the account's non-void payments ordered by payment
// date, then insertion order.
func (r *PaymentRepository) ListByAccount(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID) ([]domain.Payment, error) {
	column := "customer_id"
	if kind == domain.InvoiceKindSupplier {
		column = "supplier_id"
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM financial_records
		WHERE `+column+` = $1 AND status <> 'void'
		ORDER BY paid_at, created_at`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PaymentStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE financial_records SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	var customerID, supplierID, orderID, purchaseOrderID uuid.NullUUID
	var rate decimal.NullDecimal
	var rateFrom, rateTo *string
	var rateAsOf sql.NullTime
	var metadata *[]byte

	err := s.Scan(
		&p.ID, &p.Direction, &customerID, &supplierID, &orderID, &purchaseOrderID,
		&p.Amount, &p.Currency, &rate, &rateFrom, &rateTo, &rateAsOf,
		&p.PaymentMethod, &p.ReferenceNumber, &p.PaidAt, &p.ReceiptURL, &p.Status, &metadata,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case customerID.Valid:
		p.AccountID = customerID.UUID
	case supplierID.Valid:
		p.AccountID = supplierID.UUID
	}
	if orderID.Valid {
		p.InvoiceID = &orderID.UUID
	}
	if purchaseOrderID.Valid {
		p.InvoiceID = &purchaseOrderID.UUID
	}

	if rate.Valid && rateFrom != nil && rateTo != nil {
		r := domain.ExchangeRate{
			From: domain.Currency(*rateFrom),
			To:   domain.Currency(*rateTo),
			Rate: rate.Decimal,
		}
		if rateAsOf.Valid {
			r.AsOf = rateAsOf.Time
		}
		p.Rate = &r
	}
	if metadata != nil {
		p.Metadata = *metadata
	}

	return &p, nil
}
