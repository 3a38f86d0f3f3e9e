package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
)

func SeedCustomer(t *testing.T, db *sql.DB, name string, currency domain.Currency) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO customers (id, name, currency) VALUES ($1, $2, $3)`,
		id, name, currency,
	)
	if err != nil {
		t.Fatalf("seed customer %s: %v", name, err)
	}
	return id
}

func SeedSupplier(t *testing.T, db *sql.DB, name string, currency domain.Currency) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO suppliers (id, name, currency) VALUES ($1, $2, $3)`,
		id, name, currency,
	)
	if err != nil {
		t.Fatalf("seed supplier %s: %v", name, err)
	}
	return id
}

func SeedOrder(t *testing.T, db *sql.DB, customerID uuid.UUID, number string, total decimal.Decimal, currency domain.Currency, status domain.InvoiceStatus, createdAt time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO orders (id, customer_id, number, total_value, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, customerID, number, total, currency, status, createdAt,
	)
	if err != nil {
		t.Fatalf("seed order %s: %v", number, err)
	}
	return id
}

func SeedPurchaseOrder(t *testing.T, db *sql.DB, supplierID uuid.UUID, number string, total decimal.Decimal, currency domain.Currency, status domain.InvoiceStatus, createdAt time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO purchase_orders (id, supplier_id, number, total_value, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, supplierID, number, total, currency, status, createdAt,
	)
	if err != nil {
		t.Fatalf("seed purchase order %s: %v", number, err)
	}
	return id
}

func GetDepositPaid(t *testing.T, db *sql.DB, purchaseOrderID uuid.UUID) decimal.Decimal {
	t.Helper()

	var deposit decimal.Decimal
	err := db.QueryRow(
		`SELECT factory_deposit_amount FROM purchase_orders WHERE id = $1`, purchaseOrderID,
	).Scan(&deposit)
	if err != nil {
		t.Fatalf("get deposit paid %s: %v", purchaseOrderID, err)
	}
	return deposit
}

func CountActivityRows(t *testing.T, db *sql.DB, collection string, documentID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM activity_log WHERE collection = $1 AND document_id = $2`,
		collection, documentID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count activity rows for %s: %v", documentID, err)
	}
	return count
}

func CountPendingOutbox(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM outbox_events WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		t.Fatalf("count pending outbox events: %v", err)
	}
	return count
}
