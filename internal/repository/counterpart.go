package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitrade/finance-backend/internal/domain"
)

// CounterpartRepository reads customers and suppliers. Both tables carry the
// same shape; the invoice kind picks the table.
type CounterpartRepository struct {
	db *sql.DB
}

func NewCounterpartRepository(db *sql.DB) *CounterpartRepository {
	return &CounterpartRepository{db: db}
}

func counterpartTable(kind domain.InvoiceKind) string {
	if kind == domain.InvoiceKindSupplier {
		return "suppliers"
	}
	return "customers"
}

func (r *CounterpartRepository) Get(ctx context.Context, kind domain.InvoiceKind, id uuid.UUID) (*domain.Counterpart, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, currency, created_at FROM `+counterpartTable(kind)+` WHERE id = $1`, id,
	)

	c := domain.Counterpart{Kind: kind}
	err := row.Scan(&c.ID, &c.Name, &c.Currency, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &c, nil
}
