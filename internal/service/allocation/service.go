// Package allocation implements the payment write path: recording a payment
// with its allocations as one atomic unit, and voiding it as the only
// supported reversal.
package allocation

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/fx"
	"github.com/orbitrade/finance-backend/internal/repository"
)

type invoiceRepo interface {
	GetByID(ctx context.Context, kind domain.InvoiceKind, id uuid.UUID) (*domain.Invoice, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, kind domain.InvoiceKind, id uuid.UUID) (*domain.Invoice, error)
	AddDepositPaid(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
}

type paymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PaymentStatus) error
}

type allocationRepo interface {
	Create(ctx context.Context, tx *sql.Tx, a *domain.Allocation) error
	ListForInvoicesTx(ctx context.Context, tx *sql.Tx, kind domain.InvoiceKind, invoiceIDs []uuid.UUID) ([]repository.AllocationWithPayment, error)
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]domain.Allocation, error)
}

type activityRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.ActivityEntry) error
}

type outboxRepo interface {
	Enqueue(ctx context.Context, tx *sql.Tx, e *domain.OutboxEvent) error
}

type Writer struct {
	invoices    invoiceRepo
	payments    paymentRepo
	allocations allocationRepo
	activity    activityRepo
	outbox      outboxRepo
	advisor     *fx.AdvisoryRates
	db          *sql.DB
}

func NewWriter(
	invoices invoiceRepo,
	payments paymentRepo,
	allocations allocationRepo,
	activity activityRepo,
	outbox outboxRepo,
	advisor *fx.AdvisoryRates,
	db *sql.DB,
) *Writer {
	return &Writer{
		invoices:    invoices,
		payments:    payments,
		allocations: allocations,
		activity:    activity,
		outbox:      outbox,
		advisor:     advisor,
		db:          db,
	}
}

func (w *Writer) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, []domain.Allocation, error) {
	p, err := w.payments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	allocations, err := w.allocations.ListByPayment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, allocations, nil
}
