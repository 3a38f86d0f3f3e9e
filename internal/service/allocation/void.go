package allocation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/logging"
)

// VoidPayment is the only supported reversal: the payment keeps its record
// but stops counting toward every referenced invoice's balance. Allocations
// are never edited individually.
func (w *Writer) VoidPayment(ctx context.Context, paymentID uuid.UUID, actor string) (*domain.Payment, error) {
	log := logging.FromContext(ctx)
	now := time.Now().UTC()

	allocations, err := w.allocations.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("VoidPayment: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("VoidPayment: begin tx: %w", err)
	}
	defer tx.Rollback()

	payment, err := w.payments.GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("VoidPayment: %w", err)
	}
	if payment.Status == domain.PaymentStatusVoid {
		return nil, fmt.Errorf("VoidPayment: %w", domain.ErrPaymentVoid)
	}

	if err := w.payments.UpdateStatus(ctx, tx, paymentID, domain.PaymentStatusVoid); err != nil {
		return nil, fmt.Errorf("VoidPayment: %w", err)
	}

	changes, err := json.Marshal(map[string]any{
		"payment_id": paymentID,
		"status":     domain.PaymentStatusVoid,
	})
	if err != nil {
		return nil, fmt.Errorf("VoidPayment: marshal: %w", err)
	}
	for _, a := range allocations {
		entry := &domain.ActivityEntry{
			ID:          uuid.New(),
			Action:      domain.ActivityPaymentVoided,
			Collection:  a.InvoiceKind.Collection(),
			DocumentID:  a.InvoiceID,
			PerformedBy: actor,
			Changes:     changes,
			CreatedAt:   now,
		}
		if err := w.activity.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("VoidPayment: activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("VoidPayment: commit: %w", err)
	}

	// Reverse the cached deposit-tracking contribution. Best-effort, same
	// as the forward update.
	if payment.Direction == domain.DirectionOutgoing {
		w.reverseDepositTracking(ctx, payment, allocations)
	}

	payment.Status = domain.PaymentStatusVoid
	payment.UpdatedAt = now

	log.Info("payment voided",
		"payment_id", payment.ID,
		"direction", payment.Direction,
		"allocations", len(allocations),
		"performed_by", actor,
	)

	return payment, nil
}

// reverseDepositTracking undoes the deposit-tracking increments written when
// the payment was recorded, using the same conversion so the figures cancel
// exactly. Failures are logged and swallowed.
func (w *Writer) reverseDepositTracking(ctx context.Context, payment *domain.Payment, allocations []domain.Allocation) {
	log := logging.FromContext(ctx)
	for _, a := range allocations {
		converted := a.Amount
		if inv, err := w.invoices.GetByID(ctx, a.InvoiceKind, a.InvoiceID); err == nil {
			converted, _ = domain.AllocatedInInvoiceCurrency(a.Amount, a.Currency, inv.Currency, payment.Rate)
		}
		if err := w.invoices.AddDepositPaid(ctx, a.InvoiceID, converted.Neg()); err != nil {
			log.Error("deposit tracking reversal failed",
				"purchase_order_id", a.InvoiceID,
				"error", err,
			)
		}
	}
}
