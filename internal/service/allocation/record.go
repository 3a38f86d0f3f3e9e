package allocation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/logging"
	"github.com/orbitrade/finance-backend/internal/service/balance"
)

type AllocationInput struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

type RecordRequest struct {
	Direction       domain.PaymentDirection
	AccountID       uuid.UUID
	Currency        domain.Currency
	Rate            *domain.ExchangeRate
	Allocations     []AllocationInput
	PaymentMethod   string
	ReferenceNumber string
	PaidAt          time.Time
	ReceiptURL      *string
	Metadata        json.RawMessage
	Actor           string
}

type RecordResult struct {
	Payment     *domain.Payment
	Allocations []domain.Allocation
	// Non-blocking currency-mismatch advisories; the write succeeds anyway.
	Warnings []string
}

// RecordPayment creates one payment and its allocations atomically. Invoice
// rows are locked in ascending UUID order and balances re-checked inside the
// transaction, so two concurrent calls cannot over-allocate the same invoice.
// The supplier deposit-tracking update after commit is best-effort.
func (w *Writer) RecordPayment(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	log := logging.FromContext(ctx)

	selected, err := validateRecordRequest(req)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	kind := req.Direction.InvoiceKind()
	now := time.Now().UTC()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: begin tx: %w", err)
	}
	defer tx.Rollback()

	invoices, err := w.lockInvoices(ctx, tx, kind, req.AccountID, selected)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	warnings, err := w.checkBalances(ctx, tx, kind, req, selected, invoices)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	total := decimal.Zero
	for _, in := range selected {
		total = total.Add(in.Amount)
	}

	payment := &domain.Payment{
		ID:              uuid.New(),
		Direction:       req.Direction,
		AccountID:       req.AccountID,
		Amount:          total,
		Currency:        req.Currency,
		Rate:            req.Rate,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		PaidAt:          req.PaidAt,
		ReceiptURL:      req.ReceiptURL,
		Status:          domain.PaymentStatusCompleted,
		Metadata:        req.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(selected) == 1 {
		id := selected[0].InvoiceID
		payment.InvoiceID = &id
	}

	if err := w.payments.Create(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("RecordPayment: create payment: %w", err)
	}

	allocations := make([]domain.Allocation, 0, len(selected))
	for _, in := range selected {
		a := domain.Allocation{
			ID:          uuid.New(),
			PaymentID:   payment.ID,
			InvoiceID:   in.InvoiceID,
			InvoiceKind: kind,
			Amount:      in.Amount,
			Currency:    req.Currency,
			CreatedAt:   now,
		}
		if err := w.allocations.Create(ctx, tx, &a); err != nil {
			return nil, fmt.Errorf("RecordPayment: create allocation: %w", err)
		}
		allocations = append(allocations, a)

		if err := w.writeActivity(ctx, tx, domain.ActivityPaymentRecorded, kind, payment, &a, req.Actor, now); err != nil {
			return nil, fmt.Errorf("RecordPayment: %w", err)
		}
	}

	if req.Direction == domain.DirectionOutgoing {
		if err := w.enqueueNotification(ctx, tx, payment, invoices, selected, now); err != nil {
			return nil, fmt.Errorf("RecordPayment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RecordPayment: commit: %w", err)
	}

	// Cached deposit tracking on purchase orders is a read-optimization;
	// a failed increment leaves it stale, never the ledger wrong.
	if req.Direction == domain.DirectionOutgoing {
		w.applyDepositTracking(ctx, req, selected, invoices, 1)
	}

	log.Info("payment recorded",
		"payment_id", payment.ID,
		"direction", payment.Direction,
		"account_id", payment.AccountID,
		"amount", payment.Amount,
		"currency", payment.Currency,
		"allocations", len(allocations),
	)

	return &RecordResult{Payment: payment, Allocations: allocations, Warnings: warnings}, nil
}

func validateRecordRequest(req RecordRequest) ([]AllocationInput, error) {
	if !req.Direction.IsValid() {
		return nil, fmt.Errorf("validateRecordRequest: direction %q: %w", req.Direction, domain.ErrInvalidRequest)
	}
	if req.AccountID == uuid.Nil {
		return nil, fmt.Errorf("validateRecordRequest: %w", domain.ErrNoAccount)
	}
	if !req.Currency.IsValid() {
		return nil, fmt.Errorf("validateRecordRequest: %w", domain.ErrInvalidCurrency)
	}
	if req.Rate != nil {
		if _, err := domain.NewExchangeRate(req.Rate.From, req.Rate.To, req.Rate.Rate, req.Rate.AsOf); err != nil {
			return nil, fmt.Errorf("validateRecordRequest: %w", err)
		}
	}

	// Zero-amount lines are unticked invoices in the selection dialog;
	// drop them rather than reject.
	var selected []AllocationInput
	seen := make(map[uuid.UUID]bool)
	for _, in := range req.Allocations {
		if in.Amount.Sign() < 0 {
			return nil, fmt.Errorf("validateRecordRequest: %w", domain.ErrInvalidAmount)
		}
		if in.Amount.Sign() == 0 {
			continue
		}
		if in.InvoiceID == uuid.Nil {
			return nil, fmt.Errorf("validateRecordRequest: %w", domain.ErrInvalidRequest)
		}
		if seen[in.InvoiceID] {
			return nil, fmt.Errorf("validateRecordRequest: duplicate invoice %s: %w", in.InvoiceID, domain.ErrInvalidRequest)
		}
		seen[in.InvoiceID] = true
		selected = append(selected, in)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("validateRecordRequest: %w", domain.ErrNoAllocations)
	}
	return selected, nil
}

// lockInvoices locks every referenced invoice row in ascending UUID order so
// concurrent writers always acquire locks in the same sequence.
func (w *Writer) lockInvoices(ctx context.Context, tx *sql.Tx, kind domain.InvoiceKind, accountID uuid.UUID, selected []AllocationInput) (map[uuid.UUID]*domain.Invoice, error) {
	ids := make([]uuid.UUID, len(selected))
	for i, in := range selected {
		ids[i] = in.InvoiceID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	invoices := make(map[uuid.UUID]*domain.Invoice, len(ids))
	for _, id := range ids {
		inv, err := w.invoices.GetForUpdate(ctx, tx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("lockInvoices: invoice %s: %w", id, err)
		}
		if inv.Status == domain.InvoiceStatusCancelled {
			return nil, fmt.Errorf("lockInvoices: invoice %s: %w", inv.Number, domain.ErrInvoiceCancelled)
		}
		if inv.AccountID != accountID {
			return nil, fmt.Errorf("lockInvoices: invoice %s belongs to another account: %w", inv.Number, domain.ErrInvalidRequest)
		}
		invoices[id] = inv
	}
	return invoices, nil
}

// checkBalances re-derives each invoice's balance due inside the transaction
// and rejects any allocation that would overshoot it. Returns currency
// advisories for allocations whose currency differs from the invoice's.
func (w *Writer) checkBalances(ctx context.Context, tx *sql.Tx, kind domain.InvoiceKind, req RecordRequest, selected []AllocationInput, invoices map[uuid.UUID]*domain.Invoice) ([]string, error) {
	ids := make([]uuid.UUID, 0, len(invoices))
	invoiceList := make([]domain.Invoice, 0, len(invoices))
	for id, inv := range invoices {
		ids = append(ids, id)
		invoiceList = append(invoiceList, *inv)
	}

	existing, err := w.allocations.ListForInvoicesTx(ctx, tx, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("checkBalances: %w", err)
	}
	paid, _ := balance.PaidPerInvoice(invoiceList, existing)

	var warnings []string
	for _, in := range selected {
		inv := invoices[in.InvoiceID]
		balanceDue := inv.TotalValue.Sub(paid[in.InvoiceID])

		converted, ok := domain.AllocatedInInvoiceCurrency(in.Amount, req.Currency, inv.Currency, req.Rate)
		if req.Currency != inv.Currency {
			warnings = append(warnings, w.currencyAdvisory(in.Amount, req.Currency, inv, ok))
		}

		if converted.GreaterThan(balanceDue) {
			return nil, fmt.Errorf("checkBalances: invoice %s: allocated %s %s against balance due %s %s: %w",
				inv.Number, converted.StringFixed(2), inv.Currency,
				balanceDue.StringFixed(2), inv.Currency, domain.ErrOverAllocation)
		}
	}
	return warnings, nil
}

func (w *Writer) currencyAdvisory(amount decimal.Decimal, paymentCurrency domain.Currency, inv *domain.Invoice, converted bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "payment currency %s differs from invoice %s currency %s", paymentCurrency, inv.Number, inv.Currency)
	if paymentCurrency == domain.CurrencyUSD && inv.Currency == domain.CurrencyCNY {
		b.WriteString(" (paying USD against a CNY invoice)")
	}
	if !converted {
		b.WriteString("; no usable exchange rate on the payment, amount counted at face value")
		if w.advisor != nil {
			if quote, ok := w.advisor.Quote(paymentCurrency, inv.Currency); ok {
				if indicative, err := quote.Convert(amount, paymentCurrency, inv.Currency); err == nil {
					fmt.Fprintf(&b, "; indicatively %s %s at advisory rate", indicative.StringFixed(2), inv.Currency)
				}
			}
		}
	}
	return b.String()
}

func (w *Writer) writeActivity(ctx context.Context, tx *sql.Tx, action string, kind domain.InvoiceKind, p *domain.Payment, a *domain.Allocation, actor string, now time.Time) error {
	changes, err := json.Marshal(map[string]any{
		"payment_id":       p.ID,
		"allocated_amount": a.Amount,
		"currency":         a.Currency,
		"payment_method":   p.PaymentMethod,
		"reference_number": p.ReferenceNumber,
	})
	if err != nil {
		return fmt.Errorf("writeActivity: marshal: %w", err)
	}

	entry := &domain.ActivityEntry{
		ID:          uuid.New(),
		Action:      action,
		Collection:  kind.Collection(),
		DocumentID:  a.InvoiceID,
		PerformedBy: actor,
		Changes:     changes,
		CreatedAt:   now,
	}
	if err := w.activity.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("writeActivity: %w", err)
	}
	return nil
}

func (w *Writer) enqueueNotification(ctx context.Context, tx *sql.Tx, p *domain.Payment, invoices map[uuid.UUID]*domain.Invoice, selected []AllocationInput, now time.Time) error {
	numbers := make([]string, 0, len(selected))
	for _, in := range selected {
		numbers = append(numbers, invoices[in.InvoiceID].Number)
	}

	receipt := ""
	if p.ReceiptURL != nil {
		receipt = *p.ReceiptURL
	}
	payload, err := json.Marshal(domain.PaymentSentPayload{
		CounterpartID: p.AccountID,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		PaymentType:   p.PaymentMethod,
		InvoiceNumber: strings.Join(numbers, "/"),
		ReceiptURL:    receipt,
	})
	if err != nil {
		return fmt.Errorf("enqueueNotification: marshal: %w", err)
	}

	event := &domain.OutboxEvent{
		ID:        uuid.New(),
		EventType: domain.OutboxEventPaymentSent,
		Payload:   payload,
		Status:    domain.OutboxStatusPending,
		CreatedAt: now,
	}
	if err := w.outbox.Enqueue(ctx, tx, event); err != nil {
		return fmt.Errorf("enqueueNotification: %w", err)
	}
	return nil
}

// applyDepositTracking nudges each purchase order's cached deposit-paid
// figure by the allocation converted into the invoice's currency. sign is +1
// on record, -1 on void. Failures are logged and swallowed.
func (w *Writer) applyDepositTracking(ctx context.Context, req RecordRequest, selected []AllocationInput, invoices map[uuid.UUID]*domain.Invoice, sign int64) {
	log := logging.FromContext(ctx)
	for _, in := range selected {
		inv := invoices[in.InvoiceID]
		converted, _ := domain.AllocatedInInvoiceCurrency(in.Amount, req.Currency, inv.Currency, req.Rate)
		delta := converted.Mul(decimal.NewFromInt(sign))
		if err := w.invoices.AddDepositPaid(ctx, in.InvoiceID, delta); err != nil {
			log.Error("deposit tracking update failed",
				"purchase_order_id", in.InvoiceID,
				"delta", delta,
				"error", err,
			)
		}
	}
}
