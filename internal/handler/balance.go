package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/logging"
	"github.com/orbitrade/finance-backend/internal/service/balance"
)

type balanceService interface {
	UnpaidInvoices(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID) ([]balance.OpenInvoice, error)
}

type BalanceHandler struct {
	balances balanceService
}

func NewBalanceHandler(balances balanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// kindFromPath maps the URL collection segment to an invoice kind.
func kindFromPath(r *http.Request) (domain.InvoiceKind, bool) {
	switch r.PathValue("kind") {
	case "customers":
		return domain.InvoiceKindCustomer, true
	case "suppliers":
		return domain.InvoiceKindSupplier, true
	}
	return "", false
}

type openInvoiceDTO struct {
	ID               uuid.UUID `json:"id"`
	Number           string    `json:"number"`
	Status           string    `json:"status"`
	Currency         string    `json:"currency"`
	TotalValue       string    `json:"total_value"`
	TotalPaid        string    `json:"total_paid"`
	BalanceDue       string    `json:"balance_due"`
	CurrencyMismatch bool      `json:"currency_mismatch,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (h *BalanceHandler) UnpaidInvoices(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	open, err := h.balances.UnpaidInvoices(r.Context(), kind, accountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("unpaid invoice lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]openInvoiceDTO, 0, len(open))
	for _, o := range open {
		dtos = append(dtos, openInvoiceDTO{
			ID:               o.Invoice.ID,
			Number:           o.Invoice.Number,
			Status:           string(o.Invoice.Status),
			Currency:         string(o.Invoice.Currency),
			TotalValue:       o.Invoice.TotalValue.String(),
			TotalPaid:        o.TotalPaid.String(),
			BalanceDue:       o.BalanceDue.String(),
			CurrencyMismatch: o.CurrencyMismatch,
			CreatedAt:        o.Invoice.CreatedAt,
		})
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
