package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/logging"
	"github.com/orbitrade/finance-backend/internal/service/allocation"
)

type allocationService interface {
	RecordPayment(ctx context.Context, req allocation.RecordRequest) (*allocation.RecordResult, error)
	VoidPayment(ctx context.Context, paymentID uuid.UUID, actor string) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, []domain.Allocation, error)
}

type PaymentHandler struct {
	allocations allocationService
}

func NewPaymentHandler(allocations allocationService) *PaymentHandler {
	return &PaymentHandler{allocations: allocations}
}

// actorFrom identifies who performed the action for the audit trail. Identity
// is asserted upstream by the gateway; an absent header means a system job.
func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor-ID"); actor != "" {
		return actor
	}
	return "system"
}

type allocationInput struct {
	InvoiceID string `json:"invoice_id"`
	Amount    string `json:"amount"`
}

type exchangeRateInput struct {
	Rate string     `json:"rate"`
	From string     `json:"from"`
	To   string     `json:"to"`
	AsOf *time.Time `json:"as_of,omitempty"`
}

type recordPaymentRequest struct {
	Direction       string             `json:"direction"`
	AccountID       string             `json:"account_id"`
	Currency        string             `json:"currency"`
	ExchangeRate    *exchangeRateInput `json:"exchange_rate,omitempty"`
	Allocations     []allocationInput  `json:"allocations"`
	PaymentMethod   string             `json:"payment_method"`
	ReferenceNumber string             `json:"reference_number"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
	ReceiptURL      *string            `json:"receipt_url,omitempty"`
	Metadata        json.RawMessage    `json:"metadata,omitempty"`
}

func (r recordPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if !domain.PaymentDirection(r.Direction).IsValid() {
		errs = append(errs, FieldError{Field: "direction", Message: "must be incoming or outgoing"})
	}
	if r.AccountID == "" {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	} else if _, err := uuid.Parse(r.AccountID); err != nil {
		errs = append(errs, FieldError{Field: "account_id", Message: "must be a UUID"})
	}
	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be USD, CNY, EUR, or GBP"})
	}
	if len(r.Allocations) == 0 {
		errs = append(errs, FieldError{Field: "allocations", Message: "at least one allocation required"})
	}
	for i, a := range r.Allocations {
		if _, err := uuid.Parse(a.InvoiceID); err != nil {
			errs = append(errs, FieldError{Field: fmt.Sprintf("allocations[%d].invoice_id", i), Message: "must be a UUID"})
		}
		if _, err := decimal.NewFromString(a.Amount); err != nil {
			errs = append(errs, FieldError{Field: fmt.Sprintf("allocations[%d].amount", i), Message: "must be a decimal number"})
		}
	}
	if r.ExchangeRate != nil {
		if _, err := decimal.NewFromString(r.ExchangeRate.Rate); err != nil {
			errs = append(errs, FieldError{Field: "exchange_rate.rate", Message: "must be a decimal number"})
		}
		if !domain.Currency(r.ExchangeRate.From).IsValid() {
			errs = append(errs, FieldError{Field: "exchange_rate.from", Message: "must be USD, CNY, EUR, or GBP"})
		}
		if !domain.Currency(r.ExchangeRate.To).IsValid() {
			errs = append(errs, FieldError{Field: "exchange_rate.to", Message: "must be USD, CNY, EUR, or GBP"})
		}
	}

	return errs
}

func (r recordPaymentRequest) toServiceRequest(actor string) allocation.RecordRequest {
	req := allocation.RecordRequest{
		Direction:       domain.PaymentDirection(r.Direction),
		AccountID:       uuid.MustParse(r.AccountID),
		Currency:        domain.Currency(r.Currency),
		PaymentMethod:   r.PaymentMethod,
		ReferenceNumber: r.ReferenceNumber,
		PaidAt:          time.Now().UTC(),
		ReceiptURL:      r.ReceiptURL,
		Metadata:        r.Metadata,
		Actor:           actor,
	}
	if r.PaidAt != nil {
		req.PaidAt = r.PaidAt.UTC()
	}
	if r.ExchangeRate != nil {
		asOf := req.PaidAt
		if r.ExchangeRate.AsOf != nil {
			asOf = r.ExchangeRate.AsOf.UTC()
		}
		req.Rate = &domain.ExchangeRate{
			From: domain.Currency(r.ExchangeRate.From),
			To:   domain.Currency(r.ExchangeRate.To),
			Rate: decimal.RequireFromString(r.ExchangeRate.Rate),
			AsOf: asOf,
		}
	}
	for _, a := range r.Allocations {
		req.Allocations = append(req.Allocations, allocation.AllocationInput{
			InvoiceID: uuid.MustParse(a.InvoiceID),
			Amount:    decimal.RequireFromString(a.Amount),
		})
	}
	return req
}

type allocationDTO struct {
	ID        uuid.UUID `json:"id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
}

type paymentDTO struct {
	ID              uuid.UUID       `json:"id"`
	Direction       string          `json:"direction"`
	AccountID       uuid.UUID       `json:"account_id"`
	Amount          string          `json:"amount"`
	Currency        string          `json:"currency"`
	ExchangeRate    *string         `json:"exchange_rate,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	PaidAt          time.Time       `json:"paid_at"`
	ReceiptURL      *string         `json:"receipt_url,omitempty"`
	Status          string          `json:"status"`
	Allocations     []allocationDTO `json:"allocations,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toPaymentDTO(p *domain.Payment, allocations []domain.Allocation, warnings []string) paymentDTO {
	dto := paymentDTO{
		ID:              p.ID,
		Direction:       string(p.Direction),
		AccountID:       p.AccountID,
		Amount:          p.Amount.String(),
		Currency:        string(p.Currency),
		PaymentMethod:   p.PaymentMethod,
		ReferenceNumber: p.ReferenceNumber,
		PaidAt:          p.PaidAt,
		ReceiptURL:      p.ReceiptURL,
		Status:          string(p.Status),
		Warnings:        warnings,
		CreatedAt:       p.CreatedAt,
	}
	if p.Rate != nil {
		rate := p.Rate.Rate.String()
		dto.ExchangeRate = &rate
	}
	for _, a := range allocations {
		dto.Allocations = append(dto.Allocations, allocationDTO{
			ID:        a.ID,
			InvoiceID: a.InvoiceID,
			Amount:    a.Amount.String(),
			Currency:  string(a.Currency),
		})
	}
	return dto
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := h.allocations.RecordPayment(r.Context(), req.toServiceRequest(actorFrom(r)))
	if err != nil {
		log.Warn("payment recording failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/payments/%s", result.Payment.ID))
	RespondSuccess(w, http.StatusCreated, toPaymentDTO(result.Payment, result.Allocations, result.Warnings))
}

func (h *PaymentHandler) Void(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, err := h.allocations.VoidPayment(r.Context(), paymentID, actorFrom(r))
	if err != nil {
		log.Warn("payment void failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p, nil, nil))
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, allocations, err := h.allocations.GetPayment(r.Context(), paymentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p, allocations, nil))
}
