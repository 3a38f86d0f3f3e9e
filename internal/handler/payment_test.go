package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/service/allocation"
)

type mockAllocationService struct {
	recorded  *allocation.RecordRequest
	result    *allocation.RecordResult
	voidedID  uuid.UUID
	voided    *domain.Payment
	err       error
	payment   *domain.Payment
	paymentAs []domain.Allocation
}

func (m *mockAllocationService) RecordPayment(_ context.Context, req allocation.RecordRequest) (*allocation.RecordResult, error) {
	m.recorded = &req
	return m.result, m.err
}

func (m *mockAllocationService) VoidPayment(_ context.Context, paymentID uuid.UUID, _ string) (*domain.Payment, error) {
	m.voidedID = paymentID
	return m.voided, m.err
}

func (m *mockAllocationService) GetPayment(_ context.Context, _ uuid.UUID) (*domain.Payment, []domain.Allocation, error) {
	return m.payment, m.paymentAs, m.err
}

func validCreateBody(invoiceID uuid.UUID) string {
	return `{
		"direction": "outgoing",
		"account_id": "` + uuid.NewString() + `",
		"currency": "USD",
		"exchange_rate": {"rate": "7.2", "from": "USD", "to": "CNY"},
		"allocations": [{"invoice_id": "` + invoiceID.String() + `", "amount": "1000"}],
		"payment_method": "wire",
		"reference_number": "WIRE-42"
	}`
}

func TestPaymentCreate(t *testing.T) {
	invoiceID := uuid.New()
	payment := &domain.Payment{
		ID:        uuid.New(),
		Direction: domain.DirectionOutgoing,
		Amount:    decimal.NewFromInt(1000),
		Currency:  domain.CurrencyUSD,
		Status:    domain.PaymentStatusCompleted,
	}
	svc := &mockAllocationService{
		result: &allocation.RecordResult{
			Payment:  payment,
			Warnings: []string{"payment currency USD differs from invoice PO-1 currency CNY"},
		},
	}
	h := NewPaymentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(validCreateBody(invoiceID)))
	req.Header.Set("X-Actor-ID", "ops@test")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/api/v1/payments/"+payment.ID.String(), rec.Header().Get("Location"))

	require.NotNil(t, svc.recorded)
	require.Equal(t, "ops@test", svc.recorded.Actor)
	require.Equal(t, domain.DirectionOutgoing, svc.recorded.Direction)
	require.NotNil(t, svc.recorded.Rate)
	require.True(t, svc.recorded.Rate.Rate.Equal(decimal.RequireFromString("7.2")))
	require.Len(t, svc.recorded.Allocations, 1)
	require.Equal(t, invoiceID, svc.recorded.Allocations[0].InvoiceID)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestPaymentCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"bad direction", `{"direction":"sideways","account_id":"` + uuid.NewString() + `","currency":"USD","allocations":[{"invoice_id":"` + uuid.NewString() + `","amount":"10"}]}`},
		{"bad currency", `{"direction":"incoming","account_id":"` + uuid.NewString() + `","currency":"JPY","allocations":[{"invoice_id":"` + uuid.NewString() + `","amount":"10"}]}`},
		{"no allocations", `{"direction":"incoming","account_id":"` + uuid.NewString() + `","currency":"USD","allocations":[]}`},
		{"bad amount", `{"direction":"incoming","account_id":"` + uuid.NewString() + `","currency":"USD","allocations":[{"invoice_id":"` + uuid.NewString() + `","amount":"ten"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentHandler(&mockAllocationService{})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPaymentCreateOverAllocation(t *testing.T) {
	h := NewPaymentHandler(&mockAllocationService{err: domain.ErrOverAllocation})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(validCreateBody(uuid.New())))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "OVER_ALLOCATION", resp.Error.Code)
}

func TestPaymentVoid(t *testing.T) {
	paymentID := uuid.New()
	svc := &mockAllocationService{
		voided: &domain.Payment{ID: paymentID, Status: domain.PaymentStatusVoid, Amount: decimal.NewFromInt(100)},
	}
	h := NewPaymentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+paymentID.String()+"/void", nil)
	req.SetPathValue("id", paymentID.String())
	rec := httptest.NewRecorder()
	h.Void(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, paymentID, svc.voidedID)
}

func TestPaymentVoidAlreadyVoid(t *testing.T) {
	paymentID := uuid.New()
	h := NewPaymentHandler(&mockAllocationService{err: domain.ErrPaymentVoid})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+paymentID.String()+"/void", nil)
	req.SetPathValue("id", paymentID.String())
	rec := httptest.NewRecorder()
	h.Void(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}
