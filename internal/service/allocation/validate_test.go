package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/orbitrade/finance-backend/internal/domain"
)

func validRequest() RecordRequest {
	return RecordRequest{
		Direction: domain.DirectionIncoming,
		AccountID: uuid.New(),
		Currency:  domain.CurrencyUSD,
		Allocations: []AllocationInput{
			{InvoiceID: uuid.New(), Amount: decimal.NewFromInt(100)},
		},
		PaidAt: time.Now().UTC(),
	}
}

func TestValidateRecordRequest(t *testing.T) {
	sharedID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*RecordRequest)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(r *RecordRequest) {},
		},
		{
			name:    "bad direction",
			mutate:  func(r *RecordRequest) { r.Direction = "sideways" },
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "missing account",
			mutate:  func(r *RecordRequest) { r.AccountID = uuid.Nil },
			wantErr: domain.ErrNoAccount,
		},
		{
			name:    "bad currency",
			mutate:  func(r *RecordRequest) { r.Currency = "JPY" },
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name: "negative allocation",
			mutate: func(r *RecordRequest) {
				r.Allocations[0].Amount = decimal.NewFromInt(-5)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "no allocations",
			mutate: func(r *RecordRequest) {
				r.Allocations = nil
			},
			wantErr: domain.ErrNoAllocations,
		},
		{
			name: "all allocations zero",
			mutate: func(r *RecordRequest) {
				r.Allocations = []AllocationInput{
					{InvoiceID: uuid.New(), Amount: decimal.Zero},
				}
			},
			wantErr: domain.ErrNoAllocations,
		},
		{
			name: "duplicate invoice",
			mutate: func(r *RecordRequest) {
				r.Allocations = []AllocationInput{
					{InvoiceID: sharedID, Amount: decimal.NewFromInt(50)},
					{InvoiceID: sharedID, Amount: decimal.NewFromInt(50)},
				}
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "nil invoice id",
			mutate: func(r *RecordRequest) {
				r.Allocations[0].InvoiceID = uuid.Nil
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "zero rate",
			mutate: func(r *RecordRequest) {
				r.Rate = &domain.ExchangeRate{
					From: domain.CurrencyUSD,
					To:   domain.CurrencyCNY,
					Rate: decimal.Zero,
				}
			},
			wantErr: domain.ErrInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			selected, err := validateRecordRequest(req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, selected)
		})
	}
}

func TestValidateRecordRequestDropsZeroLines(t *testing.T) {
	keep := uuid.New()
	req := validRequest()
	req.Allocations = []AllocationInput{
		{InvoiceID: uuid.New(), Amount: decimal.Zero},
		{InvoiceID: keep, Amount: decimal.NewFromInt(75)},
	}

	selected, err := validateRecordRequest(req)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, keep, selected[0].InvoiceID)
}
