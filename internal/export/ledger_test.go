package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orbitrade/finance-backend/internal/domain"
)

func sampleStatement() *domain.LedgerStatement {
	return &domain.LedgerStatement{
		AccountID:   uuid.New(),
		AccountName: "Shenzhen Factory Ltd",
		GeneratedAt: time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC),
		Entries: []domain.LedgerEntry{
			{
				Serial:      1,
				Date:        time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
				Description: domain.LedgerDescInvoiceCreated,
				Reference:   "PO-1001",
				Debit:       decimal.NewFromInt(1000),
				Balance:     decimal.NewFromInt(1000),
				Remark:      domain.LedgerRemarkOpen,
			},
			{
				Serial:      2,
				Date:        time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
				Description: domain.LedgerDescPaymentSent,
				Reference:   "PO-1001",
				Credit:      decimal.NewFromInt(300),
				Balance:     decimal.NewFromInt(700),
			},
		},
		Totals: domain.LedgerTotals{
			TotalDebit:   decimal.NewFromInt(1000),
			TotalCredit:  decimal.NewFromInt(300),
			Balance:      decimal.NewFromInt(700),
			OpenInvoices: 1,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleStatement()))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	require.Equal(t, []string{"Account", "Shenzhen Factory Ltd"}, rows[0])
	require.Equal(t, []string{"Generated", "2026-06-01"}, rows[1])
	require.Equal(t, ledgerColumns, rows[3])

	require.Equal(t, []string{"1", "2026-01-01", "Invoice Created", "PO-1001", "1000.00", "", "1000.00", "open"}, rows[4])
	require.Equal(t, []string{"2", "2026-01-05", "Payment Sent", "PO-1001", "", "300.00", "700.00", ""}, rows[5])

	last := rows[len(rows)-1]
	require.Equal(t, "Balance Due", last[4])
	require.Equal(t, "700.00", last[5])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleStatement()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Sheet1", "B1")
	require.NoError(t, err)
	require.Equal(t, "Shenzhen Factory Ltd", name)

	serial, err := f.GetCellValue("Sheet1", "A5")
	require.NoError(t, err)
	require.Equal(t, "1", serial)

	balance, err := f.GetCellValue("Sheet1", "G6")
	require.NoError(t, err)
	require.Equal(t, "700.00", balance)
}
