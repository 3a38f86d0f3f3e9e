// Package export renders a ledger statement as a downloadable file. The
// statement is computed elsewhere; exporters only format what they are given.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/orbitrade/finance-backend/internal/domain"
)

var ledgerColumns = []string{"Serial", "Date", "Description", "Invoice#", "Debit", "Credit", "Balance", "Remark"}

const dateLayout = "2006-01-02"

// WriteCSV renders the statement as delimited text: a two-line header block,
// the column row, one row per entry, then the totals block. Amounts use two
// decimal places; zero debit/credit cells are left empty.
func WriteCSV(w io.Writer, stmt *domain.LedgerStatement) error {
	cw := csv.NewWriter(w)

	header := [][]string{
		{"Account", stmt.AccountName},
		{"Generated", stmt.GeneratedAt.Format(dateLayout)},
		{},
		ledgerColumns,
	}
	for _, row := range header {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteCSV: %w", err)
		}
	}

	for _, e := range stmt.Entries {
		if err := cw.Write(entryRow(e)); err != nil {
			return fmt.Errorf("WriteCSV: %w", err)
		}
	}

	totals := [][]string{
		{},
		{"", "", "", "", "Total Debit", stmt.Totals.TotalDebit.StringFixed(2)},
		{"", "", "", "", "Total Credit", stmt.Totals.TotalCredit.StringFixed(2)},
		{"", "", "", "", "Balance Due", stmt.Totals.Balance.StringFixed(2)},
	}
	for _, row := range totals {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteCSV: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flush: %w", err)
	}
	return nil
}

func entryRow(e domain.LedgerEntry) []string {
	debit, credit := "", ""
	if e.Debit.Sign() != 0 {
		debit = e.Debit.StringFixed(2)
	}
	if e.Credit.Sign() != 0 {
		credit = e.Credit.StringFixed(2)
	}
	return []string{
		fmt.Sprint(e.Serial),
		e.Date.Format(dateLayout),
		e.Description,
		e.Reference,
		debit,
		credit,
		e.Balance.StringFixed(2),
		e.Remark,
	}
}

// WriteXLSX renders the statement as a spreadsheet with the same layout as
// the delimited export.
func WriteXLSX(w io.Writer, stmt *domain.LedgerStatement) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Account")
	f.SetCellValue(sheet, "B1", stmt.AccountName)
	f.SetCellValue(sheet, "A2", "Generated")
	f.SetCellValue(sheet, "B2", stmt.GeneratedAt.Format(dateLayout))

	const headerRow = 4
	for i, col := range ledgerColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
		f.SetCellValue(sheet, cell, col)
	}

	row := headerRow + 1
	for _, e := range stmt.Entries {
		if err := setRow(f, sheet, row, entryRow(e)); err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
		row++
	}

	row++
	totals := []struct {
		label string
		value string
	}{
		{"Total Debit", stmt.Totals.TotalDebit.StringFixed(2)},
		{"Total Credit", stmt.Totals.TotalCredit.StringFixed(2)},
		{"Balance Due", stmt.Totals.Balance.StringFixed(2)},
	}
	for _, t := range totals {
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), t.label)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), t.value)
		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, v)
	}
	return nil
}
