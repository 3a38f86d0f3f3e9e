package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orbitrade/finance-backend/internal/domain"
	"github.com/orbitrade/finance-backend/internal/export"
	"github.com/orbitrade/finance-backend/internal/logging"
	"github.com/orbitrade/finance-backend/internal/service/ledger"
)

type ledgerService interface {
	BuildLedger(ctx context.Context, kind domain.InvoiceKind, accountID uuid.UUID, filter ledger.Filter) (*domain.LedgerStatement, error)
}

type LedgerHandler struct {
	ledgers ledgerService
}

func NewLedgerHandler(ledgers ledgerService) *LedgerHandler {
	return &LedgerHandler{ledgers: ledgers}
}

type ledgerEntryDTO struct {
	Serial      int       `json:"serial"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Reference   string    `json:"invoice_number"`
	Debit       string    `json:"debit"`
	Credit      string    `json:"credit"`
	Balance     string    `json:"balance"`
	Remark      string    `json:"remark,omitempty"`
}

type ledgerTotalsDTO struct {
	TotalDebit   string `json:"total_debit"`
	TotalCredit  string `json:"total_credit"`
	Balance      string `json:"balance"`
	OpenInvoices int    `json:"open_invoices"`
}

type ledgerDTO struct {
	AccountID   uuid.UUID        `json:"account_id"`
	AccountName string           `json:"account_name"`
	GeneratedAt time.Time        `json:"generated_at"`
	Entries     []ledgerEntryDTO `json:"entries"`
	Totals      ledgerTotalsDTO  `json:"totals"`
}

func toLedgerDTO(stmt *domain.LedgerStatement) ledgerDTO {
	dto := ledgerDTO{
		AccountID:   stmt.AccountID,
		AccountName: stmt.AccountName,
		GeneratedAt: stmt.GeneratedAt,
		Entries:     make([]ledgerEntryDTO, 0, len(stmt.Entries)),
		Totals: ledgerTotalsDTO{
			TotalDebit:   stmt.Totals.TotalDebit.StringFixed(2),
			TotalCredit:  stmt.Totals.TotalCredit.StringFixed(2),
			Balance:      stmt.Totals.Balance.StringFixed(2),
			OpenInvoices: stmt.Totals.OpenInvoices,
		},
	}
	for _, e := range stmt.Entries {
		dto.Entries = append(dto.Entries, ledgerEntryDTO{
			Serial:      e.Serial,
			Date:        e.Date,
			Description: e.Description,
			Reference:   e.Reference,
			Debit:       e.Debit.StringFixed(2),
			Credit:      e.Credit.StringFixed(2),
			Balance:     e.Balance.StringFixed(2),
			Remark:      e.Remark,
		})
	}
	return dto
}

func filterFromQuery(r *http.Request) (ledger.Filter, []FieldError) {
	var filter ledger.Filter
	var errs []FieldError

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			errs = append(errs, FieldError{Field: "from", Message: "must be YYYY-MM-DD"})
		} else {
			filter.From = &t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			errs = append(errs, FieldError{Field: "to", Message: "must be YYYY-MM-DD"})
		} else {
			// Inclusive end of day.
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.To = &end
		}
	}
	filter.Remark = r.URL.Query().Get("status")

	return filter, errs
}

func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

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

	filter, fieldErrs := filterFromQuery(r)
	if len(fieldErrs) > 0 {
		RespondValidationError(w, fieldErrs)
		return
	}

	stmt, err := h.ledgers.BuildLedger(r.Context(), kind, accountID, filter)
	if err != nil {
		log.Warn("ledger build failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		RespondSuccess(w, http.StatusOK, toLedgerDTO(stmt))
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ledger-%s.csv", accountID))
		if err := export.WriteCSV(w, stmt); err != nil {
			log.Error("ledger csv export failed", "error", err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ledger-%s.xlsx", accountID))
		if err := export.WriteXLSX(w, stmt); err != nil {
			log.Error("ledger xlsx export failed", "error", err)
		}
	default:
		RespondValidationError(w, []FieldError{{Field: "format", Message: "must be json, csv, or xlsx"}})
	}
}
