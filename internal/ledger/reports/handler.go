package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-his/meridian-his/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Handler exposes ledger balances and financial statements over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	printer *message.Printer
}

// NewHandler constructs the reporting handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		printer: message.NewPrinter(language.English),
	}
}

// MountRoutes registers HTTP routes. CSV exports carry a rate limit since
// they bypass the in-flight deduplication cache.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/trial-balance", h.trialBalance)
		r.Get("/profit-loss", h.profitAndLoss)
		r.Get("/balance-sheet", h.balanceSheet)
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Get("/trial-balance/export.csv", h.trialBalanceCSV)
		})
		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/ledger", h.ledger)
			r.Get("/balance", h.balance)
			r.Get("/opening-balance", h.openingBalance)
		})
	})
}

func parseDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("query parameter %q is required", name)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("query parameter %q must be YYYY-MM-DD", name)
	}
	return t, nil
}

func parseRange(r *http.Request) (from, to time.Time, err error) {
	if from, err = parseDate(r, "from"); err != nil {
		return
	}
	if to, err = parseDate(r, "to"); err != nil {
		return
	}
	if to.Before(from) {
		err = fmt.Errorf("%q must not precede %q", "to", "from")
	}
	return
}

func accountIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	key := fmt.Sprintf("tb:%s:%s", from.Format(dateLayout), to.Format(dateLayout))
	result, err, _ := singleflightBuild(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.TrialBalance(ctx, from, to)
	})
	if err != nil {
		h.logger.Error("trial balance build failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	key := fmt.Sprintf("pl:%s:%s", from.Format(dateLayout), to.Format(dateLayout))
	result, err, _ := singleflightBuild(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.ProfitAndLoss(ctx, from, to)
	})
	if err != nil {
		h.logger.Error("profit and loss build failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r, "asOf")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	key := "bs:" + asOf.Format(dateLayout)
	result, err, _ := singleflightBuild(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.BalanceSheet(ctx, asOf)
	})
	if err != nil {
		h.logger.Error("balance sheet build failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "account id must be numeric")
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	activity, err := h.service.PeriodActivity(r.Context(), id, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	h.singleBalance(w, r, h.service.AccountBalanceAsOf)
}

func (h *Handler) openingBalance(w http.ResponseWriter, r *http.Request) {
	h.singleBalance(w, r, h.service.OpeningBalance)
}

func (h *Handler) singleBalance(w http.ResponseWriter, r *http.Request, compute func(context.Context, int64, time.Time) (decimal.Decimal, error)) {
	id, err := accountIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "account id must be numeric")
		return
	}
	asOf, err := parseDate(r, "asOf")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	balance, err := compute(r.Context(), id, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"accountId": id,
		"asOf":      asOf.Format(dateLayout),
		"balance":   balance,
	})
}

func (h *Handler) trialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		fmt.Sprintf("trial-balance_%s_%s.csv", from.Format(dateLayout), to.Format(dateLayout))))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"group", "code", "name", "opening", "debit", "credit", "closing"})
	for _, grp := range tb.Groups {
		for _, acc := range grp.Accounts {
			_ = writer.Write([]string{
				grp.Key, acc.Code, acc.Name,
				h.amount(acc.Opening), h.amount(acc.Debit), h.amount(acc.Credit), h.amount(acc.Closing),
			})
		}
	}
	_ = writer.Write([]string{"TOTAL", "", "",
		h.amount(tb.TotalOpening), h.amount(tb.TotalDebit), h.amount(tb.TotalCredit), h.amount(tb.TotalClosing)})
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("trial balance csv write failed", slog.Any("error", err))
	}
}

// amount renders a decimal with thousand separators for spreadsheet use.
func (h *Handler) amount(d decimal.Decimal) string {
	f, _ := d.Float64()
	return h.printer.Sprintf("%.2f", f)
}
