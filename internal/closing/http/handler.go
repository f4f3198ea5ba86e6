// Package closinghttp wires the monthly closing lifecycle over HTTP.
package closinghttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-his/meridian-his/internal/closing"
	"github.com/meridian-his/meridian-his/internal/platform/httpx"
	"github.com/meridian-his/meridian-his/internal/shared"
)

type closingService interface {
	Initiate(ctx context.Context, in closing.InitiateInput) (closing.MonthlyClosing, error)
	Approve(ctx context.Context, id, approverID int64) (closing.MonthlyClosing, error)
	Close(ctx context.Context, id, actorID int64) (closing.MonthlyClosing, error)
	Reopen(ctx context.Context, id, actorID int64, reason string) (closing.MonthlyClosing, error)
	CanInitiate(ctx context.Context, year int, month time.Month) error
	Get(ctx context.Context, id int64) (closing.MonthlyClosing, error)
	List(ctx context.Context, limit, offset int) ([]closing.MonthlyClosing, error)
}

// Handler exposes closing lifecycle endpoints.
type Handler struct {
	logger   *slog.Logger
	service  closingService
	validate *validator.Validate
}

// NewHandler constructs a closing HTTP handler.
func NewHandler(logger *slog.Logger, service closingService) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/closings", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.initiate)
		r.Get("/can-initiate", h.canInitiate)
		r.Get("/{id}", h.get)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/close", h.close)
		r.Post("/{id}/reopen", h.reopen)
	})
}

type initiateRequest struct {
	Year       int    `json:"year" validate:"required,gte=2000,lte=2200"`
	Month      int    `json:"month" validate:"required,gte=1,lte=12"`
	CutoffDate string `json:"cutoffDate"`
	Notes      string `json:"notes"`
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var cutoff time.Time
	if req.CutoffDate != "" {
		parsed, err := time.Parse("2006-01-02", req.CutoffDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cutoffDate must be YYYY-MM-DD")
			return
		}
		cutoff = parsed
	}
	actor := shared.ActorFromContext(r.Context())
	record, err := h.service.Initiate(r.Context(), closing.InitiateInput{
		Year:       req.Year,
		Month:      time.Month(req.Month),
		CutoffDate: cutoff,
		ActorID:    actor.ID,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logger.Warn("initiate closing", slog.Int("year", req.Year), slog.Int("month", req.Month), slog.Any("error", err))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) canInitiate(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	if year == 0 || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "year and month query params required")
		return
	}
	if err := h.service.CanInitiate(r.Context(), year, time.Month(month)); err != nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"allowed": false, "reason": err.Error()})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"allowed": true})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	closings, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"closings": closings})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid closing id")
		return
	}
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid closing id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	record, err := h.service.Approve(r.Context(), id, actor.ID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid closing id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	record, err := h.service.Close(r.Context(), id, actor.ID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

type reopenRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid closing id")
		return
	}
	var req reopenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	record, err := h.service.Reopen(r.Context(), id, actor.ID, req.Reason)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch err {
	case closing.ErrFutureMonth, closing.ErrReasonRequired:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case closing.ErrPriorMonthOpen, closing.ErrSameActor:
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
