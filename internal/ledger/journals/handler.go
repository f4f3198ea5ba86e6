package journals

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-his/meridian-his/internal/closing"
	"github.com/meridian-his/meridian-his/internal/platform/httpx"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// Handler exposes the journal entry lifecycle over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the journal handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/journals", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.edit)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/post", h.post)
		r.Post("/{id}/unpost", h.unpost)
		r.Post("/{id}/reverse", h.reverse)
	})
}

type lineRequest struct {
	AccountID   int64           `json:"accountId" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type createJournalRequest struct {
	Date        string        `json:"date" validate:"required"`
	Description string        `json:"description" validate:"required"`
	RefType     *string       `json:"refType"`
	RefNumber   *string       `json:"refNumber"`
	Kind        string        `json:"kind" validate:"omitempty,oneof=GENERAL ADJUSTING"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type editJournalRequest struct {
	Date        string        `json:"date" validate:"required"`
	Description string        `json:"description" validate:"required"`
	Revision    bool          `json:"revision"`
	Reason      string        `json:"reason"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type reverseJournalRequest struct {
	Description string `json:"description"`
}

func toLineInputs(lines []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	return out
}

func parseEntryDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func entryIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// respondError widens the shared mapping with journal rule violations.
// Balance and line-shape failures are well-formed but unprocessable.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrLineShape),
		errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrNegativeAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entry", err.Error())
	case errors.Is(err, ErrRevisionNotAllowed),
		errors.Is(err, ErrRevisionReasonRequired),
		errors.Is(err, ErrUnknownKind):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, closing.ErrPeriodClosed):
		httpx.Problem(w, http.StatusConflict, "Period Closed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createJournalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := parseEntryDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
		return
	}
	kind := JournalKind(req.Kind)
	if req.Kind == "" {
		kind = JournalKindGeneral
	}
	actor := shared.ActorFromContext(r.Context())
	entry, err := h.service.Create(r.Context(), CreateInput{
		Date:        date,
		Description: req.Description,
		RefType:     req.RefType,
		RefNumber:   req.RefNumber,
		Kind:        kind,
		ActorID:     actor.ID,
		Lines:       toLineInputs(req.Lines),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := entryIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "journal id must be numeric")
		return
	}
	var req editJournalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := parseEntryDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
		return
	}
	mode := NormalEdit()
	if req.Revision {
		mode = RevisionEdit(req.Reason, true)
	}
	actor := shared.ActorFromContext(r.Context())
	entry, err := h.service.Edit(r.Context(), EditInput{
		EntryID:     id,
		Date:        date,
		Description: req.Description,
		ActorID:     actor.ID,
		Mode:        mode,
		Lines:       toLineInputs(req.Lines),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Post)
}

func (h *Handler) unpost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Unpost)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, entryID, actorID int64) (JournalEntry, error)) {
	id, err := entryIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "journal id must be numeric")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	entry, err := apply(r.Context(), id, actor.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id, err := entryIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "journal id must be numeric")
		return
	}
	var req reverseJournalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	entry, err := h.service.Reverse(r.Context(), ReverseInput{
		EntryID:     id,
		ActorID:     actor.ID,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := entryIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "journal id must be numeric")
		return
	}
	mode := NormalEdit()
	if r.URL.Query().Get("revision") == "true" {
		mode = RevisionEdit(r.URL.Query().Get("reason"), true)
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, actor.ID, mode); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := entryIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "journal id must be numeric")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}
	q := r.URL.Query()
	if raw := q.Get("kind"); raw != "" {
		kind := JournalKind(raw)
		filter.Kind = &kind
	}
	if raw := q.Get("status"); raw != "" {
		status := JournalStatus(raw)
		filter.Status = &status
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := parseEntryDate(raw); err == nil {
			filter.DateFrom = &t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := parseEntryDate(raw); err == nil {
			filter.DateTo = &t
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
