package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	closinghttp "github.com/meridian-his/meridian-his/internal/closing/http"
	"github.com/meridian-his/meridian-his/internal/ledger/accounts"
	"github.com/meridian-his/meridian-his/internal/ledger/journals"
	"github.com/meridian-his/meridian-his/internal/ledger/reports"
	"github.com/meridian-his/meridian-his/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AccountsHandler *accounts.Handler
	JournalsHandler *journals.Handler
	ReportsHandler  *reports.Handler
	ClosingHandler  *closinghttp.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with default middleware and routes.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.AccountsHandler != nil {
			params.AccountsHandler.MountRoutes(r)
		}
		if params.JournalsHandler != nil {
			params.JournalsHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
		if params.ClosingHandler != nil {
			params.ClosingHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
