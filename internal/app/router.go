package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/debt"
	"github.com/abonbill/abonbill/internal/ledger"
	"github.com/abonbill/abonbill/internal/observability"
	"github.com/abonbill/abonbill/internal/refdata"
	"github.com/abonbill/abonbill/internal/report"
	"github.com/abonbill/abonbill/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AbonentHandler *abonent.Handler
	LedgerHandler  *ledger.Handler
	RefdataHandler *refdata.Handler
	DebtHandler    *debt.Handler
	ReportHandler  *report.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/abonents", func(r chi.Router) {
		params.AbonentHandler.MountRoutes(r)
		params.DebtHandler.MountRoutes(r)
		r.Route("/{abonentID}/ledger", params.LedgerHandler.MountRoutes)
	})
	r.Route("/refdata", params.RefdataHandler.MountRoutes)
	r.Route("/report", params.ReportHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
