package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ims/meridian/internal/alerts"
	"github.com/meridian-ims/meridian/internal/auth"
	"github.com/meridian-ims/meridian/internal/batch"
	"github.com/meridian-ims/meridian/internal/catalog"
	"github.com/meridian-ims/meridian/internal/observability"
	"github.com/meridian-ims/meridian/internal/pricing"
	"github.com/meridian-ims/meridian/internal/shared"
	"github.com/meridian-ims/meridian/internal/txn"
	"github.com/meridian-ims/meridian/internal/users"
	"github.com/meridian-ims/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Pool           *pgxpool.Pool

	AuthHandler    *auth.Handler
	CatalogHandler *catalog.Handler
	PricingHandler *pricing.Handler
	BatchHandler   *batch.Handler
	TxnHandler     *txn.Handler
	AlertsHandler  *alerts.Handler
	UsersHandler   *users.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi router with the full API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(ar chi.Router) {
		params.AuthHandler.MountRoutes(ar)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(RequireAuth)
		params.CatalogHandler.MountRoutes(api)
		params.PricingHandler.MountRoutes(api)
		params.BatchHandler.MountRoutes(api)
		params.TxnHandler.MountRoutes(api)
		params.AlertsHandler.MountRoutes(api)
		params.UsersHandler.MountRoutes(api)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			jr.Use(RequireAuth)
			params.JobHandler.MountRoutes(jr)
		})
	}

	return r
}
