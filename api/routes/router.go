package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SohamFirke/pharma-backend/api/controllers"
	"github.com/SohamFirke/pharma-backend/api/middleware"
	"github.com/SohamFirke/pharma-backend/internal/catalog"
	"github.com/SohamFirke/pharma-backend/internal/orchestrator"
	"github.com/SohamFirke/pharma-backend/internal/orders"
	"github.com/SohamFirke/pharma-backend/internal/routing"
	"github.com/SohamFirke/pharma-backend/internal/trace"
	"github.com/SohamFirke/pharma-backend/pkg/auth/session"
	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/db"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/SohamFirke/pharma-backend/pkg/metrics"
	"github.com/SohamFirke/pharma-backend/pkg/redis"
)

type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	SessionManager *session.Manager
	Metrics        *metrics.Metrics
	Orchestrator   orchestrator.Service
	Classifier     routing.Classifier
	Catalog        catalog.Service
	Orders         orders.Service
	Traces         trace.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api/session", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/", controllers.DevSessionCreate(p.SessionManager, cfg.JWT, logg))
		}
		r.Post("/refresh", controllers.SessionRefresh(p.SessionManager, cfg.JWT, logg))
		r.Post("/logout", controllers.SessionLogout(p.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Post("/order", controllers.CreateOrder(p.Orchestrator, logg))
		r.Post("/prescription", controllers.CreatePrescription(p.Orchestrator, logg))
		r.Post("/chat/classify", controllers.ClassifyIntent(p.Classifier, logg))

		r.Get("/inventory", controllers.InventoryList(p.Catalog, logg))
		r.Get("/inventory/{name}", controllers.InventoryDetail(p.Catalog, logg))
		r.Get("/user-history/{userID}", controllers.UserHistory(p.Orders, logg))

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/refills", controllers.RefillAlerts(p.Orchestrator, logg))
			r.Get("/low-stock", controllers.LowStockAlerts(p.Catalog, logg))
		})

		r.Get("/traces", controllers.TraceList(p.Traces, logg))
		r.Get("/traces/grouped", controllers.TraceGrouped(p.Traces, logg))
		r.Get("/statistics", controllers.Statistics(p.Traces, p.Catalog, logg))

		// Catalog rewrites and audit truncation are operator actions; they
		// stay behind a live operator session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
			r.Post("/inventory", controllers.InventoryCreate(p.Catalog, logg))
			r.Put("/inventory/{name}", controllers.InventoryUpdate(p.Catalog, logg))
			r.Delete("/traces", controllers.TraceClear(p.Traces, logg))
		})
	})

	return r
}
