package main

import (
	"context"
	"net/http"
	"os"

	"github.com/SohamFirke/pharma-backend/api/routes"
	"github.com/SohamFirke/pharma-backend/internal/catalog"
	"github.com/SohamFirke/pharma-backend/internal/extraction"
	"github.com/SohamFirke/pharma-backend/internal/inventory"
	"github.com/SohamFirke/pharma-backend/internal/orchestrator"
	"github.com/SohamFirke/pharma-backend/internal/orders"
	"github.com/SohamFirke/pharma-backend/internal/predictive"
	"github.com/SohamFirke/pharma-backend/internal/routing"
	"github.com/SohamFirke/pharma-backend/internal/safety"
	"github.com/SohamFirke/pharma-backend/internal/trace"
	"github.com/SohamFirke/pharma-backend/pkg/auth/session"
	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/db"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/SohamFirke/pharma-backend/pkg/metrics"
	"github.com/SohamFirke/pharma-backend/pkg/migrate"
	"github.com/SohamFirke/pharma-backend/pkg/model"
	"github.com/SohamFirke/pharma-backend/pkg/pubsub"
	"github.com/SohamFirke/pharma-backend/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	m := metrics.New()

	// The procurement publisher is optional: without GCP credentials the
	// ledger logs and drops restock signals instead of failing orders.
	var procurement inventory.ProcurementPublisher
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		procurement, err = inventory.NewProcurementPublisher(pubsubClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create procurement publisher", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "no GCP project configured, procurement signals will be dropped")
	}

	gormDB := dbClient.DB()
	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	traceSvc, err := trace.NewService(trace.NewRepository(gormDB), m)
	if err != nil {
		logg.Error(context.Background(), "failed to create trace service", err)
		os.Exit(1)
	}
	inventorySvc, err := inventory.NewService(dbClient, inventory.NewRepository(gormDB), procurement, m, logg, cfg.Inventory)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	safetySvc, err := safety.NewService(catalogSvc, cfg.Safety, cfg.FeatureFlags.PrescriptionOverride && cfg.App.IsDev())
	if err != nil {
		logg.Error(context.Background(), "failed to create safety service", err)
		os.Exit(1)
	}
	predictiveSvc, err := predictive.NewService(ordersRepo, cfg.Predictive)
	if err != nil {
		logg.Error(context.Background(), "failed to create predictive service", err)
		os.Exit(1)
	}

	modelClient, err := model.NewClient(cfg.Model, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create model client", err)
		os.Exit(1)
	}
	history, err := extraction.NewOrdersHistory(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create extraction history", err)
		os.Exit(1)
	}
	modelExtractor, err := extraction.NewModelExtractor(modelClient, history)
	if err != nil {
		logg.Error(context.Background(), "failed to create model extractor", err)
		os.Exit(1)
	}
	ruleExtractor, err := extraction.NewRuleExtractor(catalogSvc, history)
	if err != nil {
		logg.Error(context.Background(), "failed to create rule extractor", err)
		os.Exit(1)
	}
	extractor, err := extraction.NewExtractor(modelExtractor, ruleExtractor, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create extractor", err)
		os.Exit(1)
	}
	classifier, err := routing.NewClassifier(modelClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create classifier", err)
		os.Exit(1)
	}

	orchestratorSvc, err := orchestrator.NewService(
		extractor, safetySvc, inventorySvc, ordersSvc, predictiveSvc, traceSvc, m, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orchestrator", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			SessionManager: sessionManager,
			Metrics:        m,
			Orchestrator:   orchestratorSvc,
			Classifier:     classifier,
			Catalog:        catalogSvc,
			Orders:         ordersSvc,
			Traces:         traceSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
