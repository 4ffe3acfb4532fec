package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/SohamFirke/pharma-backend/api/responses"
	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/db"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/SohamFirke/pharma-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pharma-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies. A failed ping marks the instance
// not ready without touching liveness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pharma-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true

		checks["database"] = "ok"
		if dbP == nil {
			checks["database"] = "not configured"
			ready = false
		} else if err := dbP.Ping(ctx); err != nil {
			logg.Error(ctx, "readiness database ping failed", err)
			checks["database"] = "unavailable"
			ready = false
		}

		checks["redis"] = "ok"
		if redisP == nil {
			checks["redis"] = "not configured"
			ready = false
		} else if err := redisP.Ping(ctx); err != nil {
			logg.Error(ctx, "readiness redis ping failed", err)
			checks["redis"] = "unavailable"
			ready = false
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not ready"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}
