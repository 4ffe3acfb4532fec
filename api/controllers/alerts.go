package controllers

import (
	"net/http"
	"strings"

	"github.com/SohamFirke/pharma-backend/api/responses"
	"github.com/SohamFirke/pharma-backend/internal/orchestrator"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

// RefillAlerts runs an on-demand forecast sweep. The optional user_id query
// parameter narrows it to one user.
func RefillAlerts(svc orchestrator.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))

		alerts, err := svc.RefillAlerts(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alerts)
	}
}
