package controllers

import (
	"net/http"
	"strings"

	"github.com/SohamFirke/pharma-backend/api/responses"
	"github.com/SohamFirke/pharma-backend/api/validators"
	"github.com/SohamFirke/pharma-backend/internal/catalog"
	"github.com/SohamFirke/pharma-backend/internal/trace"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

// TraceList returns raw audit entries, newest first, optionally filtered by
// trace_id or agent.
func TraceList(svc trace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.List(r.Context(), trace.ListFilter{
			Limit:     limit,
			TraceID:   strings.TrimSpace(r.URL.Query().Get("trace_id")),
			AgentName: strings.TrimSpace(r.URL.Query().Get("agent")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// TraceGrouped returns complete workflows keyed by trace id.
func TraceGrouped(svc trace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		workflows, err := svc.Grouped(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflows)
	}
}

// TraceClear truncates the audit trail. Routing keeps this behind auth.
func TraceClear(svc trace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// Statistics combines audit-trail aggregates with catalog health for the
// dashboard.
func Statistics(traceSvc trace.Service, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := traceSvc.Statistics(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		medicines, err := catalogSvc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lowStock, err := catalogSvc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prescriptionCount := 0
		for _, medicine := range medicines {
			if medicine.PrescriptionRequired {
				prescriptionCount++
			}
		}

		responses.WriteSuccess(w, map[string]any{
			"traces": stats,
			"inventory": map[string]int{
				"total_medicines":             len(medicines),
				"low_stock_count":             len(lowStock),
				"prescription_required_count": prescriptionCount,
			},
		})
	}
}
