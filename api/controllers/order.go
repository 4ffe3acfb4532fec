package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SohamFirke/pharma-backend/api/responses"
	"github.com/SohamFirke/pharma-backend/api/validators"
	"github.com/SohamFirke/pharma-backend/internal/orchestrator"
	"github.com/SohamFirke/pharma-backend/internal/orders"
	pkgerrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

type orderRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type orderResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TraceID string `json:"trace_id"`
	OrderID string `json:"order_id,omitempty"`
}

// CreateOrder runs the full agent pipeline for one conversational order. The
// pipeline reports rejections and failures inside the response body; only
// infrastructure errors surface as HTTP errors.
func CreateOrder(svc orchestrator.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProcessOrder(r.Context(), req.UserID, req.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "process order"))
			return
		}

		responses.WriteSuccess(w, orderResponse{
			Status:  string(result.Status),
			Message: result.Message,
			TraceID: result.TraceID,
			OrderID: result.OrderID,
		})
	}
}

type prescriptionRequest struct {
	UserID string                          `json:"user_id" validate:"required"`
	Items  []orchestrator.PrescriptionItem `json:"items" validate:"required,min=1,dive"`
}

// CreatePrescription fulfills pre-extracted prescription items through the
// same safety and inventory gates as conversational orders.
func CreatePrescription(svc orchestrator.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prescriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProcessPrescriptionItems(r.Context(), req.UserID, req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// UserHistory lists the order ledger for one user, newest first.
func UserHistory(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "userID"))
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user id is required"))
			return
		}

		history, err := svc.History(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}
