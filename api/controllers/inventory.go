package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SohamFirke/pharma-backend/api/responses"
	"github.com/SohamFirke/pharma-backend/api/validators"
	"github.com/SohamFirke/pharma-backend/internal/catalog"
	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	pkgerrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

// InventoryList returns the full catalog with live stock levels.
func InventoryList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicines, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicines)
	}
}

// InventoryDetail returns one medicine by case-insensitive name.
func InventoryDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(chi.URLParam(r, "name"))
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "medicine name is required"))
			return
		}

		medicine, err := svc.Get(r.Context(), name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicine)
	}
}

type medicineRequest struct {
	Name                 string `json:"medicine_name" validate:"required"`
	UnitType             string `json:"unit_type"`
	StockLevel           int    `json:"stock_level" validate:"min=0"`
	PrescriptionRequired bool   `json:"prescription_required"`
	StockThreshold       int    `json:"stock_threshold" validate:"min=0"`
}

func (req medicineRequest) medicine() *models.Medicine {
	unitType := strings.TrimSpace(req.UnitType)
	if unitType == "" {
		unitType = "tablet"
	}
	return &models.Medicine{
		Name:                 strings.TrimSpace(req.Name),
		UnitType:             unitType,
		StockLevel:           req.StockLevel,
		PrescriptionRequired: req.PrescriptionRequired,
		StockThreshold:       req.StockThreshold,
	}
}

// InventoryCreate registers a new medicine. A name collision is a conflict,
// not a rewrite.
func InventoryCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req medicineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		medicine := req.medicine()
		if err := svc.Create(r.Context(), medicine); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, medicine)
	}
}

// InventoryUpdate rewrites one catalog record. The URL names the medicine; the
// body carries the full replacement record.
func InventoryUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(chi.URLParam(r, "name"))
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "medicine name is required"))
			return
		}

		var req medicineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		medicine := req.medicine()
		medicine.Name = name
		if err := svc.Update(r.Context(), medicine); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicine)
	}
}

// LowStockAlerts lists medicines under their own restock threshold.
func LowStockAlerts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicines, err := svc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicines)
	}
}
