package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	pkgerrors "github.com/SohamFirke/pharma-backend/pkg/errors"
)

type fakeCatalog struct {
	createFn   func(ctx context.Context, medicine *models.Medicine) error
	updateFn   func(ctx context.Context, medicine *models.Medicine) error
	lowStockFn func(ctx context.Context) ([]models.Medicine, error)
}

func (f *fakeCatalog) Get(ctx context.Context, name string) (*models.Medicine, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
}

func (f *fakeCatalog) List(ctx context.Context) ([]models.Medicine, error) { return nil, nil }

func (f *fakeCatalog) Names(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeCatalog) Create(ctx context.Context, medicine *models.Medicine) error {
	if f.createFn != nil {
		return f.createFn(ctx, medicine)
	}
	return nil
}

func (f *fakeCatalog) Update(ctx context.Context, medicine *models.Medicine) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, medicine)
	}
	return nil
}

func (f *fakeCatalog) LowStock(ctx context.Context) ([]models.Medicine, error) {
	if f.lowStockFn != nil {
		return f.lowStockFn(ctx)
	}
	return nil, nil
}

func TestInventoryCreate(t *testing.T) {
	var created *models.Medicine
	svc := &fakeCatalog{
		createFn: func(ctx context.Context, medicine *models.Medicine) error {
			created = medicine
			return nil
		},
	}

	body := `{"medicine_name":"Cetirizine","unit_type":"tablet","stock_level":120,"stock_threshold":40}`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(body))
	rec := httptest.NewRecorder()

	InventoryCreate(svc, testLogger())(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if created == nil || created.Name != "Cetirizine" || created.StockLevel != 120 {
		t.Fatalf("unexpected create %+v", created)
	}
}

func TestInventoryCreateDuplicateIsConflict(t *testing.T) {
	svc := &fakeCatalog{
		createFn: func(ctx context.Context, medicine *models.Medicine) error {
			return pkgerrors.New(pkgerrors.CodeConflict, `medicine "Cetirizine" already exists`)
		},
	}

	body := `{"medicine_name":"Cetirizine","stock_level":120}`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(body))
	rec := httptest.NewRecorder()

	InventoryCreate(svc, testLogger())(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rec.Code)
	}
}

func TestInventoryUpdateUsesURLName(t *testing.T) {
	var updated *models.Medicine
	svc := &fakeCatalog{
		updateFn: func(ctx context.Context, medicine *models.Medicine) error {
			updated = medicine
			return nil
		},
	}

	body := `{"medicine_name":"ignored","unit_type":"capsule","stock_level":50,"stock_threshold":10}`
	req := httptest.NewRequest(http.MethodPut, "/api/inventory/aspirin", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("name", "aspirin")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	InventoryUpdate(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if updated == nil || updated.Name != "aspirin" {
		t.Fatalf("URL name must win over body, got %+v", updated)
	}
}

func TestLowStockAlertsListsPerRowBreaches(t *testing.T) {
	svc := &fakeCatalog{
		lowStockFn: func(ctx context.Context) ([]models.Medicine, error) {
			return []models.Medicine{{Name: "insulin", StockLevel: 4, StockThreshold: 30}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/low-stock", nil)
	rec := httptest.NewRecorder()

	LowStockAlerts(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "insulin") {
		t.Fatalf("expected insulin in listing: %s", rec.Body.String())
	}
}
