package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SohamFirke/pharma-backend/internal/orchestrator"
	"github.com/SohamFirke/pharma-backend/internal/predictive"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

type fakeOrchestrator struct {
	processFn      func(ctx context.Context, userID, message string) (*orchestrator.Result, error)
	prescriptionFn func(ctx context.Context, userID string, items []orchestrator.PrescriptionItem) (*orchestrator.PrescriptionResult, error)
	alertsFn       func(ctx context.Context, userID string) ([]predictive.Alert, error)
}

func (f *fakeOrchestrator) ProcessOrder(ctx context.Context, userID, message string) (*orchestrator.Result, error) {
	return f.processFn(ctx, userID, message)
}

func (f *fakeOrchestrator) ProcessPrescriptionItems(ctx context.Context, userID string, items []orchestrator.PrescriptionItem) (*orchestrator.PrescriptionResult, error) {
	if f.prescriptionFn != nil {
		return f.prescriptionFn(ctx, userID, items)
	}
	return &orchestrator.PrescriptionResult{UserID: userID}, nil
}

func (f *fakeOrchestrator) RefillAlerts(ctx context.Context, userID string) ([]predictive.Alert, error) {
	if f.alertsFn != nil {
		return f.alertsFn(ctx, userID)
	}
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestCreateOrderSuccess(t *testing.T) {
	svc := &fakeOrchestrator{
		processFn: func(ctx context.Context, userID, message string) (*orchestrator.Result, error) {
			if userID != "U001" || message != "10 aspirin" {
				t.Fatalf("unexpected input %q %q", userID, message)
			}
			return &orchestrator.Result{
				TraceID: "trace-1",
				Status:  enums.OrderStatusSuccess,
				Message: "order confirmed",
				OrderID: "ORD-1",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/order",
		strings.NewReader(`{"user_id":"U001","message":"10 aspirin"}`))
	rec := httptest.NewRecorder()

	CreateOrder(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Data.Status != "success" || envelope.Data.OrderID != "ORD-1" || envelope.Data.TraceID != "trace-1" {
		t.Fatalf("unexpected body %+v", envelope.Data)
	}
}

func TestCreateOrderRejectionIsStillHTTP200(t *testing.T) {
	svc := &fakeOrchestrator{
		processFn: func(ctx context.Context, userID, message string) (*orchestrator.Result, error) {
			return &orchestrator.Result{
				TraceID: "trace-2",
				Status:  enums.OrderStatusRejected,
				Message: "prescription required",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/order",
		strings.NewReader(`{"user_id":"U001","message":"tramadol"}`))
	rec := httptest.NewRecorder()

	CreateOrder(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("pipeline rejections are payload, not transport errors; got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"rejected"`) {
		t.Fatalf("expected rejected status in body: %s", rec.Body.String())
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := &fakeOrchestrator{
		processFn: func(ctx context.Context, userID, message string) (*orchestrator.Result, error) {
			t.Fatal("pipeline must not run on invalid input")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(`{"user_id":"U001"}`))
	rec := httptest.NewRecorder()

	CreateOrder(svc, testLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePrescription(t *testing.T) {
	svc := &fakeOrchestrator{
		prescriptionFn: func(ctx context.Context, userID string, items []orchestrator.PrescriptionItem) (*orchestrator.PrescriptionResult, error) {
			if len(items) != 2 {
				t.Fatalf("expected 2 items, got %d", len(items))
			}
			return &orchestrator.PrescriptionResult{
				TraceID: "trace-3",
				UserID:  userID,
				Items: []orchestrator.PrescriptionItemResult{
					{MedicineName: items[0].MedicineName, Status: enums.OrderStatusSuccess},
					{MedicineName: items[1].MedicineName, Status: enums.OrderStatusRejected},
				},
			}, nil
		},
	}

	body := `{"user_id":"U001","items":[` +
		`{"medicine_name":"aspirin","quantity":10,"dosage_per_day":2},` +
		`{"medicine_name":"tramadol","quantity":5,"dosage_per_day":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/prescription", strings.NewReader(body))
	rec := httptest.NewRecorder()

	CreatePrescription(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
