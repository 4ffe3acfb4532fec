package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SohamFirke/pharma-backend/internal/extraction"
	"github.com/SohamFirke/pharma-backend/internal/inventory"
	"github.com/SohamFirke/pharma-backend/internal/orders"
	"github.com/SohamFirke/pharma-backend/internal/predictive"
	"github.com/SohamFirke/pharma-backend/internal/safety"
	"github.com/SohamFirke/pharma-backend/internal/trace"
	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type fakeExtractor struct {
	extractFn func(ctx context.Context, message, userID string) (*extraction.Intent, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, message, userID string) (*extraction.Intent, error) {
	return f.extractFn(ctx, message, userID)
}

type fakeSafety struct {
	validateFn func(ctx context.Context, medicineName string, dosagePerDay int) (*safety.Decision, error)
}

func (f *fakeSafety) ValidateOrder(ctx context.Context, medicineName string, dosagePerDay int) (*safety.Decision, error) {
	return f.validateFn(ctx, medicineName, dosagePerDay)
}

func (f *fakeSafety) CheckDosage(dosagePerDay int) (bool, string) { return true, "" }

type fakeInventory struct {
	checkFn   func(ctx context.Context, medicineName string, quantity int) (*inventory.AvailabilityResult, error)
	deductFn  func(ctx context.Context, medicineName string, quantity int) (*inventory.DeductionResult, error)
	restoreFn func(ctx context.Context, medicineName string, quantity int) error
	restored  int
}

func (f *fakeInventory) CheckAvailability(ctx context.Context, medicineName string, quantity int) (*inventory.AvailabilityResult, error) {
	return f.checkFn(ctx, medicineName, quantity)
}

func (f *fakeInventory) Deduct(ctx context.Context, medicineName string, quantity int) (*inventory.DeductionResult, error) {
	return f.deductFn(ctx, medicineName, quantity)
}

func (f *fakeInventory) Restore(ctx context.Context, medicineName string, quantity int) error {
	f.restored += quantity
	if f.restoreFn != nil {
		return f.restoreFn(ctx, medicineName, quantity)
	}
	return nil
}

type fakeOrders struct {
	recordFn func(ctx context.Context, input orders.RecordOrderInput) (*models.Order, error)
}

func (f *fakeOrders) Record(ctx context.Context, input orders.RecordOrderInput) (*models.Order, error) {
	return f.recordFn(ctx, input)
}

func (f *fakeOrders) History(ctx context.Context, userID string) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) MedicineHistory(ctx context.Context, userID, medicineName string) ([]models.Order, error) {
	return nil, nil
}

type fakePredictive struct {
	alertsFn func(ctx context.Context, userID string) ([]predictive.Alert, error)
	checkFn  func(ctx context.Context, userID, medicineName string) (*predictive.Status, error)
}

func (f *fakePredictive) RefillAlerts(ctx context.Context, userID string) ([]predictive.Alert, error) {
	if f.alertsFn != nil {
		return f.alertsFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakePredictive) CheckUserMedicine(ctx context.Context, userID, medicineName string) (*predictive.Status, error) {
	if f.checkFn != nil {
		return f.checkFn(ctx, userID, medicineName)
	}
	return nil, nil
}

type fakeRecorder struct {
	entries []trace.AppendInput
}

func (f *fakeRecorder) Append(ctx context.Context, input trace.AppendInput) error {
	f.entries = append(f.entries, input)
	return nil
}

func (f *fakeRecorder) agents() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.AgentName)
	}
	return out
}

type deps struct {
	extractor  *fakeExtractor
	safety     *fakeSafety
	inventory  *fakeInventory
	orders     *fakeOrders
	predictive *fakePredictive
	recorder   *fakeRecorder
}

func happyDeps() *deps {
	return &deps{
		extractor: &fakeExtractor{
			extractFn: func(ctx context.Context, message, userID string) (*extraction.Intent, error) {
				return &extraction.Intent{
					MedicineName: "aspirin",
					Quantity:     10,
					DosagePerDay: 2,
					Method:       enums.ExtractionMethodRule,
					Confidence:   extraction.ConfidenceExact,
				}, nil
			},
		},
		safety: &fakeSafety{
			validateFn: func(ctx context.Context, medicineName string, dosagePerDay int) (*safety.Decision, error) {
				return &safety.Decision{Approved: true, Reason: "order approved"}, nil
			},
		},
		inventory: &fakeInventory{
			checkFn: func(ctx context.Context, medicineName string, quantity int) (*inventory.AvailabilityResult, error) {
				return &inventory.AvailabilityResult{
					Available: true,
					Message:   "stock available",
					Medicine:  &models.Medicine{Name: "aspirin", StockLevel: 50, UnitType: "tablet"},
				}, nil
			},
			deductFn: func(ctx context.Context, medicineName string, quantity int) (*inventory.DeductionResult, error) {
				return &inventory.DeductionResult{
					Deducted: true, Message: "stock deducted", InitialStock: 50, NewStock: 40,
				}, nil
			},
		},
		orders: &fakeOrders{
			recordFn: func(ctx context.Context, input orders.RecordOrderInput) (*models.Order, error) {
				return &models.Order{OrderID: "ORD-20250901120000-abcd1234", UserID: input.UserID}, nil
			},
		},
		predictive: &fakePredictive{},
		recorder:   &fakeRecorder{},
	}
}

func newTestService(t *testing.T, d *deps) Service {
	t.Helper()
	svc, err := NewService(
		d.extractor, d.safety, d.inventory, d.orders, d.predictive, d.recorder,
		nil, logger.New(logger.Options{ServiceName: "test"}),
	)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestProcessOrderHappyPath(t *testing.T) {
	d := happyDeps()
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "I need 10 aspirin")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusSuccess {
		t.Fatalf("expected success, got %q (%s)", result.Status, result.Message)
	}
	if result.State != enums.WorkflowStateCompleted {
		t.Fatalf("expected completed state, got %q", result.State)
	}
	if result.OrderID != "ORD-20250901120000-abcd1234" {
		t.Fatalf("unexpected order id %q", result.OrderID)
	}
	if result.TraceID == "" {
		t.Fatal("expected a trace id")
	}
	if len(result.Decisions) != 4 {
		t.Fatalf("expected 4 agent decisions, got %d", len(result.Decisions))
	}

	want := []string{
		agentOrchestrator,
		agentIntentExtractor,
		agentSafetyValidator,
		agentInventoryLedger,
		agentInventoryLedger,
		agentOrchestrator,
		agentOrchestrator,
	}
	got := d.recorder.agents()
	if len(got) != len(want) {
		t.Fatalf("expected %d trace entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	for _, entry := range d.recorder.entries {
		if entry.TraceID != result.TraceID {
			t.Fatalf("trace entry with foreign trace id %q", entry.TraceID)
		}
	}
}

func TestProcessOrderIncludesWarningInMessage(t *testing.T) {
	d := happyDeps()
	d.safety.validateFn = func(ctx context.Context, medicineName string, dosagePerDay int) (*safety.Decision, error) {
		return &safety.Decision{Approved: true, Reason: "approved", Warning: "high dosage, consult a doctor"}, nil
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "8 aspirin a day")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusSuccess {
		t.Fatalf("expected success, got %q", result.Status)
	}
	if want := "high dosage, consult a doctor"; !strings.Contains(result.Message, want) {
		t.Fatalf("expected warning %q in message %q", want, result.Message)
	}
}

func TestProcessOrderRejectedBySafety(t *testing.T) {
	d := happyDeps()
	d.safety.validateFn = func(ctx context.Context, medicineName string, dosagePerDay int) (*safety.Decision, error) {
		return &safety.Decision{Approved: false, Reason: "prescription required for tramadol"}, nil
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "I need tramadol")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusRejected {
		t.Fatalf("expected rejected, got %q", result.Status)
	}
	if result.State != enums.WorkflowStateRejected {
		t.Fatalf("expected rejected state, got %q", result.State)
	}
	if result.Message != "prescription required for tramadol" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.OrderID != "" {
		t.Fatalf("rejected order must not carry an order id, got %q", result.OrderID)
	}
}

func TestProcessOrderNoMedicineExtracted(t *testing.T) {
	d := happyDeps()
	d.extractor.extractFn = func(ctx context.Context, message, userID string) (*extraction.Intent, error) {
		return &extraction.Intent{Quantity: 1, DosagePerDay: 1}, nil
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "hello there")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusFailed {
		t.Fatalf("expected failed, got %q", result.Status)
	}
}

func TestProcessOrderInsufficientStock(t *testing.T) {
	d := happyDeps()
	d.inventory.checkFn = func(ctx context.Context, medicineName string, quantity int) (*inventory.AvailabilityResult, error) {
		return &inventory.AvailabilityResult{Available: false, Message: "insufficient stock"}, nil
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "500 aspirin")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusRejected {
		t.Fatalf("expected rejected, got %q", result.Status)
	}
}

func TestProcessOrderDeductionRace(t *testing.T) {
	// Availability passed but a concurrent order drained the stock before the
	// deduction ran.
	d := happyDeps()
	d.inventory.deductFn = func(ctx context.Context, medicineName string, quantity int) (*inventory.DeductionResult, error) {
		return &inventory.DeductionResult{Deducted: false, Message: "insufficient stock at deduction time"}, nil
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "10 aspirin")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusRejected {
		t.Fatalf("expected rejected, got %q", result.Status)
	}
	if d.inventory.restored != 0 {
		t.Fatalf("nothing was deducted, nothing should be restored, got %d", d.inventory.restored)
	}
}

func TestProcessOrderPersistFailureRestoresStock(t *testing.T) {
	d := happyDeps()
	d.orders.recordFn = func(ctx context.Context, input orders.RecordOrderInput) (*models.Order, error) {
		return nil, errors.New("db down")
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "10 aspirin")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusFailed {
		t.Fatalf("expected failed, got %q", result.Status)
	}
	if d.inventory.restored != 10 {
		t.Fatalf("expected 10 units restored, got %d", d.inventory.restored)
	}
}

func TestProcessOrderExtractorErrorIsError(t *testing.T) {
	d := happyDeps()
	d.extractor.extractFn = func(ctx context.Context, message, userID string) (*extraction.Intent, error) {
		return nil, errors.New("model unreachable")
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "10 aspirin")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusError {
		t.Fatalf("expected error status, got %q", result.Status)
	}
	if result.State != enums.WorkflowStateError {
		t.Fatalf("expected error state, got %q", result.State)
	}
}

func TestProcessOrderPanicBecomesErrorResult(t *testing.T) {
	d := happyDeps()
	d.safety.validateFn = func(ctx context.Context, medicineName string, dosagePerDay int) (*safety.Decision, error) {
		panic("nil map write")
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "10 aspirin")
	if err != nil {
		t.Fatalf("ProcessOrder must not return an error on panic, got %v", err)
	}
	if result.Status != enums.OrderStatusError {
		t.Fatalf("expected error status, got %q", result.Status)
	}
}

func TestProcessOrderRefillAdvisoryDoesNotBlock(t *testing.T) {
	d := happyDeps()
	d.predictive.checkFn = func(ctx context.Context, userID, medicineName string) (*predictive.Status, error) {
		return &predictive.Status{
			UserID:        userID,
			MedicineName:  medicineName,
			DaysRemaining: decimal.NewFromInt(2),
			NeedsRefill:   true,
		}, nil
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessOrder(context.Background(), "U001", "10 aspirin")
	if err != nil {
		t.Fatalf("ProcessOrder error: %v", err)
	}
	if result.Status != enums.OrderStatusSuccess {
		t.Fatalf("expected success, got %q", result.Status)
	}

	found := false
	for _, entry := range d.recorder.entries {
		if entry.AgentName == agentPredictiveWorker && entry.Action == "check_refill" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a refill advisory trace entry")
	}
}

func TestProcessPrescriptionItemsMixedOutcomes(t *testing.T) {
	d := happyDeps()
	d.safety.validateFn = func(ctx context.Context, medicineName string, dosagePerDay int) (*safety.Decision, error) {
		if medicineName == "tramadol" {
			return &safety.Decision{Approved: false, Reason: "prescription required for tramadol"}, nil
		}
		return &safety.Decision{Approved: true, Reason: "approved"}, nil
	}
	svc := newTestService(t, d)

	result, err := svc.ProcessPrescriptionItems(context.Background(), "U001", []PrescriptionItem{
		{MedicineName: "aspirin", Quantity: 10, DosagePerDay: 2},
		{MedicineName: "tramadol", Quantity: 5, DosagePerDay: 1},
	})
	if err != nil {
		t.Fatalf("ProcessPrescriptionItems error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 item results, got %d", len(result.Items))
	}
	if result.Items[0].Status != enums.OrderStatusSuccess || result.Items[0].OrderID == "" {
		t.Fatalf("expected first item fulfilled, got %+v", result.Items[0])
	}
	if result.Items[1].Status != enums.OrderStatusRejected {
		t.Fatalf("expected second item rejected, got %+v", result.Items[1])
	}
	for _, entry := range d.recorder.entries {
		if entry.TraceID != result.TraceID {
			t.Fatalf("all items must share the prescription trace id, got %q", entry.TraceID)
		}
	}
}

func TestProcessPrescriptionItemsEmpty(t *testing.T) {
	svc := newTestService(t, happyDeps())
	if _, err := svc.ProcessPrescriptionItems(context.Background(), "U001", nil); err == nil {
		t.Fatal("expected validation error for empty prescription")
	}
}

func TestRefillAlertsRecordsSweep(t *testing.T) {
	d := happyDeps()
	d.predictive.alertsFn = func(ctx context.Context, userID string) ([]predictive.Alert, error) {
		return []predictive.Alert{{UserID: "U001", MedicineName: "aspirin"}}, nil
	}
	svc := newTestService(t, d)

	alerts, err := svc.RefillAlerts(context.Background(), "")
	if err != nil {
		t.Fatalf("RefillAlerts error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if len(d.recorder.entries) != 1 {
		t.Fatalf("expected 1 trace entry, got %d", len(d.recorder.entries))
	}
	entry := d.recorder.entries[0]
	if entry.AgentName != agentPredictiveWorker || entry.Action != "generate_refill_alerts" {
		t.Fatalf("unexpected trace entry %+v", entry)
	}
}
