// Package orchestrator drives the order pipeline: extraction, safety,
// inventory, persistence, and the advisory refill check, with every decision
// appended to the audit trail.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/SohamFirke/pharma-backend/internal/extraction"
	"github.com/SohamFirke/pharma-backend/internal/inventory"
	"github.com/SohamFirke/pharma-backend/internal/orders"
	"github.com/SohamFirke/pharma-backend/internal/predictive"
	"github.com/SohamFirke/pharma-backend/internal/safety"
	"github.com/SohamFirke/pharma-backend/internal/trace"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/SohamFirke/pharma-backend/pkg/metrics"
	"github.com/SohamFirke/pharma-backend/pkg/types"
)

// Agent names as they appear in the audit trail.
const (
	agentIntentExtractor  = "intent_extractor"
	agentSafetyValidator  = "safety_validator"
	agentInventoryLedger  = "inventory_ledger"
	agentOrchestrator     = "orchestrator"
	agentPredictiveWorker = "predictive_analyzer"
)

// Decision is one agent's contribution to a pipeline run.
type Decision struct {
	Agent  string        `json:"agent"`
	Action string        `json:"action"`
	Result types.JSONMap `json:"result"`
}

// Result is the caller-facing outcome of one pipeline run.
type Result struct {
	TraceID   string              `json:"trace_id"`
	UserID    string              `json:"user_id"`
	Timestamp time.Time           `json:"timestamp"`
	State     enums.WorkflowState `json:"state"`
	Status    enums.OrderStatus   `json:"status"`
	Message   string              `json:"message"`
	OrderID   string              `json:"order_id,omitempty"`
	Decisions []Decision          `json:"agent_decisions"`
}

// PrescriptionItem is one pre-extracted line of a prescription. Upload and OCR
// live behind whatever produced the items; the pipeline only fulfills them.
type PrescriptionItem struct {
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	DosagePerDay int    `json:"dosage_per_day"`
}

// PrescriptionItemResult is the per-item outcome of a prescription run.
type PrescriptionItemResult struct {
	MedicineName string            `json:"medicine_name"`
	Status       enums.OrderStatus `json:"status"`
	Message      string            `json:"message"`
	OrderID      string            `json:"order_id,omitempty"`
}

// PrescriptionResult reports a full prescription run under one trace id.
type PrescriptionResult struct {
	TraceID string                   `json:"trace_id"`
	UserID  string                   `json:"user_id"`
	Items   []PrescriptionItemResult `json:"items"`
}

// Service coordinates the order pipeline.
type Service interface {
	ProcessOrder(ctx context.Context, userID, message string) (*Result, error)
	ProcessPrescriptionItems(ctx context.Context, userID string, items []PrescriptionItem) (*PrescriptionResult, error)
	RefillAlerts(ctx context.Context, userID string) ([]predictive.Alert, error)
}

type service struct {
	extractor  extraction.Extractor
	safety     safety.Service
	inventory  inventory.Service
	orders     orders.Service
	predictive predictive.Service
	recorder   trace.Recorder
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// NewService wires the orchestrator. Metrics are optional, everything else is
// required.
func NewService(
	extractor extraction.Extractor,
	safetySvc safety.Service,
	inventorySvc inventory.Service,
	ordersSvc orders.Service,
	predictiveSvc predictive.Service,
	recorder trace.Recorder,
	m *metrics.Metrics,
	logg *logger.Logger,
) (Service, error) {
	if extractor == nil || safetySvc == nil || inventorySvc == nil ||
		ordersSvc == nil || predictiveSvc == nil || recorder == nil || logg == nil {
		return nil, fmt.Errorf("orchestrator requires all pipeline dependencies")
	}
	return &service{
		extractor:  extractor,
		safety:     safetySvc,
		inventory:  inventorySvc,
		orders:     ordersSvc,
		predictive: predictiveSvc,
		recorder:   recorder,
		metrics:    m,
		logger:     logg,
	}, nil
}

// run carries the mutable state of one pipeline execution.
type run struct {
	traceID string
	userID  string
	message string
	state   enums.WorkflowState
	result  *Result
}

func (s *service) ProcessOrder(ctx context.Context, userID, message string) (result *Result, err error) {
	traceID := trace.NewTraceID()
	ctx = s.logger.WithTraceID(ctx, traceID)

	r := &run{
		traceID: traceID,
		userID:  userID,
		message: message,
		state:   enums.WorkflowStateStarted,
		result: &Result{
			TraceID:   traceID,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
			State:     enums.WorkflowStateStarted,
			Decisions: []Decision{},
		},
	}

	// The pipeline must always produce a terminal result; a panic in any
	// step degrades to an error outcome instead of crashing the caller.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error(ctx, "order pipeline panicked", fmt.Errorf("%v", rec))
			s.fail(ctx, r, enums.OrderStatusError, fmt.Sprintf("system error: %v", rec))
			result = r.result
			err = nil
		}
		if s.metrics != nil && result != nil {
			s.metrics.ObserveOrder(string(result.Status))
		}
	}()

	s.record(ctx, r, agentOrchestrator, "workflow_started",
		types.JSONMap{"user_id": userID, "message": message},
		types.JSONMap{"state": string(r.state)},
		"order pipeline started", enums.TraceStatusSuccess)

	intent, ok := s.stepExtract(ctx, r)
	if !ok {
		return r.result, nil
	}

	if !s.fulfill(ctx, r, intent) {
		return r.result, nil
	}

	// Advisory only: a refill forecast failure must not touch the order
	// outcome.
	s.checkRefill(ctx, r, intent)

	return r.result, nil
}

// fulfill runs the post-extraction half of the pipeline: safety, availability,
// deduction, persistence, completion.
func (s *service) fulfill(ctx context.Context, r *run, intent *extraction.Intent) bool {
	decision, ok := s.stepSafety(ctx, r, intent)
	if !ok {
		return false
	}

	availability, ok := s.stepAvailability(ctx, r, intent)
	if !ok {
		return false
	}

	deduction, ok := s.stepDeduct(ctx, r, intent)
	if !ok {
		return false
	}

	order, ok := s.stepPersist(ctx, r, intent)
	if !ok {
		return false
	}

	s.complete(ctx, r, intent, decision, availability, deduction, order)
	return true
}

// ProcessPrescriptionItems fulfills pre-extracted prescription lines. Every
// item shares one trace id and runs the same safety, inventory, and
// persistence gates as a conversational order; one rejected item does not
// block the rest.
func (s *service) ProcessPrescriptionItems(ctx context.Context, userID string, items []PrescriptionItem) (*PrescriptionResult, error) {
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "at least one prescription item is required")
	}

	traceID := trace.NewTraceID()
	ctx = s.logger.WithTraceID(ctx, traceID)

	s.recordDetachedWithID(ctx, traceID, agentOrchestrator, "prescription_started",
		types.JSONMap{"user_id": userID, "item_count": len(items)},
		types.JSONMap{},
		"prescription pipeline started")

	out := &PrescriptionResult{TraceID: traceID, UserID: userID}
	for _, item := range items {
		intent := &extraction.Intent{
			MedicineName: item.MedicineName,
			Quantity:     item.Quantity,
			DosagePerDay: item.DosagePerDay,
		}
		if intent.Quantity <= 0 {
			intent.Quantity = 1
		}
		if intent.DosagePerDay <= 0 {
			intent.DosagePerDay = 1
		}

		r := &run{
			traceID: traceID,
			userID:  userID,
			state:   enums.WorkflowStateStarted,
			result: &Result{
				TraceID:   traceID,
				UserID:    userID,
				Timestamp: time.Now().UTC(),
				State:     enums.WorkflowStateStarted,
				Decisions: []Decision{},
			},
		}
		s.fulfill(ctx, r, intent)

		out.Items = append(out.Items, PrescriptionItemResult{
			MedicineName: item.MedicineName,
			Status:       r.result.Status,
			Message:      r.result.Message,
			OrderID:      r.result.OrderID,
		})
		if s.metrics != nil {
			s.metrics.ObserveOrder(string(r.result.Status))
		}
	}
	return out, nil
}

func (s *service) stepExtract(ctx context.Context, r *run) (*extraction.Intent, bool) {
	start := time.Now()
	intent, err := s.extractor.Extract(ctx, r.message, r.userID)
	s.observeStep(agentIntentExtractor, start)
	if err != nil {
		s.record(ctx, r, agentIntentExtractor, "extract_intent",
			types.JSONMap{"message": r.message, "user_id": r.userID},
			types.JSONMap{"error": err.Error()},
			"intent extraction errored", enums.TraceStatusError)
		s.fail(ctx, r, enums.OrderStatusError, "could not process the request, please try again")
		return nil, false
	}

	output := types.JSONMap{
		"medicine_name":     intent.MedicineName,
		"quantity":          intent.Quantity,
		"dosage_per_day":    intent.DosagePerDay,
		"extraction_method": string(intent.Method),
		"confidence":        intent.Confidence,
	}
	s.record(ctx, r, agentIntentExtractor, "extract_intent",
		types.JSONMap{"message": r.message, "user_id": r.userID},
		output, intent.DecisionReason(), enums.TraceStatusSuccess)
	s.decide(r, agentIntentExtractor, "extract_intent", output)

	if intent.MedicineName == "" {
		s.fail(ctx, r, enums.OrderStatusFailed,
			"could not understand the medicine request; please name the medicine clearly")
		return nil, false
	}

	r.transition(enums.WorkflowStateIntentExtracted)
	return intent, true
}

func (s *service) stepSafety(ctx context.Context, r *run, intent *extraction.Intent) (*safety.Decision, bool) {
	start := time.Now()
	decision, err := s.safety.ValidateOrder(ctx, intent.MedicineName, intent.DosagePerDay)
	s.observeStep(agentSafetyValidator, start)
	if err != nil {
		s.record(ctx, r, agentSafetyValidator, "validate_order",
			types.JSONMap{"medicine_name": intent.MedicineName, "dosage_per_day": intent.DosagePerDay},
			types.JSONMap{"error": err.Error()},
			"safety validation errored", enums.TraceStatusError)
		s.fail(ctx, r, enums.OrderStatusError, "safety validation failed, please try again")
		return nil, false
	}

	output := types.JSONMap{
		"approved": decision.Approved,
		"reason":   decision.Reason,
		"metadata": decision.Metadata,
	}
	status := enums.TraceStatusSuccess
	if !decision.Approved {
		status = enums.TraceStatusFailed
	}
	s.record(ctx, r, agentSafetyValidator, "validate_order",
		types.JSONMap{"medicine_name": intent.MedicineName, "dosage_per_day": intent.DosagePerDay},
		output, decision.Reason, status)
	s.decide(r, agentSafetyValidator, "validate_order", output)

	if !decision.Approved {
		s.fail(ctx, r, enums.OrderStatusRejected, decision.Reason)
		return nil, false
	}

	r.transition(enums.WorkflowStateSafetyChecked)
	return decision, true
}

func (s *service) stepAvailability(ctx context.Context, r *run, intent *extraction.Intent) (*inventory.AvailabilityResult, bool) {
	start := time.Now()
	availability, err := s.inventory.CheckAvailability(ctx, intent.MedicineName, intent.Quantity)
	s.observeStep(agentInventoryLedger, start)
	if err != nil {
		s.record(ctx, r, agentInventoryLedger, "check_availability",
			types.JSONMap{"medicine_name": intent.MedicineName, "quantity": intent.Quantity},
			types.JSONMap{"error": err.Error()},
			"availability check errored", enums.TraceStatusError)
		s.fail(ctx, r, enums.OrderStatusError, "inventory check failed, please try again")
		return nil, false
	}

	output := types.JSONMap{
		"available": availability.Available,
		"message":   availability.Message,
		"metadata":  availability.Metadata,
	}
	status := enums.TraceStatusSuccess
	if !availability.Available {
		status = enums.TraceStatusFailed
	}
	s.record(ctx, r, agentInventoryLedger, "check_availability",
		types.JSONMap{"medicine_name": intent.MedicineName, "quantity": intent.Quantity},
		output, availability.Message, status)
	s.decide(r, agentInventoryLedger, "check_availability", output)

	if !availability.Available {
		s.fail(ctx, r, enums.OrderStatusRejected, availability.Message)
		return nil, false
	}

	r.transition(enums.WorkflowStateAvailabilityChecked)
	return availability, true
}

func (s *service) stepDeduct(ctx context.Context, r *run, intent *extraction.Intent) (*inventory.DeductionResult, bool) {
	start := time.Now()
	deduction, err := s.inventory.Deduct(ctx, intent.MedicineName, intent.Quantity)
	s.observeStep(agentInventoryLedger, start)
	if err != nil {
		s.record(ctx, r, agentInventoryLedger, "deduct_stock",
			types.JSONMap{"medicine_name": intent.MedicineName, "quantity": intent.Quantity},
			types.JSONMap{"error": err.Error()},
			"stock deduction errored", enums.TraceStatusError)
		s.fail(ctx, r, enums.OrderStatusError, "stock deduction failed, please try again")
		return nil, false
	}

	output := types.JSONMap{
		"deducted": deduction.Deducted,
		"message":  deduction.Message,
		"metadata": deduction.Metadata,
	}
	status := enums.TraceStatusSuccess
	if !deduction.Deducted {
		status = enums.TraceStatusFailed
	}
	s.record(ctx, r, agentInventoryLedger, "deduct_stock",
		types.JSONMap{"medicine_name": intent.MedicineName, "quantity": intent.Quantity},
		output, deduction.Message, status)
	s.decide(r, agentInventoryLedger, "deduct_stock", output)

	if !deduction.Deducted {
		// Availability was a snapshot; a concurrent order may have taken
		// the stock first. Rejecting here keeps the ledger non-negative.
		s.fail(ctx, r, enums.OrderStatusRejected, deduction.Message)
		return nil, false
	}

	r.transition(enums.WorkflowStateStockDeducted)
	return deduction, true
}

func (s *service) stepPersist(ctx context.Context, r *run, intent *extraction.Intent) (*ordersRecord, bool) {
	order, err := s.orders.Record(ctx, orders.RecordOrderInput{
		UserID:       r.userID,
		MedicineName: intent.MedicineName,
		Quantity:     intent.Quantity,
		DosagePerDay: intent.DosagePerDay,
	})
	if err != nil {
		// The stock is already gone; compensate before reporting failure.
		if restoreErr := s.inventory.Restore(ctx, intent.MedicineName, intent.Quantity); restoreErr != nil {
			s.logger.Error(ctx, "restoring stock after persist failure", restoreErr)
		}
		s.record(ctx, r, agentOrchestrator, "persist_order",
			types.JSONMap{"medicine_name": intent.MedicineName, "quantity": intent.Quantity},
			types.JSONMap{"error": err.Error()},
			"order persistence failed, stock restored", enums.TraceStatusError)
		s.fail(ctx, r, enums.OrderStatusFailed, "failed to persist the order, stock was not charged")
		return nil, false
	}

	s.record(ctx, r, agentOrchestrator, "persist_order",
		types.JSONMap{"medicine_name": intent.MedicineName, "quantity": intent.Quantity},
		types.JSONMap{"order_id": order.OrderID},
		fmt.Sprintf("order %s persisted", order.OrderID), enums.TraceStatusSuccess)

	r.transition(enums.WorkflowStatePersisted)
	return &ordersRecord{orderID: order.OrderID}, true
}

type ordersRecord struct {
	orderID string
}

func (s *service) complete(
	ctx context.Context,
	r *run,
	intent *extraction.Intent,
	decision *safety.Decision,
	availability *inventory.AvailabilityResult,
	deduction *inventory.DeductionResult,
	order *ordersRecord,
) {
	r.transition(enums.WorkflowStateCompleted)
	r.result.State = r.state
	r.result.Status = enums.OrderStatusSuccess
	r.result.OrderID = order.orderID

	unit := "unit"
	if availability.Medicine != nil {
		unit = availability.Medicine.UnitType
	}
	message := fmt.Sprintf(
		"order confirmed: %s, %d %s(s), order id %s",
		intent.MedicineName, intent.Quantity, unit, order.orderID,
	)
	if decision.Warning != "" {
		message += "; " + decision.Warning
	}
	if deduction.ProcurementTriggered {
		message += "; low stock, warehouse restock initiated"
	}
	r.result.Message = message

	s.record(ctx, r, agentOrchestrator, "workflow_completed",
		types.JSONMap{"user_id": r.userID},
		types.JSONMap{"order_id": order.orderID, "state": string(r.state)},
		"order pipeline completed", enums.TraceStatusSuccess)
}

// checkRefill runs the advisory forecast after a successful order.
func (s *service) checkRefill(ctx context.Context, r *run, intent *extraction.Intent) {
	start := time.Now()
	status, err := s.predictive.CheckUserMedicine(ctx, r.userID, intent.MedicineName)
	s.observeStep(agentPredictiveWorker, start)
	if err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("refill forecast failed: %v", err))
		return
	}
	if status == nil {
		return
	}
	s.record(ctx, r, agentPredictiveWorker, "check_refill",
		types.JSONMap{"user_id": r.userID, "medicine_name": intent.MedicineName},
		types.JSONMap{
			"days_remaining": status.DaysRemaining.String(),
			"runout_date":    status.RunoutDate,
			"needs_refill":   status.NeedsRefill,
		},
		fmt.Sprintf("refill forecast: %s days remaining", status.DaysRemaining), enums.TraceStatusSuccess)
}

// RefillAlerts proxies the forecaster and records the sweep in the audit
// trail.
func (s *service) RefillAlerts(ctx context.Context, userID string) ([]predictive.Alert, error) {
	alerts, err := s.predictive.RefillAlerts(ctx, userID)
	if err != nil {
		return nil, err
	}

	scope := userID
	if scope == "" {
		scope = "all"
	}
	s.recordDetached(ctx, agentPredictiveWorker, "generate_refill_alerts",
		types.JSONMap{"user_id": scope},
		types.JSONMap{"alert_count": len(alerts)},
		fmt.Sprintf("generated %d refill alerts", len(alerts)))
	return alerts, nil
}

func (s *service) fail(ctx context.Context, r *run, status enums.OrderStatus, message string) {
	switch status {
	case enums.OrderStatusRejected:
		r.transition(enums.WorkflowStateRejected)
	default:
		r.transition(enums.WorkflowStateError)
	}
	r.result.State = r.state
	r.result.Status = status
	r.result.Message = message

	traceStatus := enums.TraceStatusFailed
	if status == enums.OrderStatusError {
		traceStatus = enums.TraceStatusError
	}
	s.record(ctx, r, agentOrchestrator, "workflow_ended",
		types.JSONMap{"user_id": r.userID},
		types.JSONMap{"state": string(r.state), "status": string(status)},
		message, traceStatus)
}

// transition moves the run forward; terminal states are sticky.
func (r *run) transition(next enums.WorkflowState) {
	if r.state.Terminal() {
		return
	}
	r.state = next
	r.result.State = next
}

func (s *service) decide(r *run, agent, action string, result types.JSONMap) {
	r.result.Decisions = append(r.result.Decisions, Decision{
		Agent:  agent,
		Action: action,
		Result: result,
	})
}

func (s *service) record(
	ctx context.Context,
	r *run,
	agent, action string,
	input, output types.JSONMap,
	reason string,
	status enums.TraceStatus,
) {
	err := s.recorder.Append(ctx, trace.AppendInput{
		TraceID:        r.traceID,
		AgentName:      agent,
		Action:         action,
		Input:          input,
		Output:         output,
		DecisionReason: reason,
		Status:         status,
	})
	if err != nil {
		// The audit trail is best effort from the pipeline's view; losing
		// an entry must not fail the customer's order.
		s.logger.Error(ctx, "appending trace entry", err)
	}
}

// recordDetached writes an audit entry outside a pipeline run.
func (s *service) recordDetached(ctx context.Context, agent, action string, input, output types.JSONMap, reason string) {
	s.recordDetachedWithID(ctx, trace.NewTraceID(), agent, action, input, output, reason)
}

func (s *service) recordDetachedWithID(ctx context.Context, traceID, agent, action string, input, output types.JSONMap, reason string) {
	err := s.recorder.Append(ctx, trace.AppendInput{
		TraceID:        traceID,
		AgentName:      agent,
		Action:         action,
		Input:          input,
		Output:         output,
		DecisionReason: reason,
		Status:         enums.TraceStatusSuccess,
	})
	if err != nil {
		s.logger.Error(ctx, "appending trace entry", err)
	}
}

func (s *service) observeStep(agent string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStep(agent, time.Since(start))
	}
}
