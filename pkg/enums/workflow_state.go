package enums

// WorkflowState tracks the orchestrator's progress through one order pipeline.
type WorkflowState string

const (
	WorkflowStateStarted             WorkflowState = "started"
	WorkflowStateIntentExtracted     WorkflowState = "intent_extracted"
	WorkflowStateSafetyChecked       WorkflowState = "safety_checked"
	WorkflowStateAvailabilityChecked WorkflowState = "availability_checked"
	WorkflowStateStockDeducted       WorkflowState = "stock_deducted"
	WorkflowStatePersisted           WorkflowState = "persisted"
	WorkflowStateCompleted           WorkflowState = "completed"
	WorkflowStateRejected            WorkflowState = "rejected"
	WorkflowStateError               WorkflowState = "error"
)

// Terminal reports whether no further transitions are allowed from the state.
func (s WorkflowState) Terminal() bool {
	switch s {
	case WorkflowStateCompleted, WorkflowStateRejected, WorkflowStateError:
		return true
	}
	return false
}

// OrderStatus is the caller-facing outcome of ProcessOrder.
type OrderStatus string

const (
	OrderStatusSuccess  OrderStatus = "success"
	OrderStatusRejected OrderStatus = "rejected"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusError    OrderStatus = "error"
)
