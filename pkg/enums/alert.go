package enums

// AlertPriority ranks refill alerts by urgency.
type AlertPriority string

const (
	AlertPriorityCritical AlertPriority = "CRITICAL"
	AlertPriorityHigh     AlertPriority = "HIGH"
	AlertPriorityMedium   AlertPriority = "MEDIUM"
	AlertPriorityLow      AlertPriority = "LOW"
)

// ProcurementPriority ranks restock requests raised by the inventory ledger.
type ProcurementPriority string

const (
	ProcurementPriorityHigh   ProcurementPriority = "high"
	ProcurementPriorityNormal ProcurementPriority = "normal"
)
