package enums

import "fmt"

// TraceStatus records the outcome of a single agent decision in the audit log.
type TraceStatus string

const (
	TraceStatusSuccess TraceStatus = "success"
	TraceStatusFailed  TraceStatus = "failed"
	TraceStatusError   TraceStatus = "error"
)

var validTraceStatuses = []TraceStatus{
	TraceStatusSuccess,
	TraceStatusFailed,
	TraceStatusError,
}

// IsValid reports whether the value matches the canonical trace status enum.
func (s TraceStatus) IsValid() bool {
	for _, candidate := range validTraceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTraceStatus converts raw input into TraceStatus.
func ParseTraceStatus(value string) (TraceStatus, error) {
	for _, candidate := range validTraceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trace status %q", value)
}
