package models

import (
	"time"

	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/types"
)

// TraceEntry is one agent decision in the append-only audit log. Entries
// sharing a trace_id form the complete causal record of one workflow; no entry
// is ever mutated after insert.
type TraceEntry struct {
	ID             int64             `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	TraceID        string            `gorm:"column:trace_id;not null;index" json:"trace_id"`
	Timestamp      time.Time         `gorm:"column:timestamp;not null;index" json:"timestamp"`
	AgentName      string            `gorm:"column:agent_name;not null" json:"agent_name"`
	Action         string            `gorm:"column:action;not null" json:"action"`
	Input          types.JSONMap     `gorm:"column:input;serializer:json" json:"input"`
	Output         types.JSONMap     `gorm:"column:output;serializer:json" json:"output"`
	DecisionReason string            `gorm:"column:decision_reason;not null" json:"decision_reason"`
	Status         enums.TraceStatus `gorm:"column:status;not null;default:'success'" json:"status"`
}

func (TraceEntry) TableName() string {
	return "trace_entries"
}
