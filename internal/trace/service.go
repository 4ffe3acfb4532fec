package trace

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/SohamFirke/pharma-backend/pkg/metrics"
	"github.com/SohamFirke/pharma-backend/pkg/types"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	recentActivity   = 10
)

// Recorder is the write-side surface the pipeline depends on. Recording an
// audit entry must never mutate prior entries.
type Recorder interface {
	Append(ctx context.Context, input AppendInput) error
}

// Service exposes the audit trail: append, query, aggregate, reset.
type Service interface {
	Recorder
	List(ctx context.Context, filter ListFilter) ([]models.TraceEntry, error)
	Grouped(ctx context.Context, limit int) ([]Workflow, error)
	Statistics(ctx context.Context) (*Statistics, error)
	Clear(ctx context.Context) error
}

// AppendInput captures one agent decision for the audit trail.
type AppendInput struct {
	TraceID        string
	AgentName      string
	Action         string
	Input          types.JSONMap
	Output         types.JSONMap
	DecisionReason string
	Status         enums.TraceStatus
}

// Workflow groups every entry that shares a trace id.
type Workflow struct {
	TraceID   string              `json:"trace_id"`
	StartTime time.Time           `json:"start_time"`
	Actions   []models.TraceEntry `json:"actions"`
}

// Statistics aggregates audit activity for the dashboard.
type Statistics struct {
	TotalTraces    int64                `json:"total_traces"`
	ByAgent        map[string]int64     `json:"by_agent"`
	ByStatus       map[string]int64     `json:"by_status"`
	RecentActivity []models.TraceEntry  `json:"recent_activity"`
}

type service struct {
	repo    Repository
	metrics *metrics.Metrics
}

// NewService wires the trace service. Metrics are optional.
func NewService(repo Repository, m *metrics.Metrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("trace repository required")
	}
	return &service{repo: repo, metrics: m}, nil
}

func (s *service) Append(ctx context.Context, input AppendInput) error {
	if strings.TrimSpace(input.TraceID) == "" {
		return apperrors.New(apperrors.CodeValidation, "trace id is required")
	}
	if strings.TrimSpace(input.AgentName) == "" {
		return apperrors.New(apperrors.CodeValidation, "agent name is required")
	}
	if strings.TrimSpace(input.Action) == "" {
		return apperrors.New(apperrors.CodeValidation, "action is required")
	}
	status := input.Status
	if status == "" {
		status = enums.TraceStatusSuccess
	}
	if !status.IsValid() {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid trace status %q", input.Status))
	}

	entry := &models.TraceEntry{
		TraceID:        input.TraceID,
		Timestamp:      time.Now().UTC(),
		AgentName:      input.AgentName,
		Action:         input.Action,
		Input:          input.Input,
		Output:         input.Output,
		DecisionReason: input.DecisionReason,
		Status:         status,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "appending trace entry")
	}
	if s.metrics != nil {
		s.metrics.ObserveTraceAppend()
	}
	return nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.TraceEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing trace entries")
	}
	return entries, nil
}

// Grouped assembles complete workflows, newest workflow first. Actions inside
// a workflow run in chronological order.
func (s *service) Grouped(ctx context.Context, limit int) ([]Workflow, error) {
	if limit <= 0 {
		limit = 20
	}
	// Overscan so truncation at the entry level rarely splits a workflow.
	entries, err := s.repo.List(ctx, ListFilter{Limit: limit * 10})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing trace entries")
	}

	byID := map[string]*Workflow{}
	order := []string{}
	for _, entry := range entries {
		wf, ok := byID[entry.TraceID]
		if !ok {
			wf = &Workflow{TraceID: entry.TraceID, StartTime: entry.Timestamp}
			byID[entry.TraceID] = wf
			order = append(order, entry.TraceID)
		}
		if entry.Timestamp.Before(wf.StartTime) {
			wf.StartTime = entry.Timestamp
		}
		wf.Actions = append(wf.Actions, entry)
	}

	workflows := make([]Workflow, 0, len(order))
	for _, id := range order {
		wf := byID[id]
		sort.SliceStable(wf.Actions, func(i, j int) bool {
			if wf.Actions[i].Timestamp.Equal(wf.Actions[j].Timestamp) {
				return wf.Actions[i].ID < wf.Actions[j].ID
			}
			return wf.Actions[i].Timestamp.Before(wf.Actions[j].Timestamp)
		})
		workflows = append(workflows, *wf)
	}
	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].StartTime.After(workflows[j].StartTime)
	})
	if len(workflows) > limit {
		workflows = workflows[:limit]
	}
	return workflows, nil
}

func (s *service) Statistics(ctx context.Context) (*Statistics, error) {
	byAgent, err := s.repo.CountByAgent(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "aggregating by agent")
	}
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "aggregating by status")
	}
	recent, err := s.repo.List(ctx, ListFilter{Limit: recentActivity})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing recent activity")
	}

	stats := &Statistics{
		ByAgent:        byAgent,
		ByStatus:       byStatus,
		RecentActivity: recent,
	}
	for _, count := range byAgent {
		stats.TotalTraces += count
	}
	// Dashboards key off the three terminal statuses even when empty.
	for _, status := range []enums.TraceStatus{enums.TraceStatusSuccess, enums.TraceStatusFailed, enums.TraceStatusError} {
		if _, ok := stats.ByStatus[string(status)]; !ok {
			if stats.ByStatus == nil {
				stats.ByStatus = map[string]int64{}
			}
			stats.ByStatus[string(status)] = 0
		}
	}
	return stats, nil
}

func (s *service) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "clearing trace entries")
	}
	return nil
}

// NewTraceID mints the identifier that groups one pipeline run.
func NewTraceID() string {
	return uuid.NewString()
}
