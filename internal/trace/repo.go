package trace

import (
	"context"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ListFilter narrows a trace listing. Zero values mean no filtering.
type ListFilter struct {
	Limit     int
	TraceID   string
	AgentName string
}

// Repository manages persistence for the append-only audit trail. There is no
// update operation on purpose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.TraceEntry) error
	List(ctx context.Context, filter ListFilter) ([]models.TraceEntry, error)
	CountByAgent(ctx context.Context) (map[string]int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	DeleteAll(ctx context.Context) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a trace repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.TraceEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns entries newest first. Insertion id breaks ties so entries
// written in the same clock tick keep a stable order.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.TraceEntry, error) {
	query := r.db.WithContext(ctx).Order("timestamp DESC, id DESC")
	if filter.TraceID != "" {
		query = query.Where("trace_id = ?", filter.TraceID)
	}
	if filter.AgentName != "" {
		query = query.Where("agent_name = ?", filter.AgentName)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.TraceEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

type groupCount struct {
	Key   string
	Count int64
}

func (r *repository) CountByAgent(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, "agent_name")
}

func (r *repository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, "status")
}

func (r *repository) countBy(ctx context.Context, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := r.db.WithContext(ctx).
		Model(&models.TraceEntry{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}

func (r *repository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.TraceEntry{}).Error
}
