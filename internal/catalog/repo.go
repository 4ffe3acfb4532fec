package catalog

import (
	"context"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for the medicine catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByName(ctx context.Context, name string) (*models.Medicine, error)
	List(ctx context.Context) ([]models.Medicine, error)
	ListNames(ctx context.Context) ([]string, error)
	Create(ctx context.Context, medicine *models.Medicine) error
	Update(ctx context.Context, medicine *models.Medicine) error
	BelowOwnThreshold(ctx context.Context) ([]models.Medicine, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetByName matches case-insensitively so "Aspirin" and "aspirin" resolve to
// the same catalog row.
func (r *repository) GetByName(ctx context.Context, name string) (*models.Medicine, error) {
	var medicine models.Medicine
	if err := r.db.WithContext(ctx).
		Where("lower(medicine_name) = lower(?)", name).
		First(&medicine).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *repository) List(ctx context.Context) ([]models.Medicine, error) {
	var medicines []models.Medicine
	if err := r.db.WithContext(ctx).
		Order("medicine_name ASC").
		Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}

func (r *repository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&models.Medicine{}).
		Order("medicine_name ASC").
		Pluck("medicine_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *repository) Create(ctx context.Context, medicine *models.Medicine) error {
	return r.db.WithContext(ctx).Create(medicine).Error
}

func (r *repository) Update(ctx context.Context, medicine *models.Medicine) error {
	return r.db.WithContext(ctx).Save(medicine).Error
}

// BelowOwnThreshold returns medicines whose stock has fallen under their
// per-row threshold.
func (r *repository) BelowOwnThreshold(ctx context.Context) ([]models.Medicine, error) {
	var medicines []models.Medicine
	if err := r.db.WithContext(ctx).
		Where("stock_level < stock_threshold").
		Order("stock_level ASC").
		Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}
