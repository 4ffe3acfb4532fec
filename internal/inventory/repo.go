package inventory

import (
	"context"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages stock levels in the ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByName(ctx context.Context, name string) (*models.Medicine, error)
	// DeductStock atomically subtracts quantity where enough stock exists.
	// Returns the number of rows updated: 0 means the guard failed and no
	// stock was touched.
	DeductStock(ctx context.Context, name string, quantity int) (int64, error)
	RestoreStock(ctx context.Context, name string, quantity int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByName(ctx context.Context, name string) (*models.Medicine, error) {
	var medicine models.Medicine
	if err := r.db.WithContext(ctx).
		Where("lower(medicine_name) = lower(?)", name).
		First(&medicine).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

// The stock guard lives in the WHERE clause so two concurrent deductions can
// never drive stock negative. Losing writers match zero rows.
func (r *repository) DeductStock(ctx context.Context, name string, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Medicine{}).
		Where("lower(medicine_name) = lower(?) AND stock_level >= ?", name, quantity).
		UpdateColumn("stock_level", gorm.Expr("stock_level - ?", quantity))
	return res.RowsAffected, res.Error
}

func (r *repository) RestoreStock(ctx context.Context, name string, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Medicine{}).
		Where("lower(medicine_name) = lower(?)", name).
		UpdateColumn("stock_level", gorm.Expr("stock_level + ?", quantity))
	return res.RowsAffected, res.Error
}
