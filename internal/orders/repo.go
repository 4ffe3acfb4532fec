package orders

import (
	"context"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for fulfilled orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	ListAll(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListUserMedicine(ctx context.Context, userID, medicineName string) ([]models.Order, error)
	LatestPerUserMedicine(ctx context.Context, userID string) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) ListAll(ctx context.Context) ([]models.Order, error) {
	var list []models.Order
	if err := r.db.WithContext(ctx).
		Order("purchase_date DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var list []models.Order
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListUserMedicine(ctx context.Context, userID, medicineName string) ([]models.Order, error) {
	var list []models.Order
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND lower(medicine_name) = lower(?)", userID, medicineName).
		Order("purchase_date DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// LatestPerUserMedicine returns the most recent order for each medicine the
// user has bought. Refill forecasting only cares about the latest purchase.
func (r *repository) LatestPerUserMedicine(ctx context.Context, userID string) ([]models.Order, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	latest := []models.Order{}
	for _, order := range all {
		key := normalizeName(order.MedicineName)
		if seen[key] {
			continue
		}
		seen[key] = true
		latest = append(latest, order)
	}
	return latest, nil
}
