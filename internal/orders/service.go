package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service records fulfilled orders and serves purchase history.
type Service interface {
	Record(ctx context.Context, input RecordOrderInput) (*models.Order, error)
	History(ctx context.Context, userID string) ([]models.Order, error)
	MedicineHistory(ctx context.Context, userID, medicineName string) ([]models.Order, error)
}

type service struct {
	repo Repository
}

// RecordOrderInput captures the immutable data a fulfilled order requires.
type RecordOrderInput struct {
	UserID       string
	MedicineName string
	Quantity     int
	DosagePerDay int
	PurchaseDate time.Time
}

// NewService wires an orders service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordOrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.MedicineName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "medicine name is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity must be positive")
	}
	if input.DosagePerDay <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "dosage per day must be positive")
	}

	purchaseDate := input.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = time.Now().UTC()
	}

	order := &models.Order{
		OrderID:      NewOrderID(purchaseDate),
		UserID:       input.UserID,
		MedicineName: normalizeName(input.MedicineName),
		Quantity:     input.Quantity,
		DosagePerDay: input.DosagePerDay,
		PurchaseDate: purchaseDate,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "persisting order")
	}
	return order, nil
}

func (s *service) History(ctx context.Context, userID string) ([]models.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading order history")
	}
	return list, nil
}

func (s *service) MedicineHistory(ctx context.Context, userID, medicineName string) ([]models.Order, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(medicineName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "user id and medicine name are required")
	}
	list, err := s.repo.ListUserMedicine(ctx, userID, medicineName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading medicine history")
	}
	return list, nil
}

// NewOrderID builds an order identifier with a sortable timestamp prefix and
// a short random suffix, e.g. ORD-20250901120000-1a2b3c4d.
func NewOrderID(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102150405"), suffix)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
