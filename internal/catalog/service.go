package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SohamFirke/pharma-backend/pkg/db"
	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service exposes the medicine catalog. Reads serve the pipeline; Create and
// Update are operator maintenance operations.
type Service interface {
	Get(ctx context.Context, name string) (*models.Medicine, error)
	List(ctx context.Context) ([]models.Medicine, error)
	Names(ctx context.Context) ([]string, error)
	Create(ctx context.Context, medicine *models.Medicine) error
	Update(ctx context.Context, medicine *models.Medicine) error
	LowStock(ctx context.Context) ([]models.Medicine, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, name string) (*models.Medicine, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "medicine name is required")
	}
	medicine, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("medicine %q not found", name))
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading medicine")
	}
	return medicine, nil
}

func (s *service) List(ctx context.Context) ([]models.Medicine, error) {
	medicines, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing medicines")
	}
	return medicines, nil
}

func (s *service) Names(ctx context.Context) ([]string, error) {
	names, err := s.repo.ListNames(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing medicine names")
	}
	return names, nil
}

// Create inserts a new catalog row. The name is the business key; a duplicate
// surfaces as a conflict rather than an opaque driver error.
func (s *service) Create(ctx context.Context, medicine *models.Medicine) error {
	if err := validateMedicine(medicine); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, medicine); err != nil {
		if db.IsUniqueViolation(err, "") {
			return apperrors.New(apperrors.CodeConflict, fmt.Sprintf("medicine %q already exists", medicine.Name))
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "creating medicine")
	}
	return nil
}

// Update rewrites the whole catalog record. The stored name casing and created
// timestamp win over whatever the caller sent.
func (s *service) Update(ctx context.Context, medicine *models.Medicine) error {
	if err := validateMedicine(medicine); err != nil {
		return err
	}
	existing, err := s.Get(ctx, medicine.Name)
	if err != nil {
		return err
	}
	medicine.Name = existing.Name
	medicine.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, medicine); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "updating medicine")
	}
	return nil
}

// LowStock lists medicines whose stock sits under their own restock threshold.
func (s *service) LowStock(ctx context.Context) ([]models.Medicine, error) {
	medicines, err := s.repo.BelowOwnThreshold(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing low stock medicines")
	}
	return medicines, nil
}

func validateMedicine(medicine *models.Medicine) error {
	if medicine == nil || strings.TrimSpace(medicine.Name) == "" {
		return apperrors.New(apperrors.CodeValidation, "medicine name is required")
	}
	if medicine.StockLevel < 0 {
		return apperrors.New(apperrors.CodeValidation, "stock level must not be negative")
	}
	if medicine.StockThreshold < 0 {
		return apperrors.New(apperrors.CodeValidation, "stock threshold must not be negative")
	}
	return nil
}
