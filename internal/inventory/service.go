package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/db"
	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/SohamFirke/pharma-backend/pkg/metrics"
	"github.com/SohamFirke/pharma-backend/pkg/types"
	"gorm.io/gorm"
)

// AvailabilityResult is the outcome of a stock check.
type AvailabilityResult struct {
	Available bool
	Message   string
	Metadata  types.JSONMap
	Medicine  *models.Medicine
}

// DeductionResult is the outcome of a stock deduction.
type DeductionResult struct {
	Deducted             bool
	Message              string
	Metadata             types.JSONMap
	InitialStock         int
	NewStock             int
	Threshold            int
	ProcurementTriggered bool
}

// Service is the inventory ledger: availability checks, atomic deductions,
// low-stock reporting, and procurement signalling.
type Service interface {
	CheckAvailability(ctx context.Context, medicineName string, quantity int) (*AvailabilityResult, error)
	Deduct(ctx context.Context, medicineName string, quantity int) (*DeductionResult, error)
	Restore(ctx context.Context, medicineName string, quantity int) error
}

type service struct {
	client    *db.Client
	repo      Repository
	publisher ProcurementPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	cfg       config.InventoryConfig
}

// NewService wires the inventory ledger. Publisher and metrics are optional;
// without a publisher, procurement signals are logged and dropped.
func NewService(
	client *db.Client,
	repo Repository,
	publisher ProcurementPublisher,
	m *metrics.Metrics,
	logg *logger.Logger,
	cfg config.InventoryConfig,
) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.ProcurementTarget <= 0 || cfg.ProcurementFloor <= 0 || cfg.DefaultLowThreshold <= 0 {
		return nil, fmt.Errorf("invalid inventory thresholds: %+v", cfg)
	}
	return &service{
		client:    client,
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logg,
		cfg:       cfg,
	}, nil
}

func (s *service) CheckAvailability(ctx context.Context, medicineName string, quantity int) (*AvailabilityResult, error) {
	if strings.TrimSpace(medicineName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "medicine name is required")
	}
	if quantity <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity must be positive")
	}

	medicine, err := s.repo.GetByName(ctx, medicineName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AvailabilityResult{
				Available: false,
				Message:   fmt.Sprintf("medicine %q not found", medicineName),
				Metadata:  types.JSONMap{"error": "medicine_not_found"},
			}, nil
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading medicine stock")
	}

	metadata := types.JSONMap{
		"medicine_name":      medicine.Name,
		"current_stock":      medicine.StockLevel,
		"requested_quantity": quantity,
		"unit_type":          medicine.UnitType,
	}

	if medicine.StockLevel < quantity {
		metadata["shortage"] = quantity - medicine.StockLevel
		return &AvailabilityResult{
			Available: false,
			Message: fmt.Sprintf(
				"insufficient stock: only %d %s available, %d requested",
				medicine.StockLevel, medicine.UnitType, quantity,
			),
			Metadata: metadata,
			Medicine: medicine,
		}, nil
	}

	return &AvailabilityResult{
		Available: true,
		Message:   fmt.Sprintf("stock available: %d %s in inventory", medicine.StockLevel, medicine.UnitType),
		Metadata:  metadata,
		Medicine:  medicine,
	}, nil
}

// Deduct subtracts stock inside a transaction. The availability snapshot a
// caller saw earlier may be stale, so the deduction re-validates against live
// stock and fails closed when the guard does not hold.
func (s *service) Deduct(ctx context.Context, medicineName string, quantity int) (*DeductionResult, error) {
	if strings.TrimSpace(medicineName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "medicine name is required")
	}
	if quantity <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity must be positive")
	}

	var result *DeductionResult
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		medicine, err := repo.GetByName(ctx, medicineName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = &DeductionResult{
					Deducted: false,
					Message:  fmt.Sprintf("medicine %q not found", medicineName),
					Metadata: types.JSONMap{"error": "medicine_not_found"},
				}
				return nil
			}
			return err
		}

		affected, err := repo.DeductStock(ctx, medicineName, quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			result = &DeductionResult{
				Deducted:     false,
				InitialStock: medicine.StockLevel,
				Message: fmt.Sprintf(
					"insufficient stock at deduction time: %d available, %d requested",
					medicine.StockLevel, quantity,
				),
				Metadata: types.JSONMap{
					"error":              "insufficient_stock",
					"medicine_name":      medicine.Name,
					"current_stock":      medicine.StockLevel,
					"requested_quantity": quantity,
				},
			}
			return nil
		}

		updated, err := repo.GetByName(ctx, medicineName)
		if err != nil {
			return err
		}

		result = &DeductionResult{
			Deducted:     true,
			InitialStock: medicine.StockLevel,
			NewStock:     updated.StockLevel,
			Threshold:    s.threshold(medicine),
			Message: fmt.Sprintf(
				"stock deducted: %s %d -> %d %s",
				medicine.Name, medicine.StockLevel, updated.StockLevel, medicine.UnitType,
			),
			Metadata: types.JSONMap{
				"medicine_name": medicine.Name,
				"initial_stock": medicine.StockLevel,
				"deducted":      quantity,
				"new_stock":     updated.StockLevel,
				"threshold":     s.threshold(medicine),
			},
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "deducting stock")
	}

	if result.Deducted && result.NewStock < result.Threshold {
		s.triggerProcurement(ctx, medicineName, result)
	}
	return result, nil
}

// Restore adds stock back, compensating a deduction whose order could not be
// persisted.
func (s *service) Restore(ctx context.Context, medicineName string, quantity int) error {
	if strings.TrimSpace(medicineName) == "" || quantity <= 0 {
		return apperrors.New(apperrors.CodeValidation, "medicine name and positive quantity required")
	}
	affected, err := s.repo.RestoreStock(ctx, medicineName, quantity)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "restoring stock")
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("medicine %q not found", medicineName))
	}
	return nil
}

func (s *service) threshold(medicine *models.Medicine) int {
	if medicine != nil && medicine.StockThreshold > 0 {
		return medicine.StockThreshold
	}
	return s.cfg.DefaultLowThreshold
}

// triggerProcurement publishes a restock request. Failures are logged, never
// propagated: the customer order already succeeded.
func (s *service) triggerProcurement(ctx context.Context, medicineName string, result *DeductionResult) {
	signal := ProcurementSignal{
		MedicineName:      medicineName,
		CurrentStock:      result.NewStock,
		RequestedQuantity: s.procurementQuantity(result.NewStock),
		Priority:          enums.ProcurementPriorityNormal,
		Requester:         "inventory_ledger",
	}
	if result.NewStock < s.cfg.HighPriorityBelow {
		signal.Priority = enums.ProcurementPriorityHigh
	}

	result.Metadata["procurement_quantity"] = signal.RequestedQuantity
	result.Metadata["procurement_priority"] = string(signal.Priority)

	if s.publisher == nil {
		s.logger.Warn(ctx, fmt.Sprintf(
			"procurement signal dropped (no publisher): %s needs %d units",
			medicineName, signal.RequestedQuantity,
		))
		result.Metadata["warehouse_triggered"] = false
		return
	}

	if err := s.publisher.PublishProcurement(ctx, signal); err != nil {
		s.logger.Error(ctx, fmt.Sprintf("publishing procurement signal for %s", medicineName), err)
		result.Metadata["warehouse_triggered"] = false
		return
	}

	result.ProcurementTriggered = true
	result.Metadata["warehouse_triggered"] = true
	if s.metrics != nil {
		s.metrics.ObserveProcurementSignal()
	}
}

// procurementQuantity orders enough to reach the target, never less than the
// floor.
func (s *service) procurementQuantity(currentStock int) int {
	quantity := s.cfg.ProcurementTarget - currentStock
	if quantity < s.cfg.ProcurementFloor {
		return s.cfg.ProcurementFloor
	}
	return quantity
}
