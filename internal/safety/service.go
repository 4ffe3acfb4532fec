// Package safety validates orders with deterministic rules only. Safety
// decisions never come from a model.
package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SohamFirke/pharma-backend/internal/catalog"
	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/SohamFirke/pharma-backend/pkg/types"
)

// Decision is the outcome of validating one order request.
type Decision struct {
	Approved bool
	Reason   string
	// Warning is set when the order is allowed but flagged, e.g. a high but
	// permitted dosage.
	Warning  string
	Metadata types.JSONMap
	Medicine *models.Medicine
}

// Service validates orders against prescription and dosage rules.
type Service interface {
	ValidateOrder(ctx context.Context, medicineName string, dosagePerDay int) (*Decision, error)
	CheckDosage(dosagePerDay int) (bool, string)
}

type service struct {
	catalog catalog.Service
	cfg     config.SafetyConfig

	// prescriptionOverride approves prescription medicines anyway. Callers
	// must only enable it in dev environments.
	prescriptionOverride bool
}

// NewService wires the safety validator.
func NewService(catalogSvc catalog.Service, cfg config.SafetyConfig, prescriptionOverride bool) (Service, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if cfg.MaxDosagePerDay <= 0 || cfg.WarnDosagePerDay <= 0 || cfg.WarnDosagePerDay >= cfg.MaxDosagePerDay {
		return nil, fmt.Errorf("invalid dosage limits: warn %d, max %d", cfg.WarnDosagePerDay, cfg.MaxDosagePerDay)
	}
	return &service{
		catalog:              catalogSvc,
		cfg:                  cfg,
		prescriptionOverride: prescriptionOverride,
	}, nil
}

// ValidateOrder resolves the medicine and applies every rule. A rule failure
// is a rejection Decision, not an error; errors mean the check itself could
// not run.
func (s *service) ValidateOrder(ctx context.Context, medicineName string, dosagePerDay int) (*Decision, error) {
	if strings.TrimSpace(medicineName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "medicine name is required")
	}

	medicine, err := s.catalog.Get(ctx, medicineName)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Code() == apperrors.CodeNotFound {
			return &Decision{
				Approved: false,
				Reason:   fmt.Sprintf("medicine %q not found in catalog", medicineName),
				Metadata: types.JSONMap{
					"error":         "medicine_not_found",
					"searched_name": medicineName,
				},
			}, nil
		}
		return nil, err
	}

	metadata := types.JSONMap{
		"medicine_name":         medicine.Name,
		"prescription_required": medicine.PrescriptionRequired,
		"unit_type":             medicine.UnitType,
	}

	if medicine.PrescriptionRequired && !s.prescriptionOverride {
		metadata["rejection_reason"] = "prescription_required"
		return &Decision{
			Approved: false,
			Reason: fmt.Sprintf(
				"%s is a prescription medicine; a valid prescription is required",
				medicine.Name,
			),
			Metadata: metadata,
			Medicine: medicine,
		}, nil
	}

	safe, warning := s.CheckDosage(dosagePerDay)
	if !safe {
		metadata["rejection_reason"] = "unsafe_dosage"
		metadata["dosage_per_day"] = dosagePerDay
		return &Decision{
			Approved: false,
			Reason:   warning,
			Metadata: metadata,
			Medicine: medicine,
		}, nil
	}

	metadata["approval_reason"] = "deterministic_rules_passed"
	return &Decision{
		Approved: true,
		Reason:   fmt.Sprintf("order approved: %s passed prescription and dosage rules", medicine.Name),
		Warning:  warning,
		Metadata: metadata,
		Medicine: medicine,
	}, nil
}

// CheckDosage applies the daily dosage limits. The second return is a
// rejection reason when unsafe, or a non-fatal warning when allowed but high.
func (s *service) CheckDosage(dosagePerDay int) (bool, string) {
	switch {
	case dosagePerDay <= 0:
		return false, "dosage must be at least 1 unit per day"
	case dosagePerDay > s.cfg.MaxDosagePerDay:
		return false, fmt.Sprintf(
			"dosage of %d units/day exceeds the safe limit of %d; consult a doctor",
			dosagePerDay, s.cfg.MaxDosagePerDay,
		)
	case dosagePerDay > s.cfg.WarnDosagePerDay:
		return true, fmt.Sprintf(
			"high dosage (%d units/day); ensure this matches your prescription",
			dosagePerDay,
		)
	default:
		return true, ""
	}
}
