// Package predictive forecasts when users run out of medicine from their
// purchase history. Its output is advisory only and never blocks an order.
package predictive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// OrderSource is the slice of order history the forecaster reads.
type OrderSource interface {
	ListAll(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListUserMedicine(ctx context.Context, userID, medicineName string) ([]models.Order, error)
}

// Alert is one proactive refill recommendation.
type Alert struct {
	UserID              string              `json:"user_id"`
	MedicineName        string              `json:"medicine_name"`
	DaysRemaining       decimal.Decimal     `json:"days_remaining"`
	LastPurchaseDate    time.Time           `json:"last_purchase_date"`
	LastQuantity        int                 `json:"last_quantity"`
	DosagePerDay        int                 `json:"dosage_per_day"`
	PredictedRunoutDate time.Time           `json:"predicted_runout_date"`
	Priority            enums.AlertPriority `json:"alert_priority"`
	RecommendedAction   string              `json:"recommended_action"`
}

// Status reports the refill outlook for one user/medicine pair.
type Status struct {
	UserID        string          `json:"user_id"`
	MedicineName  string          `json:"medicine_name"`
	DaysRemaining decimal.Decimal `json:"days_remaining"`
	RunoutDate    time.Time       `json:"runout_date"`
	NeedsRefill   bool            `json:"needs_refill"`
}

// Service forecasts refill needs.
type Service interface {
	RefillAlerts(ctx context.Context, userID string) ([]Alert, error)
	CheckUserMedicine(ctx context.Context, userID, medicineName string) (*Status, error)
}

type service struct {
	source OrderSource
	cfg    config.PredictiveConfig
	// now is swappable for tests.
	now func() time.Time
}

// NewService wires the forecaster.
func NewService(source OrderSource, cfg config.PredictiveConfig) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("order source required")
	}
	if cfg.AlertThresholdDays <= 0 {
		return nil, fmt.Errorf("alert threshold must be positive")
	}
	return &service{source: source, cfg: cfg, now: time.Now}, nil
}

// RefillAlerts scans order history and returns everyone at or under the alert
// threshold, most urgent first. Empty userID scans all users.
func (s *service) RefillAlerts(ctx context.Context, userID string) ([]Alert, error) {
	var (
		history []models.Order
		err     error
	)
	if userID == "" {
		history, err = s.source.ListAll(ctx)
	} else {
		history, err = s.source.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading order history")
	}

	latest := latestPerUserMedicine(history)
	threshold := decimal.NewFromInt(int64(s.cfg.AlertThresholdDays))
	today := s.now()

	alerts := []Alert{}
	for _, order := range latest {
		forecast := forecastSupply(order, today)
		if forecast.daysRemaining.GreaterThan(threshold) {
			continue
		}
		alerts = append(alerts, Alert{
			UserID:              order.UserID,
			MedicineName:        order.MedicineName,
			DaysRemaining:       forecast.daysRemaining,
			LastPurchaseDate:    order.PurchaseDate,
			LastQuantity:        order.Quantity,
			DosagePerDay:        order.DosagePerDay,
			PredictedRunoutDate: forecast.runoutDate,
			Priority:            PriorityFor(forecast.daysRemaining),
			RecommendedAction:   recommendedAction(forecast.daysRemaining),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysRemaining.LessThan(alerts[j].DaysRemaining)
	})
	return alerts, nil
}

// CheckUserMedicine returns nil when the user has no history for the
// medicine.
func (s *service) CheckUserMedicine(ctx context.Context, userID, medicineName string) (*Status, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(medicineName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "user id and medicine name are required")
	}

	history, err := s.source.ListUserMedicine(ctx, userID, medicineName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading medicine history")
	}
	if len(history) == 0 {
		return nil, nil
	}

	mostRecent := history[0]
	for _, order := range history[1:] {
		if order.PurchaseDate.After(mostRecent.PurchaseDate) {
			mostRecent = order
		}
	}

	forecast := forecastSupply(mostRecent, s.now())
	threshold := decimal.NewFromInt(int64(s.cfg.AlertThresholdDays))
	return &Status{
		UserID:        userID,
		MedicineName:  mostRecent.MedicineName,
		DaysRemaining: forecast.daysRemaining,
		RunoutDate:    forecast.runoutDate,
		NeedsRefill:   !forecast.daysRemaining.GreaterThan(threshold),
	}, nil
}

type supplyForecast struct {
	daysRemaining decimal.Decimal
	runoutDate    time.Time
}

// forecastSupply computes days_remaining = quantity/dosage - days_elapsed.
// Decimal division keeps fractional supplies exact, e.g. 25 tablets at 2/day
// is 12.5 days, not 12 or 13.
func forecastSupply(order models.Order, today time.Time) supplyForecast {
	supply := decimal.NewFromInt(int64(order.Quantity)).
		Div(decimal.NewFromInt(int64(order.DosagePerDay)))

	elapsed := decimal.NewFromInt(int64(today.Sub(order.PurchaseDate).Hours() / 24))
	remaining := supply.Sub(elapsed).Round(1)

	supplyHours := supply.Mul(decimal.NewFromInt(24))
	runout := order.PurchaseDate.Add(time.Duration(supplyHours.IntPart()) * time.Hour)

	return supplyForecast{daysRemaining: remaining, runoutDate: runout}
}

// PriorityFor maps days remaining onto the alert priority scale.
func PriorityFor(daysRemaining decimal.Decimal) enums.AlertPriority {
	switch {
	case !daysRemaining.GreaterThan(decimal.Zero):
		return enums.AlertPriorityCritical
	case !daysRemaining.GreaterThan(decimal.NewFromInt(1)):
		return enums.AlertPriorityHigh
	case !daysRemaining.GreaterThan(decimal.NewFromInt(3)):
		return enums.AlertPriorityMedium
	default:
		return enums.AlertPriorityLow
	}
}

func recommendedAction(daysRemaining decimal.Decimal) string {
	switch PriorityFor(daysRemaining) {
	case enums.AlertPriorityCritical:
		return "urgent: medicine supply depleted, order immediately"
	case enums.AlertPriorityHigh:
		return "order refill today to avoid running out"
	case enums.AlertPriorityMedium:
		return "consider ordering a refill soon"
	default:
		return "monitor supply"
	}
}

// latestPerUserMedicine keeps the most recent order per (user, medicine).
func latestPerUserMedicine(history []models.Order) []models.Order {
	type key struct{ user, medicine string }
	latest := map[key]models.Order{}
	order := []key{}
	for _, o := range history {
		k := key{o.UserID, strings.ToLower(o.MedicineName)}
		existing, ok := latest[k]
		if !ok {
			latest[k] = o
			order = append(order, k)
			continue
		}
		if o.PurchaseDate.After(existing.PurchaseDate) {
			latest[k] = o
		}
	}
	out := make([]models.Order, 0, len(order))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out
}
