package extraction

import (
	"context"
	"fmt"

	"github.com/SohamFirke/pharma-backend/internal/orders"
)

// OrdersHistory adapts the orders repository into the history surfaces the
// extractors need.
type OrdersHistory struct {
	repo orders.Repository
}

// NewOrdersHistory wires purchase history lookups for extraction.
func NewOrdersHistory(repo orders.Repository) (*OrdersHistory, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &OrdersHistory{repo: repo}, nil
}

// LatestMedicine returns the most recently purchased medicine, or empty when
// the user has no history.
func (h *OrdersHistory) LatestMedicine(ctx context.Context, userID string) (string, error) {
	list, err := h.repo.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", nil
	}
	return list[0].MedicineName, nil
}

// RecentMedicines returns up to limit distinct recently purchased medicines.
func (h *OrdersHistory) RecentMedicines(ctx context.Context, userID string, limit int) ([]string, error) {
	latest, err := h.repo.LatestPerUserMedicine(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, order := range latest {
		names = append(names, order.MedicineName)
		if limit > 0 && len(names) >= limit {
			break
		}
	}
	return names, nil
}
