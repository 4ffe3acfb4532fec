package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/pubsub"
)

// ProcurementSignal asks the warehouse to restock a medicine.
type ProcurementSignal struct {
	MedicineName      string                    `json:"medicine_name"`
	CurrentStock      int                       `json:"current_stock"`
	RequestedQuantity int                       `json:"requested_quantity"`
	Priority          enums.ProcurementPriority `json:"priority"`
	Requester         string                    `json:"requester"`
}

// ProcurementPublisher delivers procurement signals to the warehouse.
type ProcurementPublisher interface {
	PublishProcurement(ctx context.Context, signal ProcurementSignal) error
}

type pubsubPublisher struct {
	publisher *gcppubsub.Publisher
}

// NewProcurementPublisher wraps the Pub/Sub procurement topic.
func NewProcurementPublisher(client *pubsub.Client) (ProcurementPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client required")
	}
	publisher := client.ProcurementPublisher()
	if publisher == nil {
		return nil, fmt.Errorf("procurement topic not configured")
	}
	return &pubsubPublisher{publisher: publisher}, nil
}

func (p *pubsubPublisher) PublishProcurement(ctx context.Context, signal ProcurementSignal) error {
	data, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("encoding procurement signal: %w", err)
	}
	result := p.publisher.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"medicine_name": signal.MedicineName,
			"priority":      string(signal.Priority),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing procurement signal: %w", err)
	}
	return nil
}
