package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/model"
)

const extractionSystemPrompt = `You are a pharmacy assistant. Extract medicine order details from the user's message.

Extract the following information as JSON:
- medicine_name: the name of the medicine as mentioned
- quantity: number of units requested (default 1 if not specified)
- dosage_per_day: how many units per day (default 1 if not specified)

If the message says "30 days worth" with a dosage of 2 per day, the quantity is 60.

Respond ONLY with valid JSON, no additional text:
{"medicine_name": "...", "quantity": ..., "dosage_per_day": ...}`

// RecentMedicines supplies model context from the user's purchase history.
type RecentMedicines interface {
	RecentMedicines(ctx context.Context, userID string, limit int) ([]string, error)
}

type modelExtractor struct {
	client  model.Client
	history RecentMedicines
}

// NewModelExtractor builds the model-backed extractor. History is optional.
func NewModelExtractor(client model.Client, history RecentMedicines) (Extractor, error) {
	if client == nil {
		return nil, fmt.Errorf("model client required")
	}
	return &modelExtractor{client: client, history: history}, nil
}

func (m *modelExtractor) Extract(ctx context.Context, message, userID string) (*Intent, error) {
	prompt := fmt.Sprintf("User message: %q", message)
	if m.history != nil && userID != "" {
		if recent, err := m.history.RecentMedicines(ctx, userID, 3); err == nil && len(recent) > 0 {
			prompt += fmt.Sprintf("\nUser's recent medicines: %s", strings.Join(recent, ", "))
		}
	}

	reply, err := m.client.Chat(ctx, extractionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	fields, err := model.ExtractFirstJSON(reply)
	if err != nil {
		return nil, fmt.Errorf("parsing model reply: %w", err)
	}

	name, _ := fields["medicine_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("model reply missing medicine_name")
	}

	return &Intent{
		MedicineName: name,
		Quantity:     intField(fields, "quantity", 1),
		DosagePerDay: intField(fields, "dosage_per_day", 1),
		Method:       enums.ExtractionMethodModel,
		Confidence:   ConfidenceModel,
		RawMessage:   message,
	}, nil
}

// intField coerces a decoded JSON number, tolerating string digits.
func intField(fields map[string]any, key string, fallback int) int {
	switch v := fields[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
