// Package extraction turns free-form customer messages into structured order
// intent. A local model is tried first; deterministic rules back it up so the
// pipeline keeps working when the model runtime is down.
package extraction

import (
	"context"
	"fmt"

	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

// Confidence tiers. Every extraction path reports exactly one of these.
const (
	ConfidenceModel     = 0.9
	ConfidenceExact     = 0.8
	ConfidenceRefill    = 0.7
	ConfidenceFuzzy     = 0.6
	ConfidenceBestGuess = 0.3
	ConfidenceNone      = 0.0
)

// Intent is the structured order extracted from one message.
type Intent struct {
	MedicineName string                 `json:"medicine_name"`
	Quantity     int                    `json:"quantity"`
	DosagePerDay int                    `json:"dosage_per_day"`
	Method       enums.ExtractionMethod `json:"extraction_method"`
	Confidence   float64                `json:"confidence"`
	RawMessage   string                 `json:"raw_message"`
}

// DecisionReason explains how the intent was produced, for the audit trail.
func (i *Intent) DecisionReason() string {
	switch i.Method {
	case enums.ExtractionMethodModel:
		return fmt.Sprintf("extracted using local model with %.0f%% confidence", i.Confidence*100)
	case enums.ExtractionMethodRule:
		return fmt.Sprintf("extracted using rule patterns with %.0f%% confidence", i.Confidence*100)
	default:
		return "extraction method unknown"
	}
}

// Extractor produces intent from a raw message. userID may be empty; it only
// feeds refill resolution and model context.
type Extractor interface {
	Extract(ctx context.Context, message, userID string) (*Intent, error)
}

type hybridExtractor struct {
	model  Extractor
	rules  Extractor
	logger *logger.Logger
}

// NewExtractor chains the model extractor with the rule fallback. The model
// extractor may be nil for deployments without a model runtime.
func NewExtractor(modelExt, ruleExt Extractor, logg *logger.Logger) (Extractor, error) {
	if ruleExt == nil {
		return nil, fmt.Errorf("rule extractor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &hybridExtractor{model: modelExt, rules: ruleExt, logger: logg}, nil
}

func (h *hybridExtractor) Extract(ctx context.Context, message, userID string) (*Intent, error) {
	if h.model != nil {
		intent, err := h.model.Extract(ctx, message, userID)
		if err == nil && intent != nil && intent.MedicineName != "" {
			return intent, nil
		}
		if err != nil {
			h.logger.Warn(ctx, fmt.Sprintf("model extraction failed, falling back to rules: %v", err))
		}
	}
	return h.rules.Extract(ctx, message, userID)
}
