package enums

import "fmt"

// RoutingIntent is the dispatch category the intent router assigns to a
// message. Routing authority only; it never approves or rejects orders.
type RoutingIntent string

const (
	RoutingIntentCasualChat   RoutingIntent = "casual_chat"
	RoutingIntentSymptomQuery RoutingIntent = "symptom_query"
	RoutingIntentOrder        RoutingIntent = "order"
)

var validRoutingIntents = []RoutingIntent{
	RoutingIntentCasualChat,
	RoutingIntentSymptomQuery,
	RoutingIntentOrder,
}

// IsValid reports whether the value matches the canonical routing intent enum.
func (i RoutingIntent) IsValid() bool {
	for _, candidate := range validRoutingIntents {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseRoutingIntent converts raw input into RoutingIntent.
func ParseRoutingIntent(value string) (RoutingIntent, error) {
	for _, candidate := range validRoutingIntents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid routing intent %q", value)
}

// ExtractionMethod names the strategy that produced an order intent.
type ExtractionMethod string

const (
	ExtractionMethodModel ExtractionMethod = "model"
	ExtractionMethodRule  ExtractionMethod = "rule"
)
