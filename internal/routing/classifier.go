// Package routing classifies messages into dispatch categories. It has
// routing authority only: no medical, safety, or prescription decisions are
// made here.
package routing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/SohamFirke/pharma-backend/pkg/model"
)

const (
	methodEmbedding = "embedding"
	methodKeyword   = "keyword"

	// Keyword confidence is capped below the embedding path on purpose.
	keywordConfidenceCap     = 0.9
	keywordConfidenceScale   = 0.8
	defaultKeywordConfidence = 0.3
)

// Classification is the routing verdict for one message.
type Classification struct {
	Intent     enums.RoutingIntent `json:"intent"`
	Confidence float64             `json:"confidence"`
	Method     string              `json:"method"`
	Reasoning  string              `json:"reasoning"`
	Scores     map[string]float64  `json:"all_scores"`
}

// Classifier assigns a routing intent to a message.
type Classifier interface {
	Classify(ctx context.Context, message string) (*Classification, error)
}

var intentExamples = map[enums.RoutingIntent][]string{
	enums.RoutingIntentCasualChat: {
		"hi", "hello", "thank you", "thanks", "how are you",
		"what can you do", "help", "how does this work", "goodbye", "bye",
	},
	enums.RoutingIntentSymptomQuery: {
		"I have fever", "my head hurts", "I have headache", "cold and cough",
		"feeling sick", "my throat hurts", "I have pain", "stomach ache",
		"body ache", "runny nose",
	},
	enums.RoutingIntentOrder: {
		"order medicine", "I need paracetamol", "buy ibuprofen",
		"refill my tablets", "I want to order", "get me medicine",
		"purchase aspirin", "I need tablets", "order 20 tablets",
		"refill prescription",
	},
}

var keywordPatterns = map[enums.RoutingIntent][]string{
	enums.RoutingIntentCasualChat: {
		"hi", "hello", "hey", "thank", "help", "what", "how", "who",
		"goodbye", "bye", "thanks",
	},
	enums.RoutingIntentSymptomQuery: {
		"fever", "headache", "pain", "ache", "sick", "cold", "cough",
		"throat", "stomach", "hurt", "symptom", "feeling",
	},
	enums.RoutingIntentOrder: {
		"order", "need", "want", "buy", "purchase", "get", "refill",
		"tablet", "capsule", "medicine", "quantity",
	},
}

type classifier struct {
	model  model.Client
	logger *logger.Logger

	// exampleEmbeddings is computed lazily on first use so a slow model
	// runtime cannot stall startup.
	exampleEmbeddings map[enums.RoutingIntent][][]float64
}

// NewClassifier builds the router. The model client may be nil; keyword
// matching then handles everything.
func NewClassifier(modelClient model.Client, logg *logger.Logger) (Classifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &classifier{model: modelClient, logger: logg}, nil
}

func (c *classifier) Classify(ctx context.Context, message string) (*Classification, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, fmt.Errorf("message is required")
	}

	if c.model != nil {
		if result, err := c.classifyWithEmbeddings(ctx, trimmed); err == nil {
			return result, nil
		} else {
			c.logger.Warn(ctx, fmt.Sprintf("embedding classification failed, using keywords: %v", err))
		}
	}
	return c.classifyWithKeywords(strings.ToLower(trimmed)), nil
}

func (c *classifier) classifyWithEmbeddings(ctx context.Context, message string) (*Classification, error) {
	if err := c.ensureExampleEmbeddings(ctx); err != nil {
		return nil, err
	}

	messageVec, err := c.model.Embed(ctx, message)
	if err != nil {
		return nil, err
	}

	scores := map[string]float64{}
	var best enums.RoutingIntent
	bestScore := math.Inf(-1)
	for intent, vectors := range c.exampleEmbeddings {
		intentBest := math.Inf(-1)
		for _, vec := range vectors {
			if sim := cosineSimilarity(messageVec, vec); sim > intentBest {
				intentBest = sim
			}
		}
		scores[string(intent)] = intentBest
		if intentBest > bestScore {
			bestScore = intentBest
			best = intent
		}
	}

	return &Classification{
		Intent:     best,
		Confidence: bestScore,
		Method:     methodEmbedding,
		Reasoning:  fmt.Sprintf("embedding similarity %.2f to %s examples", bestScore, best),
		Scores:     scores,
	}, nil
}

func (c *classifier) ensureExampleEmbeddings(ctx context.Context) error {
	if c.exampleEmbeddings != nil {
		return nil
	}
	cache := map[enums.RoutingIntent][][]float64{}
	for intent, examples := range intentExamples {
		vectors := make([][]float64, 0, len(examples))
		for _, example := range examples {
			vec, err := c.model.Embed(ctx, example)
			if err != nil {
				return fmt.Errorf("embedding intent examples: %w", err)
			}
			vectors = append(vectors, vec)
		}
		cache[intent] = vectors
	}
	c.exampleEmbeddings = cache
	return nil
}

func (c *classifier) classifyWithKeywords(lower string) *Classification {
	counts := map[enums.RoutingIntent]int{}
	for intent, keywords := range keywordPatterns {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				counts[intent]++
			}
		}
	}

	best := enums.RoutingIntentCasualChat
	bestCount := 0
	total := 0
	// Fixed iteration order keeps ties deterministic.
	for _, intent := range []enums.RoutingIntent{
		enums.RoutingIntentCasualChat,
		enums.RoutingIntentSymptomQuery,
		enums.RoutingIntentOrder,
	} {
		total += counts[intent]
		if counts[intent] > bestCount {
			bestCount = counts[intent]
			best = intent
		}
	}

	scores := map[string]float64{}
	for intent, count := range counts {
		scores[string(intent)] = float64(count)
	}

	if bestCount == 0 {
		return &Classification{
			Intent:     enums.RoutingIntentCasualChat,
			Confidence: defaultKeywordConfidence,
			Method:     methodKeyword,
			Reasoning:  "no keywords matched, defaulting to casual chat",
			Scores:     scores,
		}
	}

	confidence := float64(bestCount) / float64(total) * keywordConfidenceScale
	if confidence > keywordConfidenceCap {
		confidence = keywordConfidenceCap
	}
	return &Classification{
		Intent:     best,
		Confidence: confidence,
		Method:     methodKeyword,
		Reasoning:  fmt.Sprintf("matched %d keyword(s) for %s", bestCount, best),
		Scores:     scores,
	}
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
