package routing

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (f *fakeEmbedder) Chat(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	// Unknown example texts get a far-away default vector.
	return []float64{0, 0, 1}, nil
}

func newKeywordClassifier(t *testing.T) Classifier {
	t.Helper()
	c, err := NewClassifier(nil, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

func TestKeywordClassifyOrder(t *testing.T) {
	c := newKeywordClassifier(t)

	result, err := c.Classify(context.Background(), "I want to order 20 tablets of aspirin")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Intent != enums.RoutingIntentOrder {
		t.Fatalf("expected order intent, got %q (%s)", result.Intent, result.Reasoning)
	}
	if result.Method != methodKeyword {
		t.Fatalf("expected keyword method, got %q", result.Method)
	}
	if result.Confidence > keywordConfidenceCap {
		t.Fatalf("confidence must be capped at %v, got %v", keywordConfidenceCap, result.Confidence)
	}
}

func TestKeywordClassifySymptom(t *testing.T) {
	c := newKeywordClassifier(t)

	result, err := c.Classify(context.Background(), "my throat hurts and I have fever")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Intent != enums.RoutingIntentSymptomQuery {
		t.Fatalf("expected symptom intent, got %q (%s)", result.Intent, result.Reasoning)
	}
}

func TestKeywordClassifyDefaultsToCasualChat(t *testing.T) {
	c := newKeywordClassifier(t)

	result, err := c.Classify(context.Background(), "zzz qqq")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Intent != enums.RoutingIntentCasualChat {
		t.Fatalf("expected casual chat default, got %q", result.Intent)
	}
	if result.Confidence != defaultKeywordConfidence {
		t.Fatalf("expected default confidence %v, got %v", defaultKeywordConfidence, result.Confidence)
	}
}

func TestKeywordClassifyRejectsEmpty(t *testing.T) {
	c := newKeywordClassifier(t)
	if _, err := c.Classify(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestEmbeddingClassifyPicksClosestIntent(t *testing.T) {
	// Example texts embed near axis vectors per category; the message sits
	// next to the order axis.
	vectors := map[string][]float64{"I need my pills": {0.9, 0.1, 0}}
	for _, example := range intentExamples[enums.RoutingIntentOrder] {
		vectors[example] = []float64{1, 0, 0}
	}
	for _, example := range intentExamples[enums.RoutingIntentSymptomQuery] {
		vectors[example] = []float64{0, 1, 0}
	}
	for _, example := range intentExamples[enums.RoutingIntentCasualChat] {
		vectors[example] = []float64{0, 0, 1}
	}

	c, err := NewClassifier(&fakeEmbedder{vectors: vectors}, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	result, err := c.Classify(context.Background(), "I need my pills")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Intent != enums.RoutingIntentOrder {
		t.Fatalf("expected order intent, got %q", result.Intent)
	}
	if result.Method != methodEmbedding {
		t.Fatalf("expected embedding method, got %q", result.Method)
	}
	if result.Confidence < 0.9 {
		t.Fatalf("expected high similarity, got %v", result.Confidence)
	}
	if len(result.Scores) != 3 {
		t.Fatalf("expected all category scores, got %v", result.Scores)
	}
}

func TestEmbeddingFailureFallsBackToKeywords(t *testing.T) {
	c, err := NewClassifier(&fakeEmbedder{err: errors.New("runtime down")}, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	result, err := c.Classify(context.Background(), "order medicine")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if result.Method != methodKeyword {
		t.Fatalf("expected keyword fallback, got %q", result.Method)
	}
	if result.Intent != enums.RoutingIntentOrder {
		t.Fatalf("expected order intent, got %q", result.Intent)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors should score 1, got %v", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors should score 0, got %v", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{1}); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %v", got)
	}
}

func TestKeywordConfidenceProportional(t *testing.T) {
	c := newKeywordClassifier(t).(*classifier)

	result := c.classifyWithKeywords(strings.ToLower("I need to buy medicine tablets"))
	if result.Intent != enums.RoutingIntentOrder {
		t.Fatalf("expected order, got %q", result.Intent)
	}
	if result.Confidence <= defaultKeywordConfidence {
		t.Fatalf("multi-keyword match should beat default, got %v", result.Confidence)
	}
}
