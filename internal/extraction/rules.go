package extraction

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SohamFirke/pharma-backend/pkg/enums"
)

// CatalogNames lists known medicine names for matching.
type CatalogNames interface {
	Names(ctx context.Context) ([]string, error)
}

// HistoryResolver resolves the medicine a refill request refers to.
type HistoryResolver interface {
	LatestMedicine(ctx context.Context, userID string) (string, error)
}

var (
	quantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:tablets?|capsules?|pills?|units?)`),
		regexp.MustCompile(`(\d+)\s*(?:of|x)\b`),
		regexp.MustCompile(`quantity[:\s]+(\d+)`),
		regexp.MustCompile(`(\d+)\s*days?\s*worth`),
	}
	dosagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:per day|daily|times a day|times daily)`),
		regexp.MustCompile(`(\d+)\s*(?:times?|x)\s*(?:per day|daily)`),
		regexp.MustCompile(`dosage[:\s]+(\d+)`),
	}

	refillWords = []string{"refill", "again", "same", "usual"}

	stopWords = map[string]bool{
		"i": true, "me": true, "my": true, "the": true, "a": true, "an": true,
		"some": true, "need": true, "want": true, "order": true, "buy": true,
		"get": true, "please": true, "for": true, "of": true, "to": true,
		"in": true, "on": true, "at": true, "days": true, "day": true,
		"tablets": true, "tablet": true, "capsules": true, "capsule": true,
		"pills": true, "pill": true, "worth": true, "again": true,
		"and": true, "or": true,
	}
)

type ruleExtractor struct {
	catalog CatalogNames
	history HistoryResolver
}

// NewRuleExtractor builds the deterministic extractor. The history resolver
// is optional; without it refill requests fall through to name matching.
func NewRuleExtractor(catalog CatalogNames, history HistoryResolver) (Extractor, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog names provider required")
	}
	return &ruleExtractor{catalog: catalog, history: history}, nil
}

func (r *ruleExtractor) Extract(ctx context.Context, message, userID string) (*Intent, error) {
	lower := strings.ToLower(message)

	intent := &Intent{
		Quantity:     1,
		DosagePerDay: 1,
		Method:       enums.ExtractionMethodRule,
		Confidence:   ConfidenceNone,
		RawMessage:   message,
	}

	if qty, ok := firstNumber(quantityPatterns, lower); ok {
		intent.Quantity = qty
	}
	if dosage, ok := firstNumber(dosagePatterns, lower); ok {
		intent.DosagePerDay = dosage
	}

	// Refill requests resolve against purchase history before any name match.
	if r.history != nil && userID != "" && containsAny(lower, refillWords) {
		name, err := r.history.LatestMedicine(ctx, userID)
		if err == nil && name != "" {
			intent.MedicineName = name
			intent.Confidence = ConfidenceRefill
			return intent, nil
		}
	}

	names, err := r.catalog.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog names: %w", err)
	}

	// Longest names first so "paracetamol extra" wins over "paracetamol".
	sorted := append([]string(nil), names...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, name := range sorted {
		if strings.Contains(lower, strings.ToLower(name)) {
			intent.MedicineName = name
			intent.Confidence = ConfidenceExact
			return intent, nil
		}
	}

	candidates := candidateWords(lower)
	for _, candidate := range candidates {
		if match := fuzzyMatch(candidate, names); match != "" {
			intent.MedicineName = match
			intent.Confidence = ConfidenceFuzzy
			return intent, nil
		}
	}

	// Nothing matched the catalog. Surface the most plausible token as a
	// best guess so the caller can decide whether to proceed.
	if len(candidates) > 0 {
		intent.MedicineName = capitalize(candidates[0])
		intent.Confidence = ConfidenceBestGuess
		return intent, nil
	}

	return intent, nil
}

func firstNumber(patterns []*regexp.Regexp, message string) (int, bool) {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(message); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func containsAny(message string, words []string) bool {
	for _, word := range words {
		if strings.Contains(message, word) {
			return true
		}
	}
	return false
}

// candidateWords strips punctuation, numbers, short tokens, and filler words.
func candidateWords(message string) []string {
	normalized := strings.NewReplacer(",", " ", "!", " ", "?", " ", ".", " ").Replace(message)
	fields := strings.Fields(normalized)

	candidates := []string{}
	for _, word := range fields {
		word = strings.Trim(word, ".,!?")
		if word == "" || len(word) <= 2 || stopWords[word] {
			continue
		}
		if _, err := strconv.Atoi(word); err == nil {
			continue
		}
		candidates = append(candidates, word)
	}
	return candidates
}

// fuzzyMatch prefers an exact name match, then substring containment.
func fuzzyMatch(query string, names []string) string {
	for _, name := range names {
		if strings.EqualFold(name, query) {
			return name
		}
	}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), query) {
			return name
		}
	}
	return ""
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
