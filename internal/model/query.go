// Package model defines the shared domain types for the advisory pipeline.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Intent is the category of a user's request.
type Intent string

const (
	IntentCropRecommendation Intent = "crop_recommendation"
	IntentWeather            Intent = "weather"
	IntentMarketPrice        Intent = "market_price"
	IntentPestControl        Intent = "pest_control"
	IntentGovernmentScheme   Intent = "government_scheme"
	IntentGeneralKnowledge   Intent = "general_knowledge"
	IntentGreeting           Intent = "greeting"
)

// Priority ranks intents for tie-breaking during classification.
// Agriculture-specific intents outrank general knowledge; greeting ranks last.
func (i Intent) Priority() int {
	switch i {
	case IntentCropRecommendation:
		return 7
	case IntentMarketPrice:
		return 6
	case IntentWeather:
		return 5
	case IntentPestControl:
		return 4
	case IntentGovernmentScheme:
		return 3
	case IntentGeneralKnowledge:
		return 2
	case IntentGreeting:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the intent is one of the known categories.
func (i Intent) Valid() bool {
	return i.Priority() > 0
}

// Language is the detected or requested answer language.
type Language string

const (
	LanguageEnglish Language = "en"
	// LanguageHindi covers Devanagari-script input.
	LanguageHindi Language = "hi"
	// LanguageHinglish is romanized Hindi blended with English. It is a
	// distinct category, not a fallback to either pure language.
	LanguageHinglish Language = "hi-en"
)

// Season is an Indian cropping season.
type Season string

const (
	SeasonKharif Season = "kharif"
	SeasonRabi   Season = "rabi"
	SeasonZaid   Season = "zaid"
)

// StructuredQuery is the classifier's structured view of one raw question.
// It is immutable once built; downstream stages must not adjust Confidence.
type StructuredQuery struct {
	Intent   Intent   `json:"intent"`
	Crop     string   `json:"crop,omitempty"`
	Location string   `json:"location,omitempty"`
	Season   Season   `json:"season,omitempty"`
	Language Language `json:"language"`
	// Topic carries the normalized question text for open-ended intents,
	// where the extracted entities alone do not determine the answer.
	Topic      string  `json:"topic,omitempty"`
	Confidence float64 `json:"confidence"`
}

// CacheKey returns a deterministic key for the query, built from the
// normalized fields that influence the answer. Confidence is excluded so
// that near-identical classifications share a cache slot.
func (q StructuredQuery) CacheKey() string {
	raw := strings.Join([]string{
		string(q.Intent),
		strings.ToLower(q.Crop),
		strings.ToLower(q.Location),
		string(q.Season),
		string(q.Language),
		strings.ToLower(q.Topic),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("answer:%x", sum[:16])
}
