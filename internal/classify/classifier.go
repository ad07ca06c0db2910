// Package classify turns free text into a structured query: intent, entities
// (crop, location, season), language, and the classifier's own confidence.
package classify

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kisanmitra/advisor/internal/lang"
	"github.com/kisanmitra/advisor/internal/model"
)

// Config holds classifier thresholds. All values are tunables surfaced
// through the application config.
type Config struct {
	// MinIntentScore is the minimum winning score; below it the query is
	// classified as general knowledge with LowConfidence.
	MinIntentScore float64
	// LowConfidence is assigned when no intent clears MinIntentScore.
	LowConfidence float64
	// FuzzyMaxDistance bounds the edit distance for gazetteer fuzzy matches.
	FuzzyMaxDistance int
	BaseLanguage     model.Language
}

const (
	exactLocationBoost = 0.10
	fuzzyLocationBoost = 0.04
	entityBoost        = 0.05
)

// Classifier scores intents from a declarative rule table and extracts
// entities from lexicons. It is stateless after construction and safe for
// concurrent use.
type Classifier struct {
	rules    []Rule
	detector *lang.Detector
	cfg      Config
}

// New creates a classifier. Passing nil rules selects the built-in table.
func New(cfg Config, rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	if cfg.BaseLanguage == "" {
		cfg.BaseLanguage = model.LanguageEnglish
	}
	return &Classifier{
		rules:    rules,
		detector: lang.NewDetector(cfg.BaseLanguage),
		cfg:      cfg,
	}
}

// Classify builds a StructuredQuery from raw text. It never fails: empty
// input yields a deterministic greeting query, and unmatchable input yields
// a low-confidence general-knowledge query.
func (c *Classifier) Classify(raw string) model.StructuredQuery {
	return c.ClassifyWithHints(raw, "", "")
}

// ClassifyWithHints is Classify with optional client-supplied hints. A valid
// language hint overrides detection; a location hint is used only when the
// text itself contains no recognizable place.
func (c *Classifier) ClassifyWithHints(raw, langHint, locationHint string) model.StructuredQuery {
	language, hinted := lang.ParseHint(langHint)
	if !hinted {
		language = c.cfg.BaseLanguage
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		// Deterministic, not guessed.
		return model.StructuredQuery{
			Intent:     model.IntentGreeting,
			Language:   language,
			Confidence: 1.0,
		}
	}

	if !hinted {
		language = c.detector.Detect(trimmed)
	}

	lowered := strings.ToLower(trimmed)
	tokens := tokenize(lowered)

	intent, confidence := c.scoreIntents(lowered, tokens)

	q := model.StructuredQuery{
		Intent:   intent,
		Language: language,
	}
	if intent == model.IntentGeneralKnowledge {
		// Open-ended questions are answered from the text itself, so the
		// normalized text travels with the query.
		q.Topic = lowered
	}

	if place, exact, ok := extractLocation(lowered, tokens, c.cfg.FuzzyMaxDistance); ok {
		q.Location = place.Name
		if exact {
			confidence += exactLocationBoost
		} else {
			// Fuzzy hits are substituted only because they raise confidence;
			// the boost is deliberately smaller than an exact match.
			confidence += fuzzyLocationBoost
		}
	} else if locationHint != "" {
		if place, ok := LookupPlace(locationHint); ok {
			q.Location = place.Name
		}
	}

	if crop, ok := extractCrop(tokens); ok {
		q.Crop = crop
		confidence += entityBoost
	}
	if season, ok := extractSeason(tokens); ok {
		q.Season = season
		confidence += entityBoost
	}

	q.Confidence = clamp01(confidence)

	zap.L().Debug("classified query",
		zap.String("intent", string(q.Intent)),
		zap.String("crop", q.Crop),
		zap.String("location", q.Location),
		zap.String("language", string(q.Language)),
		zap.Float64("confidence", q.Confidence),
	)

	return q
}

// scoreIntents runs the rule table and returns the winning intent with a
// confidence derived from the margin over the runner-up.
func (c *Classifier) scoreIntents(lowered string, tokens []string) (model.Intent, float64) {
	scores := make(map[model.Intent]float64)
	for _, r := range c.rules {
		if r.matches(lowered, tokens) {
			scores[r.Intent] += r.Weight
		}
	}

	ranked := make([]model.Intent, 0, len(scores))
	for intent := range scores {
		ranked = append(ranked, intent)
	}
	// Highest score first; ties broken by the fixed priority order.
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a.Priority() > b.Priority()
	})

	if len(ranked) == 0 || scores[ranked[0]] < c.cfg.MinIntentScore {
		return model.IntentGeneralKnowledge, c.cfg.LowConfidence
	}

	top := scores[ranked[0]]
	var second float64
	if len(ranked) > 1 {
		second = scores[ranked[1]]
	}

	// Margin-based confidence: a clear winner approaches 1, a near-tie
	// hovers around 0.5.
	return ranked[0], top / (top + second + 0.5)
}

func tokenize(lowered string) []string {
	fields := strings.Fields(lowered)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.Trim(f, ".,!?;:\"'()-")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
