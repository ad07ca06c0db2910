package classify

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kisanmitra/advisor/internal/model"
)

// Rule maps a text pattern to an intent with a weight. Patterns are matched
// as whole words against the lowercased input; multi-word patterns are
// matched as substrings.
type Rule struct {
	Pattern string       `yaml:"pattern"`
	Intent  model.Intent `yaml:"intent"`
	Weight  float64      `yaml:"weight"`
}

// DefaultRules is the built-in scoring table. Keeping it declarative makes
// the scoring auditable: every classification decision traces back to rows
// in this table plus the tie-break order in model.Intent.Priority.
func DefaultRules() []Rule {
	return []Rule{
		// market price
		{Pattern: "price", Intent: model.IntentMarketPrice, Weight: 1.0},
		{Pattern: "rate", Intent: model.IntentMarketPrice, Weight: 0.8},
		{Pattern: "bhav", Intent: model.IntentMarketPrice, Weight: 1.0},
		{Pattern: "भाव", Intent: model.IntentMarketPrice, Weight: 1.0},
		{Pattern: "कीमत", Intent: model.IntentMarketPrice, Weight: 1.0},
		{Pattern: "mandi", Intent: model.IntentMarketPrice, Weight: 0.9},
		{Pattern: "मंडी", Intent: model.IntentMarketPrice, Weight: 0.9},
		{Pattern: "sell", Intent: model.IntentMarketPrice, Weight: 0.5},
		{Pattern: "market", Intent: model.IntentMarketPrice, Weight: 0.6},

		// weather
		{Pattern: "weather", Intent: model.IntentWeather, Weight: 1.0},
		{Pattern: "mausam", Intent: model.IntentWeather, Weight: 1.0},
		{Pattern: "मौसम", Intent: model.IntentWeather, Weight: 1.0},
		{Pattern: "rain", Intent: model.IntentWeather, Weight: 0.9},
		{Pattern: "barish", Intent: model.IntentWeather, Weight: 0.9},
		{Pattern: "बारिश", Intent: model.IntentWeather, Weight: 0.9},
		{Pattern: "temperature", Intent: model.IntentWeather, Weight: 0.8},
		{Pattern: "forecast", Intent: model.IntentWeather, Weight: 0.9},
		{Pattern: "humidity", Intent: model.IntentWeather, Weight: 0.7},
		{Pattern: "irrigat", Intent: model.IntentWeather, Weight: 0.4},

		// crop recommendation
		{Pattern: "which crop", Intent: model.IntentCropRecommendation, Weight: 1.2},
		{Pattern: "what to grow", Intent: model.IntentCropRecommendation, Weight: 1.2},
		{Pattern: "what should i grow", Intent: model.IntentCropRecommendation, Weight: 1.2},
		{Pattern: "kaunsi fasal", Intent: model.IntentCropRecommendation, Weight: 1.2},
		{Pattern: "कौन सी फसल", Intent: model.IntentCropRecommendation, Weight: 1.2},
		{Pattern: "recommend", Intent: model.IntentCropRecommendation, Weight: 0.8},
		{Pattern: "suggest", Intent: model.IntentCropRecommendation, Weight: 0.7},
		{Pattern: "sow", Intent: model.IntentCropRecommendation, Weight: 0.7},
		{Pattern: "plant", Intent: model.IntentCropRecommendation, Weight: 0.6},
		{Pattern: "grow", Intent: model.IntentCropRecommendation, Weight: 0.5},
		{Pattern: "bona", Intent: model.IntentCropRecommendation, Weight: 0.7},
		{Pattern: "बोना", Intent: model.IntentCropRecommendation, Weight: 0.7},
		{Pattern: "soil", Intent: model.IntentCropRecommendation, Weight: 0.5},

		// pest control
		{Pattern: "pest", Intent: model.IntentPestControl, Weight: 1.0},
		{Pattern: "insect", Intent: model.IntentPestControl, Weight: 0.9},
		{Pattern: "keeda", Intent: model.IntentPestControl, Weight: 1.0},
		{Pattern: "कीड़ा", Intent: model.IntentPestControl, Weight: 1.0},
		{Pattern: "कीट", Intent: model.IntentPestControl, Weight: 1.0},
		{Pattern: "disease", Intent: model.IntentPestControl, Weight: 0.8},
		{Pattern: "rog", Intent: model.IntentPestControl, Weight: 0.7},
		{Pattern: "रोग", Intent: model.IntentPestControl, Weight: 0.7},
		{Pattern: "spray", Intent: model.IntentPestControl, Weight: 0.8},
		{Pattern: "fungus", Intent: model.IntentPestControl, Weight: 0.8},
		{Pattern: "blight", Intent: model.IntentPestControl, Weight: 0.9},
		{Pattern: "pesticide", Intent: model.IntentPestControl, Weight: 1.0},

		// government scheme
		{Pattern: "scheme", Intent: model.IntentGovernmentScheme, Weight: 1.0},
		{Pattern: "yojana", Intent: model.IntentGovernmentScheme, Weight: 1.0},
		{Pattern: "योजना", Intent: model.IntentGovernmentScheme, Weight: 1.0},
		{Pattern: "subsidy", Intent: model.IntentGovernmentScheme, Weight: 1.0},
		{Pattern: "loan", Intent: model.IntentGovernmentScheme, Weight: 0.8},
		{Pattern: "kisan credit", Intent: model.IntentGovernmentScheme, Weight: 1.2},
		{Pattern: "pm-kisan", Intent: model.IntentGovernmentScheme, Weight: 1.2},
		{Pattern: "pm kisan", Intent: model.IntentGovernmentScheme, Weight: 1.2},
		{Pattern: "insurance", Intent: model.IntentGovernmentScheme, Weight: 0.8},
		{Pattern: "bima", Intent: model.IntentGovernmentScheme, Weight: 0.8},
		{Pattern: "बीमा", Intent: model.IntentGovernmentScheme, Weight: 0.8},

		// greeting
		{Pattern: "hello", Intent: model.IntentGreeting, Weight: 1.0},
		{Pattern: "hi", Intent: model.IntentGreeting, Weight: 0.9},
		{Pattern: "namaste", Intent: model.IntentGreeting, Weight: 1.0},
		{Pattern: "नमस्ते", Intent: model.IntentGreeting, Weight: 1.0},
		{Pattern: "help", Intent: model.IntentGreeting, Weight: 0.8},
		{Pattern: "thanks", Intent: model.IntentGreeting, Weight: 0.8},
		{Pattern: "dhanyavad", Intent: model.IntentGreeting, Weight: 0.8},
	}
}

// LoadRules reads a rule table from a YAML file. The file replaces the
// built-in table entirely so operators can audit exactly what is in effect.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read rules %s", path)
	}

	var wrapper struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "classify: parse rules")
	}
	if len(wrapper.Rules) == 0 {
		return nil, eris.Errorf("classify: no rules in %s", path)
	}
	for i, r := range wrapper.Rules {
		if !r.Intent.Valid() {
			return nil, eris.Errorf("classify: rule %d has unknown intent %q", i, r.Intent)
		}
		if r.Weight <= 0 {
			return nil, eris.Errorf("classify: rule %d (%q) has non-positive weight", i, r.Pattern)
		}
	}
	return wrapper.Rules, nil
}

// matches reports whether the rule's pattern occurs in the lowercased text.
// Single-word patterns must match a whole token to avoid partial-word hits
// ("hi" must not fire inside "delhi").
func (r Rule) matches(lowered string, tokens []string) bool {
	p := strings.ToLower(r.Pattern)
	if strings.ContainsRune(p, ' ') || strings.ContainsRune(p, '-') {
		return strings.Contains(lowered, p)
	}
	for _, tok := range tokens {
		if tok == p || strings.HasPrefix(tok, p+"'") {
			return true
		}
		// Prefix patterns like "irrigat" cover irrigate/irrigation.
		if len(p) >= 6 && strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}
