package provider

import (
	"time"

	"github.com/kisanmitra/advisor/internal/model"
)

// fallbackResult builds a complete fallback record for a source. The
// reliability floor comes from configuration and must stay below any live
// reliability so degraded answers rank lower.
func fallbackResult(source string, reliability float64, payload map[string]any, now time.Time) model.ProviderResult {
	return model.ProviderResult{
		Source:      source,
		Payload:     payload,
		FetchedAt:   now,
		Reliability: reliability,
		Origin:      model.OriginFallback,
	}
}

// The baseline datasets below are deliberately generic seasonal guidance,
// usable for any location when the live upstream is unreachable.

func fallbackWeatherPayload(p Params) map[string]any {
	return map[string]any{
		"location": p.Location,
		"advisory": "Live weather is unavailable. Check the IMD district bulletin before spraying or irrigating.",
		"seasonal_normals": map[string]any{
			"kharif": "Monsoon season: expect frequent rain between June and September.",
			"rabi":   "Winter season: dry, cool weather; irrigate at sowing and crown-root stages.",
			"zaid":   "Summer season: hot and dry; irrigate frequently and mulch to retain moisture.",
		},
	}
}

func fallbackMarketPayload(p Params) map[string]any {
	return map[string]any{
		"commodity": p.Crop,
		"advisory":  "Live mandi prices are unavailable. The figures below are indicative MSP-based rates.",
		"indicative_prices_rs_per_qtl": map[string]any{
			"wheat":   2425,
			"rice":    2300,
			"maize":   2225,
			"mustard": 5950,
			"cotton":  7121,
			"onion":   1800,
			"potato":  1200,
		},
	}
}

func fallbackCropPayload(p Params) map[string]any {
	return map[string]any{
		"region":   p.Location,
		"season":   p.Season,
		"advisory": "Live crop advisory is unavailable. General season-wise options are listed below.",
		"options_by_season": map[string]any{
			"kharif": []string{"rice", "maize", "cotton", "soybean", "bajra"},
			"rabi":   []string{"wheat", "mustard", "chickpea", "barley", "potato"},
			"zaid":   []string{"moong", "watermelon", "cucumber", "fodder maize"},
		},
	}
}

func fallbackSchemePayload(p Params) map[string]any {
	return map[string]any{
		"state":    p.Location,
		"advisory": "Live scheme listings are unavailable. Major central schemes are listed below.",
		"schemes": []map[string]any{
			{
				"name":    "PM-KISAN",
				"benefit": "Rs 6000 per year income support for landholding farmer families.",
			},
			{
				"name":    "PMFBY",
				"benefit": "Crop insurance against natural calamities, pests and diseases.",
			},
			{
				"name":    "Kisan Credit Card",
				"benefit": "Short-term credit for cultivation at subsidised interest.",
			},
		},
	}
}

func fallbackKnowledgePayload(p Params) map[string]any {
	return map[string]any{
		"question": p.Query,
		"answer":   "The advisory service is temporarily unable to answer this question. Please contact your local Krishi Vigyan Kendra, or try again later.",
	}
}
