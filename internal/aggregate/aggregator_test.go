package aggregate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisanmitra/advisor/internal/cache"
	"github.com/kisanmitra/advisor/internal/config"
	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/provider"
)

const testFloor = 0.3

// stubProvider returns canned results and counts its fetches.
type stubProvider struct {
	category provider.Category
	origin   model.Origin
	rel      float64
	panics   bool
	fetches  atomic.Int64
}

func (s *stubProvider) Category() provider.Category { return s.category }

func (s *stubProvider) Fetch(ctx context.Context, p provider.Params) model.ProviderResult {
	s.fetches.Add(1)
	if s.panics {
		panic("upstream client bug")
	}
	return model.ProviderResult{
		Source:      string(s.category) + "-stub",
		Payload:     map[string]any{"advisory": "stub guidance for " + p.Location},
		FetchedAt:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Reliability: s.rel,
		Origin:      s.origin,
	}
}

func testTTL() config.CacheTTLConfig {
	return config.CacheTTLConfig{
		Weather:   10 * time.Minute,
		Market:    time.Hour,
		Crop:      6 * time.Hour,
		Scheme:    24 * time.Hour,
		Knowledge: time.Hour,
	}
}

func newTestAggregator(t *testing.T, providers ...provider.Provider) (*Aggregator, *cache.Memory) {
	t.Helper()
	reg := provider.NewRegistry()
	for _, p := range providers {
		reg.Register(p)
	}
	mem := cache.NewMemory()
	t.Cleanup(func() { mem.Close() })
	return New(reg, mem, testTTL(), time.Second, testFloor), mem
}

func TestAnswer_MergesSectionsInFixedOrder(t *testing.T) {
	agg, _ := newTestAggregator(t,
		&stubProvider{category: provider.CategoryCrop, origin: model.OriginLive, rel: 0.8},
		&stubProvider{category: provider.CategoryMarket, origin: model.OriginLive, rel: 0.85},
		&stubProvider{category: provider.CategoryWeather, origin: model.OriginLive, rel: 0.9},
	)

	q := model.StructuredQuery{
		Intent:   model.IntentCropRecommendation,
		Location: "Pune",
		Season:   model.SeasonKharif,
		Language: model.LanguageEnglish,
	}
	answer, err := agg.Answer(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, answer.Sections, 3)
	assert.Equal(t, "crop-stub", answer.Sections[0].Source)
	assert.Equal(t, "market-stub", answer.Sections[1].Source)
	assert.Equal(t, "weather-stub", answer.Sections[2].Source)
	assert.InDelta(t, 1.0, answer.OverallReliability, 1e-9)
	assert.False(t, answer.BestEffort)
	assert.NotEmpty(t, answer.Text)
}

func TestAnswer_ReliabilityIsLiveOverTotal(t *testing.T) {
	agg, _ := newTestAggregator(t,
		&stubProvider{category: provider.CategoryCrop, origin: model.OriginLive, rel: 0.8},
		&stubProvider{category: provider.CategoryMarket, origin: model.OriginFallback, rel: testFloor},
		&stubProvider{category: provider.CategoryWeather, origin: model.OriginFallback, rel: testFloor},
	)

	answer, err := agg.Answer(context.Background(), model.StructuredQuery{
		Intent:   model.IntentCropRecommendation,
		Language: model.LanguageEnglish,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0/3.0, answer.OverallReliability, 1e-9)
	assert.False(t, answer.BestEffort)
}

func TestAnswer_AllFallbackIsBestEffortAtFloor(t *testing.T) {
	agg, _ := newTestAggregator(t,
		&stubProvider{category: provider.CategoryCrop, origin: model.OriginFallback, rel: testFloor},
		&stubProvider{category: provider.CategoryMarket, origin: model.OriginFallback, rel: testFloor},
		&stubProvider{category: provider.CategoryWeather, origin: model.OriginFallback, rel: testFloor},
	)

	answer, err := agg.Answer(context.Background(), model.StructuredQuery{
		Intent:   model.IntentCropRecommendation,
		Language: model.LanguageEnglish,
	})
	require.NoError(t, err)

	assert.True(t, answer.BestEffort)
	assert.InDelta(t, testFloor, answer.OverallReliability, 1e-9)
	assert.NotEmpty(t, answer.Text)
	assert.Contains(t, answer.Text, "general guidance")
}

func TestAnswer_ReliabilityMonotoneUnderFallback(t *testing.T) {
	// Holding the provider set fixed, reliability must not increase as more
	// providers fall back.
	prev := 2.0
	for fallbacks := 0; fallbacks <= 3; fallbacks++ {
		origins := []model.Origin{model.OriginLive, model.OriginLive, model.OriginLive}
		for i := 0; i < fallbacks; i++ {
			origins[i] = model.OriginFallback
		}
		agg, _ := newTestAggregator(t,
			&stubProvider{category: provider.CategoryCrop, origin: origins[0], rel: 0.8},
			&stubProvider{category: provider.CategoryMarket, origin: origins[1], rel: 0.85},
			&stubProvider{category: provider.CategoryWeather, origin: origins[2], rel: 0.9},
		)
		answer, err := agg.Answer(context.Background(), model.StructuredQuery{
			Intent:   model.IntentCropRecommendation,
			Language: model.LanguageEnglish,
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, answer.OverallReliability, prev)
		prev = answer.OverallReliability
	}
}

func TestAnswer_ProviderPanicBecomesError(t *testing.T) {
	// A panicking provider must surface as an error from Answer, not escape
	// the fan-out goroutine and take the process down.
	agg, _ := newTestAggregator(t,
		&stubProvider{category: provider.CategoryCrop, origin: model.OriginLive, rel: 0.8},
		&stubProvider{category: provider.CategoryMarket, panics: true},
		&stubProvider{category: provider.CategoryWeather, origin: model.OriginLive, rel: 0.9},
	)

	_, err := agg.Answer(context.Background(), model.StructuredQuery{
		Intent:   model.IntentCropRecommendation,
		Language: model.LanguageEnglish,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestAnswer_HighFloorClampedBelowPartlyLive(t *testing.T) {
	// With a floor above 1/total, an all-fallback answer must not report
	// higher reliability than an answer with one live section.
	const highFloor = 0.5

	newAgg := func(origins [3]model.Origin) *Aggregator {
		reg := provider.NewRegistry()
		reg.Register(&stubProvider{category: provider.CategoryCrop, origin: origins[0], rel: 0.8})
		reg.Register(&stubProvider{category: provider.CategoryMarket, origin: origins[1], rel: 0.85})
		reg.Register(&stubProvider{category: provider.CategoryWeather, origin: origins[2], rel: 0.9})
		mem := cache.NewMemory()
		t.Cleanup(func() { mem.Close() })
		return New(reg, mem, testTTL(), time.Second, highFloor)
	}

	q := model.StructuredQuery{
		Intent:   model.IntentCropRecommendation,
		Language: model.LanguageEnglish,
	}

	oneLive, err := newAgg([3]model.Origin{
		model.OriginLive, model.OriginFallback, model.OriginFallback,
	}).Answer(context.Background(), q)
	require.NoError(t, err)

	allFallback, err := newAgg([3]model.Origin{
		model.OriginFallback, model.OriginFallback, model.OriginFallback,
	}).Answer(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, allFallback.BestEffort)
	assert.LessOrEqual(t, allFallback.OverallReliability, oneLive.OverallReliability)
}

func TestAnswer_SectionCacheHitSkipsProvider(t *testing.T) {
	p := &stubProvider{category: provider.CategoryWeather, origin: model.OriginLive, rel: 0.9}
	agg, _ := newTestAggregator(t, p)

	q := model.StructuredQuery{
		Intent:   model.IntentWeather,
		Location: "Delhi",
		Language: model.LanguageEnglish,
	}

	first, err := agg.Answer(context.Background(), q)
	require.NoError(t, err)
	second, err := agg.Answer(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.fetches.Load(), "second call must be served from cache")
	assert.Equal(t, first.Sections, second.Sections)
}

func TestAnswer_Greeting(t *testing.T) {
	agg, _ := newTestAggregator(t)

	answer, err := agg.Answer(context.Background(), model.StructuredQuery{
		Intent:     model.IntentGreeting,
		Language:   model.LanguageHindi,
		Confidence: 1.0,
	})
	require.NoError(t, err)

	assert.Empty(t, answer.Sections)
	assert.InDelta(t, 1.0, answer.OverallReliability, 1e-9)
	assert.Equal(t, greetingText(model.LanguageHindi), answer.Text)
}

func TestAnswer_UnknownCategoryFails(t *testing.T) {
	agg, _ := newTestAggregator(t) // nothing registered

	_, err := agg.Answer(context.Background(), model.StructuredQuery{
		Intent:   model.IntentWeather,
		Language: model.LanguageEnglish,
	})
	assert.Error(t, err)
}

func TestRenderText_HindiSectionsAndTitles(t *testing.T) {
	answer := &model.AggregatedAnswer{
		Query: model.StructuredQuery{
			Intent: model.IntentMarketPrice,
			Crop:   "wheat",
		},
		Language: model.LanguageHindi,
		Sections: []model.ProviderResult{{
			Source: "agmarknet",
			Origin: model.OriginLive,
			Payload: map[string]any{
				"prices": []any{
					map[string]any{
						"market": "Delhi", "variety": "Dara",
						"arrival_date": "27/06/2026", "modal_price_rs_per_qtl": float64(2410),
					},
				},
			},
		}},
	}

	text := renderText(answer)
	assert.Contains(t, text, "मंडी भाव")
	assert.Contains(t, text, "Rs 2410/qtl")
}

func TestRenderText_EmptyPayloadStillRenders(t *testing.T) {
	answer := &model.AggregatedAnswer{
		Query:    model.StructuredQuery{Intent: model.IntentWeather},
		Language: model.LanguageEnglish,
		Sections: []model.ProviderResult{{Source: "open-meteo", Payload: map[string]any{}}},
	}
	assert.NotEmpty(t, renderText(answer))
}
