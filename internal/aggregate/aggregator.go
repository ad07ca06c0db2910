// Package aggregate fans a structured query out to its providers, merges
// the sections into one answer, and renders the answer text.
package aggregate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kisanmitra/advisor/internal/cache"
	"github.com/kisanmitra/advisor/internal/config"
	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/provider"
)

// Aggregator merges provider sections into answers.
type Aggregator struct {
	registry *provider.Registry
	cache    cache.Cache
	ttl      config.CacheTTLConfig
	timeout  time.Duration
	floor    float64
	nowFunc  func() time.Time
}

// New creates an aggregator. Each provider call gets its own timeout so one
// slow upstream cannot stall the whole answer. The floor is the reliability
// reported when every section is a fallback.
func New(registry *provider.Registry, c cache.Cache, ttl config.CacheTTLConfig, timeout time.Duration, floor float64) *Aggregator {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Aggregator{
		registry: registry,
		cache:    c,
		ttl:      ttl,
		timeout:  timeout,
		floor:    floor,
		nowFunc:  time.Now,
	}
}

// WithNow sets the clock for testing.
func (a *Aggregator) WithNow(fn func() time.Time) *Aggregator {
	a.nowFunc = fn
	return a
}

// Answer builds the aggregated answer for a structured query. Sections come
// back in the fixed category order for the intent, so two runs over the same
// cached data produce identical answers.
func (a *Aggregator) Answer(ctx context.Context, q model.StructuredQuery) (*model.AggregatedAnswer, error) {
	if q.Intent == model.IntentGreeting {
		return a.greeting(q), nil
	}

	categories := provider.CategoriesFor(q.Intent)
	if len(categories) == 0 {
		return nil, eris.Errorf("aggregate: no providers for intent %q", q.Intent)
	}

	params := provider.Params{
		Location: q.Location,
		Crop:     q.Crop,
		Season:   string(q.Season),
		Query:    q.Topic,
	}

	sections := make([]model.ProviderResult, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		g.Go(func() error {
			res, err := a.fetchSection(gctx, cat, params)
			if err != nil {
				return err
			}
			sections[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	live := 0
	for _, s := range sections {
		if s.Live() {
			live++
		}
	}
	overall := float64(live) / float64(len(sections))
	bestEffort := live == 0
	if bestEffort {
		// Degraded answers report the fallback floor rather than zero, so
		// callers can distinguish "all fallback" from "no answer". The clamp
		// keeps an all-fallback answer from outranking a partly live one when
		// the floor is configured above 1/total.
		overall = min(a.floor, 1/float64(len(sections)))
	}

	answer := &model.AggregatedAnswer{
		Query:              q,
		Sections:           sections,
		OverallReliability: overall,
		Language:           q.Language,
		BestEffort:         bestEffort,
		GeneratedAt:        a.nowFunc(),
	}
	answer.Text = renderText(answer)

	zap.L().Debug("aggregated answer",
		zap.String("intent", string(q.Intent)),
		zap.Int("sections", len(sections)),
		zap.Int("live", live),
		zap.Float64("overall_reliability", overall),
	)

	return answer, nil
}

// fetchSection fetches one category through the section cache. Cache entries
// hold the marshalled ProviderResult, so a hit replays the earlier section
// including its origin and fetch time.
func (a *Aggregator) fetchSection(ctx context.Context, cat provider.Category, params provider.Params) (model.ProviderResult, error) {
	p, err := a.registry.Get(cat)
	if err != nil {
		return model.ProviderResult{}, err
	}

	key := cache.Key(string(cat), map[string]string{
		"location": params.Location,
		"crop":     params.Crop,
		"season":   params.Season,
		"query":    params.Query,
	})

	blob, _, err := a.cache.GetOrCompute(ctx, key, a.ttlFor(cat), func(ctx context.Context) (out []byte, err error) {
		// A buggy provider degrades the request, never the process: the
		// fan-out goroutines run outside the caller's recover.
		defer func() {
			if r := recover(); r != nil {
				err = eris.Errorf("aggregate: %s provider panicked: %v", cat, r)
			}
		}()
		fctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		res := p.Fetch(fctx, params)
		return json.Marshal(res)
	})
	if err != nil {
		return model.ProviderResult{}, eris.Wrapf(err, "aggregate: fetch %s section", cat)
	}

	var res model.ProviderResult
	if err := json.Unmarshal(blob, &res); err != nil {
		return model.ProviderResult{}, eris.Wrapf(err, "aggregate: decode cached %s section", cat)
	}
	return res, nil
}

func (a *Aggregator) ttlFor(cat provider.Category) time.Duration {
	switch cat {
	case provider.CategoryWeather:
		return a.ttl.Weather
	case provider.CategoryMarket:
		return a.ttl.Market
	case provider.CategoryCrop:
		return a.ttl.Crop
	case provider.CategoryScheme:
		return a.ttl.Scheme
	default:
		return a.ttl.Knowledge
	}
}

// greeting answers without consulting any provider.
func (a *Aggregator) greeting(q model.StructuredQuery) *model.AggregatedAnswer {
	answer := &model.AggregatedAnswer{
		Query:              q,
		Sections:           []model.ProviderResult{},
		OverallReliability: 1.0,
		Language:           q.Language,
		GeneratedAt:        a.nowFunc(),
	}
	answer.Text = renderText(answer)
	return answer
}
