package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kisanmitra/advisor/internal/classify"
	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/resilience"
	"github.com/kisanmitra/advisor/pkg/agridata"
)

const schemeLiveReliability = 0.85

// Scheme serves government support programme listings from the agridata
// service.
type Scheme struct {
	client      agridata.Client
	limiter     *rate.Limiter
	breaker     *resilience.Breaker
	retry       resilience.RetryConfig
	fallbackRel float64
	nowFunc     func() time.Time
}

// NewScheme creates the scheme catalogue provider.
func NewScheme(client agridata.Client, fallbackReliability float64) *Scheme {
	return &Scheme{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(2), 5),
		breaker:     resilience.NewBreaker(0, 0),
		retry:       resilience.DefaultRetryConfig(),
		fallbackRel: fallbackReliability,
		nowFunc:     time.Now,
	}
}

// WithNow sets the clock for testing.
func (s *Scheme) WithNow(fn func() time.Time) *Scheme {
	s.nowFunc = fn
	return s
}

func (s *Scheme) Category() Category { return CategoryScheme }

func (s *Scheme) Fetch(ctx context.Context, p Params) model.ProviderResult {
	schemes, err := s.fetchLive(ctx, p)
	if err != nil {
		zap.L().Warn("scheme provider degraded to fallback",
			zap.String("location", p.Location),
			zap.Error(err),
		)
		return fallbackResult("agridata-schemes", s.fallbackRel, fallbackSchemePayload(p), s.nowFunc())
	}

	rows := make([]map[string]any, 0, len(schemes))
	for _, sc := range schemes {
		rows = append(rows, map[string]any{
			"name":        sc.Name,
			"agency":      sc.Agency,
			"benefit":     sc.Benefit,
			"eligibility": sc.Eligibility,
			"apply_url":   sc.ApplyURL,
		})
	}

	payload := map[string]any{
		"state":   s.stateFor(p.Location),
		"schemes": rows,
	}

	return model.ProviderResult{
		Source:      "agridata-schemes",
		Payload:     payload,
		FetchedAt:   s.nowFunc(),
		Reliability: schemeLiveReliability,
		Origin:      model.OriginLive,
	}
}

// stateFor maps a city to its state so scheme filters match the catalogue,
// which is organised by state rather than by city.
func (s *Scheme) stateFor(location string) string {
	if place, ok := classify.LookupPlace(location); ok {
		return place.State
	}
	return location
}

func (s *Scheme) fetchLive(ctx context.Context, p Params) ([]agridata.Scheme, error) {
	if err := s.breaker.Allow(); err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := agridata.SchemeQuery{State: s.stateFor(p.Location), Crop: p.Crop}
	schemes, err := resilience.Retry(ctx, s.retry, func(ctx context.Context) ([]agridata.Scheme, error) {
		out, err := s.client.Schemes(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, errNoData
		}
		return out, nil
	})
	s.breaker.Record(err)
	return schemes, err
}
