package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/resilience"
	"github.com/kisanmitra/advisor/pkg/agridata"
)

const cropLiveReliability = 0.8

// Crop serves region and season crop advisories from the agridata service.
type Crop struct {
	client      agridata.Client
	limiter     *rate.Limiter
	breaker     *resilience.Breaker
	retry       resilience.RetryConfig
	fallbackRel float64
	nowFunc     func() time.Time
}

// NewCrop creates the crop advisory provider.
func NewCrop(client agridata.Client, fallbackReliability float64) *Crop {
	return &Crop{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(2), 5),
		breaker:     resilience.NewBreaker(0, 0),
		retry:       resilience.DefaultRetryConfig(),
		fallbackRel: fallbackReliability,
		nowFunc:     time.Now,
	}
}

// WithNow sets the clock for testing.
func (c *Crop) WithNow(fn func() time.Time) *Crop {
	c.nowFunc = fn
	return c
}

func (c *Crop) Category() Category { return CategoryCrop }

func (c *Crop) Fetch(ctx context.Context, p Params) model.ProviderResult {
	recs, err := c.fetchLive(ctx, p)
	if err != nil {
		zap.L().Warn("crop provider degraded to fallback",
			zap.String("region", p.Location),
			zap.String("season", p.Season),
			zap.Error(err),
		)
		return fallbackResult("agridata-crops", c.fallbackRel, fallbackCropPayload(p), c.nowFunc())
	}

	rows := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, map[string]any{
			"crop":               r.Crop,
			"season":             r.Season,
			"soil_type":          r.SoilType,
			"water_need":         r.WaterNeed,
			"yield_qtl_per_acre": r.YieldQtlAcre,
			"notes":              r.Notes,
		})
	}

	payload := map[string]any{
		"region":          p.Location,
		"season":          p.Season,
		"recommendations": rows,
	}

	return model.ProviderResult{
		Source:      "agridata-crops",
		Payload:     payload,
		FetchedAt:   c.nowFunc(),
		Reliability: cropLiveReliability,
		Origin:      model.OriginLive,
	}
}

func (c *Crop) fetchLive(ctx context.Context, p Params) ([]agridata.CropRecommendation, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := agridata.RecommendationQuery{Region: p.Location, Season: p.Season}
	recs, err := resilience.Retry(ctx, c.retry, func(ctx context.Context) ([]agridata.CropRecommendation, error) {
		out, err := c.client.Recommendations(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, errNoData
		}
		return out, nil
	})
	c.breaker.Record(err)
	return recs, err
}
