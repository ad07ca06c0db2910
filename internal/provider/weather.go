package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kisanmitra/advisor/internal/classify"
	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/resilience"
	"github.com/kisanmitra/advisor/pkg/openmeteo"
)

const weatherLiveReliability = 0.9

// Delhi. Used when the query names no resolvable location.
const (
	defaultLat = 28.70
	defaultLon = 77.10
)

// Weather serves forecasts from Open-Meteo.
type Weather struct {
	client      openmeteo.Client
	limiter     *rate.Limiter
	breaker     *resilience.Breaker
	retry       resilience.RetryConfig
	fallbackRel float64
	nowFunc     func() time.Time
}

// NewWeather creates the weather provider.
func NewWeather(client openmeteo.Client, fallbackReliability float64) *Weather {
	return &Weather{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(5), 10),
		breaker:     resilience.NewBreaker(0, 0),
		retry:       resilience.DefaultRetryConfig(),
		fallbackRel: fallbackReliability,
		nowFunc:     time.Now,
	}
}

// WithNow sets the clock for testing.
func (w *Weather) WithNow(fn func() time.Time) *Weather {
	w.nowFunc = fn
	return w
}

func (w *Weather) Category() Category { return CategoryWeather }

func (w *Weather) Fetch(ctx context.Context, p Params) model.ProviderResult {
	fc, err := w.fetchLive(ctx, p)
	if err != nil {
		zap.L().Warn("weather provider degraded to fallback",
			zap.String("location", p.Location),
			zap.Error(err),
		)
		return fallbackResult("open-meteo", w.fallbackRel, fallbackWeatherPayload(p), w.nowFunc())
	}

	payload := map[string]any{
		"location": p.Location,
		"current": map[string]any{
			"temperature_c":    fc.Current.TemperatureC,
			"humidity_pct":     fc.Current.HumidityPct,
			"precipitation_mm": fc.Current.RainMM,
			"weather_code":     fc.Current.WeatherCode,
		},
		"daily": map[string]any{
			"dates":             fc.Daily.Dates,
			"precipitation_mm":  fc.Daily.PrecipitationMM,
			"temperature_max_c": fc.Daily.TemperatureMaxC,
			"temperature_min_c": fc.Daily.TemperatureMinC,
		},
	}

	return model.ProviderResult{
		Source:      "open-meteo",
		Payload:     payload,
		FetchedAt:   w.nowFunc(),
		Reliability: weatherLiveReliability,
		Origin:      model.OriginLive,
	}
}

func (w *Weather) fetchLive(ctx context.Context, p Params) (*openmeteo.Forecast, error) {
	if err := w.breaker.Allow(); err != nil {
		return nil, err
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	lat, lon := defaultLat, defaultLon
	if place, ok := classify.LookupPlace(p.Location); ok {
		lat, lon = place.Lat, place.Lon
	}

	fc, err := resilience.Retry(ctx, w.retry, func(ctx context.Context) (*openmeteo.Forecast, error) {
		return w.client.Forecast(ctx, lat, lon)
	})
	w.breaker.Record(err)
	return fc, err
}
