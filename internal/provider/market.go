package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/resilience"
	"github.com/kisanmitra/advisor/pkg/agmarknet"
)

const marketLiveReliability = 0.85

// Market serves mandi prices from the data.gov.in daily price dataset.
type Market struct {
	client      agmarknet.Client
	limiter     *rate.Limiter
	breaker     *resilience.Breaker
	retry       resilience.RetryConfig
	fallbackRel float64
	nowFunc     func() time.Time

	titler cases.Caser
}

// NewMarket creates the market price provider.
func NewMarket(client agmarknet.Client, fallbackReliability float64) *Market {
	return &Market{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(2), 5),
		breaker:     resilience.NewBreaker(0, 0),
		retry:       resilience.DefaultRetryConfig(),
		fallbackRel: fallbackReliability,
		nowFunc:     time.Now,
		titler:      cases.Title(language.English),
	}
}

// WithNow sets the clock for testing.
func (m *Market) WithNow(fn func() time.Time) *Market {
	m.nowFunc = fn
	return m
}

func (m *Market) Category() Category { return CategoryMarket }

func (m *Market) Fetch(ctx context.Context, p Params) model.ProviderResult {
	records, err := m.fetchLive(ctx, p)
	if err != nil {
		zap.L().Warn("market provider degraded to fallback",
			zap.String("commodity", p.Crop),
			zap.Error(err),
		)
		return fallbackResult("agmarknet", m.fallbackRel, fallbackMarketPayload(p), m.nowFunc())
	}

	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]any{
			"market":                 r.Market,
			"state":                  r.State,
			"variety":                r.Variety,
			"arrival_date":           r.ArrivalDate,
			"modal_price_rs_per_qtl": r.ModalPriceValue(),
		})
	}

	payload := map[string]any{
		"commodity": p.Crop,
		"prices":    rows,
	}

	return model.ProviderResult{
		Source:      "agmarknet",
		Payload:     payload,
		FetchedAt:   m.nowFunc(),
		Reliability: marketLiveReliability,
		Origin:      model.OriginLive,
	}
}

func (m *Market) fetchLive(ctx context.Context, p Params) ([]agmarknet.PriceRecord, error) {
	if err := m.breaker.Allow(); err != nil {
		return nil, err
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// The dataset titles commodities and markets ("Wheat", "Delhi").
	query := agmarknet.PriceQuery{
		Commodity: m.titler.String(p.Crop),
		Market:    m.titler.String(p.Location),
	}

	records, err := resilience.Retry(ctx, m.retry, func(ctx context.Context) ([]agmarknet.PriceRecord, error) {
		recs, err := m.client.Prices(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, errNoData
		}
		return recs, nil
	})
	m.breaker.Record(err)
	return records, err
}
