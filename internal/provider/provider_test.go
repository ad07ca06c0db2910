package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/resilience"
	"github.com/kisanmitra/advisor/pkg/agmarknet"
	"github.com/kisanmitra/advisor/pkg/agridata"
	"github.com/kisanmitra/advisor/pkg/anthropic"
	"github.com/kisanmitra/advisor/pkg/openmeteo"
)

const testFallbackRel = 0.3

// noRetry keeps failure-path tests from sleeping through backoff.
var noRetry = resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	w := NewWeather(openmeteo.NewClient(), testFallbackRel)
	r.Register(w)

	got, err := r.Get(CategoryWeather)
	require.NoError(t, err)
	assert.Equal(t, CategoryWeather, got.Category())

	_, err = r.Get(CategoryMarket)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCategoriesFor(t *testing.T) {
	assert.Equal(t, []Category{CategoryCrop, CategoryMarket, CategoryWeather}, CategoriesFor(model.IntentCropRecommendation))
	assert.Equal(t, []Category{CategoryWeather}, CategoriesFor(model.IntentWeather))
	assert.Equal(t, []Category{CategoryMarket}, CategoriesFor(model.IntentMarketPrice))
	assert.Equal(t, []Category{CategoryCrop, CategoryWeather}, CategoriesFor(model.IntentPestControl))
	assert.Equal(t, []Category{CategoryScheme}, CategoriesFor(model.IntentGovernmentScheme))
	assert.Equal(t, []Category{CategoryKnowledge}, CategoriesFor(model.IntentGeneralKnowledge))
	assert.Nil(t, CategoriesFor(model.IntentGreeting))
}

func TestWeather_Live(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Delhi's gazetteer coordinates, not the defaults.
		assert.NotEmpty(t, r.URL.Query().Get("latitude"))
		w.Write([]byte(`{
			"current": {"temperature_2m": 30.1, "relative_humidity_2m": 62, "precipitation": 0, "weather_code": 1},
			"daily": {"time": ["2026-06-01"], "precipitation_sum": [0], "temperature_2m_max": [34], "temperature_2m_min": [26]}
		}`))
	}))
	defer srv.Close()

	p := NewWeather(openmeteo.NewClient(openmeteo.WithBaseURL(srv.URL)), testFallbackRel)
	res := p.Fetch(context.Background(), Params{Location: "Delhi"})

	assert.Equal(t, model.OriginLive, res.Origin)
	assert.Equal(t, "open-meteo", res.Source)
	assert.InDelta(t, weatherLiveReliability, res.Reliability, 1e-9)
	assert.NotEmpty(t, res.Payload)
	assert.False(t, res.FetchedAt.IsZero())
}

func TestWeather_FallbackWellFormed(t *testing.T) {
	p := NewWeather(openmeteo.NewClient(openmeteo.WithBaseURL("http://127.0.0.1:1")), testFallbackRel)
	p.retry = noRetry

	res := p.Fetch(context.Background(), Params{Location: "Pune"})

	assert.Equal(t, model.OriginFallback, res.Origin)
	assert.Equal(t, "open-meteo", res.Source)
	assert.InDelta(t, testFallbackRel, res.Reliability, 1e-9)
	assert.NotEmpty(t, res.Payload, "fallback results must be fully populated")
	assert.False(t, res.FetchedAt.IsZero())
}

func TestMarket_Live(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Wheat", r.URL.Query().Get("filters[commodity]"))
		w.Write([]byte(`{"records": [
			{"market": "Delhi", "state": "NCT of Delhi", "variety": "Dara",
			 "arrival_date": "27/06/2026", "modal_price": "2410"}
		]}`))
	}))
	defer srv.Close()

	p := NewMarket(agmarknet.NewClient("k", agmarknet.WithBaseURL(srv.URL)), testFallbackRel)
	res := p.Fetch(context.Background(), Params{Crop: "wheat", Location: "delhi"})

	assert.Equal(t, model.OriginLive, res.Origin)
	assert.InDelta(t, marketLiveReliability, res.Reliability, 1e-9)
	prices, ok := res.Payload["prices"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, prices, 1)
	assert.InDelta(t, 2410, prices[0]["modal_price_rs_per_qtl"].(float64), 1e-9)
}

func TestMarket_EmptyRecordsFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": []}`))
	}))
	defer srv.Close()

	p := NewMarket(agmarknet.NewClient("k", agmarknet.WithBaseURL(srv.URL)), testFallbackRel)
	p.retry = noRetry

	res := p.Fetch(context.Background(), Params{Crop: "saffron"})

	assert.Equal(t, model.OriginFallback, res.Origin)
	assert.InDelta(t, testFallbackRel, res.Reliability, 1e-9)
	assert.NotEmpty(t, res.Payload)
}

func TestCrop_Live(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/crops/recommendations", r.URL.Path)
		w.Write([]byte(`{"recommendations": [
			{"crop": "wheat", "season": "rabi", "region": "Punjab", "yield_qtl_per_acre": 18.5}
		]}`))
	}))
	defer srv.Close()

	p := NewCrop(agridata.NewClient("k", agridata.WithBaseURL(srv.URL)), testFallbackRel)
	res := p.Fetch(context.Background(), Params{Location: "Punjab", Season: "rabi"})

	assert.Equal(t, model.OriginLive, res.Origin)
	assert.Equal(t, "agridata-crops", res.Source)
	assert.InDelta(t, cropLiveReliability, res.Reliability, 1e-9)
}

func TestCrop_FallbackWellFormed(t *testing.T) {
	p := NewCrop(agridata.NewClient("k", agridata.WithBaseURL("http://127.0.0.1:1")), testFallbackRel)
	p.retry = noRetry

	res := p.Fetch(context.Background(), Params{Location: "Nagpur", Season: "kharif"})

	assert.Equal(t, model.OriginFallback, res.Origin)
	assert.NotEmpty(t, res.Payload)
	assert.Contains(t, res.Payload, "options_by_season")
}

func TestScheme_Live_MapsCityToState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/schemes", r.URL.Path)
		assert.Equal(t, "Maharashtra", r.URL.Query().Get("state"))
		w.Write([]byte(`{"schemes": [{"name": "PM-KISAN", "benefit": "income support"}]}`))
	}))
	defer srv.Close()

	p := NewScheme(agridata.NewClient("k", agridata.WithBaseURL(srv.URL)), testFallbackRel)
	res := p.Fetch(context.Background(), Params{Location: "Pune"})

	assert.Equal(t, model.OriginLive, res.Origin)
	assert.Equal(t, "Maharashtra", res.Payload["state"])
}

func TestScheme_FallbackWellFormed(t *testing.T) {
	p := NewScheme(agridata.NewClient("k", agridata.WithBaseURL("http://127.0.0.1:1")), testFallbackRel)
	p.retry = noRetry

	res := p.Fetch(context.Background(), Params{Location: "Bhopal"})

	assert.Equal(t, model.OriginFallback, res.Origin)
	assert.Contains(t, res.Payload, "schemes")
}

type fakeAnthropicClient struct {
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestKnowledge_Live(t *testing.T) {
	client := &fakeAnthropicClient{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "Drip irrigation delivers water at the roots."}},
	}}

	p := NewKnowledge(client, "claude-haiku-4-5-20251001", 512, testFallbackRel)
	res := p.Fetch(context.Background(), Params{Query: "what is drip irrigation?"})

	assert.Equal(t, model.OriginLive, res.Origin)
	assert.Equal(t, "anthropic", res.Source)
	assert.Equal(t, "Drip irrigation delivers water at the roots.", res.Payload["answer"])
}

func TestKnowledge_FallbackOnError(t *testing.T) {
	p := NewKnowledge(&fakeAnthropicClient{err: eris.New("overloaded")}, "m", 512, testFallbackRel)
	p.retry = noRetry

	res := p.Fetch(context.Background(), Params{Query: "anything"})

	assert.Equal(t, model.OriginFallback, res.Origin)
	assert.InDelta(t, testFallbackRel, res.Reliability, 1e-9)
	assert.Contains(t, res.Payload, "answer")
}

func TestKnowledge_EmptyTextFallsBack(t *testing.T) {
	p := NewKnowledge(&fakeAnthropicClient{resp: &anthropic.MessageResponse{}}, "m", 512, testFallbackRel)
	p.retry = noRetry

	res := p.Fetch(context.Background(), Params{Query: "anything"})
	assert.Equal(t, model.OriginFallback, res.Origin)
}

func TestBreakerShortCircuitsAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWeather(openmeteo.NewClient(openmeteo.WithBaseURL(srv.URL)), testFallbackRel)
	p.retry = noRetry

	// Default breaker threshold is 5: after that the upstream is not called.
	for range 8 {
		res := p.Fetch(context.Background(), Params{Location: "Delhi"})
		assert.Equal(t, model.OriginFallback, res.Origin)
	}
	assert.Equal(t, 5, calls)
}
