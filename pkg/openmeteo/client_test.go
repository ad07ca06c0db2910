package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "28.70", r.URL.Query().Get("latitude"))
		assert.Equal(t, "77.10", r.URL.Query().Get("longitude"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"current": {"temperature_2m": 31.4, "relative_humidity_2m": 58, "precipitation": 0.2, "weather_code": 61},
			"daily": {
				"time": ["2026-06-01","2026-06-02","2026-06-03"],
				"precipitation_sum": [1.2, 0, 4.5],
				"temperature_2m_max": [34.1, 35.0, 32.2],
				"temperature_2m_min": [26.0, 26.4, 25.1]
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	fc, err := c.Forecast(context.Background(), 28.70, 77.10)
	require.NoError(t, err)

	assert.InDelta(t, 31.4, fc.Current.TemperatureC, 1e-9)
	assert.InDelta(t, 58, fc.Current.HumidityPct, 1e-9)
	assert.Len(t, fc.Daily.Dates, 3)
	assert.InDelta(t, 4.5, fc.Daily.PrecipitationMM[2], 1e-9)
}

func TestForecast_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Forecast(context.Background(), 20, 77)
	assert.Error(t, err)
}

func TestForecast_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Forecast(context.Background(), 20, 77)
	assert.Error(t, err)
}

func TestForecast_Unreachable(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"))
	_, err := c.Forecast(context.Background(), 20, 77)
	assert.Error(t, err)
}
