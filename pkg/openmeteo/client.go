// Package openmeteo is a minimal client for the Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.open-meteo.com"

// Client fetches weather forecasts.
type Client interface {
	Forecast(ctx context.Context, lat, lon float64) (*Forecast, error)
}

// Forecast is the subset of the Open-Meteo response the advisor uses.
type Forecast struct {
	Current CurrentWeather `json:"current"`
	Daily   DailyForecast  `json:"daily"`
}

// CurrentWeather holds the present conditions.
type CurrentWeather struct {
	TemperatureC float64 `json:"temperature_2m"`
	HumidityPct  float64 `json:"relative_humidity_2m"`
	RainMM       float64 `json:"precipitation"`
	WeatherCode  int     `json:"weather_code"`
}

// DailyForecast holds parallel per-day series.
type DailyForecast struct {
	Dates           []string  `json:"time"`
	PrecipitationMM []float64 `json:"precipitation_sum"`
	TemperatureMaxC []float64 `json:"temperature_2m_max"`
	TemperatureMinC []float64 `json:"temperature_2m_min"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an Open-Meteo client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	url := fmt.Sprintf(
		"%s/v1/forecast?latitude=%.2f&longitude=%.2f&current=temperature_2m,relative_humidity_2m,precipitation,weather_code&daily=precipitation_sum,temperature_2m_max,temperature_2m_min&forecast_days=3",
		c.baseURL, lat, lon,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "openmeteo: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openmeteo: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openmeteo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("openmeteo: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result Forecast
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "openmeteo: unmarshal response")
	}

	return &result, nil
}
