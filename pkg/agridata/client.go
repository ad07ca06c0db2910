// Package agridata is a client for the crop advisory and scheme catalogue
// endpoints of the agridata service.
package agridata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://agridata.kisanmitra.in"

// Client fetches crop recommendations and government scheme listings.
type Client interface {
	Recommendations(ctx context.Context, query RecommendationQuery) ([]CropRecommendation, error)
	Schemes(ctx context.Context, query SchemeQuery) ([]Scheme, error)
}

// RecommendationQuery filters the crop advisory endpoint.
type RecommendationQuery struct {
	Region string
	Season string
}

// CropRecommendation is one advisory row for a region and season.
type CropRecommendation struct {
	Crop         string  `json:"crop"`
	Season       string  `json:"season"`
	Region       string  `json:"region"`
	SoilType     string  `json:"soil_type"`
	WaterNeed    string  `json:"water_need"`
	YieldQtlAcre float64 `json:"yield_qtl_per_acre"`
	Notes        string  `json:"notes"`
}

// SchemeQuery filters the scheme catalogue.
type SchemeQuery struct {
	State string
	Crop  string
}

// Scheme is one government support programme.
type Scheme struct {
	Name        string `json:"name"`
	Agency      string `json:"agency"`
	Benefit     string `json:"benefit"`
	Eligibility string `json:"eligibility"`
	ApplyURL    string `json:"apply_url"`
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an agridata client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
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

func (c *httpClient) Recommendations(ctx context.Context, query RecommendationQuery) ([]CropRecommendation, error) {
	params := url.Values{}
	if query.Region != "" {
		params.Set("region", query.Region)
	}
	if query.Season != "" {
		params.Set("season", query.Season)
	}

	var result struct {
		Recommendations []CropRecommendation `json:"recommendations"`
	}
	if err := c.get(ctx, "/v1/crops/recommendations", params, &result); err != nil {
		return nil, err
	}
	return result.Recommendations, nil
}

func (c *httpClient) Schemes(ctx context.Context, query SchemeQuery) ([]Scheme, error) {
	params := url.Values{}
	if query.State != "" {
		params.Set("state", query.State)
	}
	if query.Crop != "" {
		params.Set("crop", query.Crop)
	}

	var result struct {
		Schemes []Scheme `json:"schemes"`
	}
	if err := c.get(ctx, "/v1/schemes", params, &result); err != nil {
		return nil, err
	}
	return result.Schemes, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eris.Wrapf(err, "agridata: create request for %s", path)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "agridata: send request to %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "agridata: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("agridata: unexpected status %d from %s: %s", resp.StatusCode, path, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "agridata: unmarshal response")
	}
	return nil
}
