// Package agmarknet fetches mandi commodity prices from the data.gov.in
// daily price resource.
package agmarknet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.data.gov.in/resource"
	// resourceID is the data.gov.in identifier of the daily mandi price dataset.
	resourceID = "9ef84268-d588-465a-a308-a864a43d0070"
)

// Client fetches commodity prices.
type Client interface {
	Prices(ctx context.Context, query PriceQuery) ([]PriceRecord, error)
}

// PriceQuery filters the daily price dataset.
type PriceQuery struct {
	Commodity string
	Market    string
	State     string
	Limit     int
}

// PriceRecord is one mandi price row. The upstream serves numeric fields as
// strings; ModalPrice converts on demand.
type PriceRecord struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	ArrivalDate string `json:"arrival_date"`
	MinPriceRs  string `json:"min_price"`
	MaxPriceRs  string `json:"max_price"`
	ModalPrice  string `json:"modal_price"`
}

// ModalPriceValue returns the modal price in rupees per quintal, or 0 when
// the upstream field is not numeric.
func (r PriceRecord) ModalPriceValue() float64 {
	v, err := strconv.ParseFloat(r.ModalPrice, 64)
	if err != nil {
		return 0
	}
	return v
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

// NewClient creates an Agmarknet price client.
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

func (c *httpClient) Prices(ctx context.Context, query PriceQuery) ([]PriceRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	if query.Commodity != "" {
		params.Set("filters[commodity]", query.Commodity)
	}
	if query.Market != "" {
		params.Set("filters[market]", query.Market)
	}
	if query.State != "" {
		params.Set("filters[state]", query.State)
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, resourceID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "agmarknet: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "agmarknet: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "agmarknet: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("agmarknet: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Records []PriceRecord `json:"records"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "agmarknet: unmarshal response")
	}

	return result.Records, nil
}
