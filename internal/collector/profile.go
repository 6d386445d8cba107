package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"MomentumWatch/internal/metrics"
	"MomentumWatch/internal/model"
)

const fundamentalsProvider = "fundamentals"

// ProfileClient implements ProfileFetcher against the fundamentals provider.
type ProfileClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	metrics *metrics.Metrics
}

// NewProfileClient creates a client with optional proxy support. m may be nil.
func NewProfileClient(baseURL, apiKey, proxyURL string, m *metrics.Metrics) *ProfileClient {
	return &ProfileClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		metrics: m,
	}
}

// profile is the provider's JSON shape.
type profile struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Exchange          string  `json:"exchange"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	MktCap            float64 `json:"mktCap"`
	FloatShares       float64 `json:"floatShares"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
	VolAvg            float64 `json:"volAvg"`
}

func (p profile) toModel() model.Fundamentals {
	exchange := p.ExchangeShortName
	if exchange == "" {
		exchange = p.Exchange
	}
	return model.Fundamentals{
		Symbol:            strings.ToUpper(p.Symbol),
		CompanyName:       p.CompanyName,
		Exchange:          exchange,
		Sector:            p.Sector,
		Industry:          p.Industry,
		MarketCap:         p.MktCap,
		FloatShares:       p.FloatShares,
		SharesOutstanding: p.SharesOutstanding,
		AvgVolume:         p.VolAvg,
	}
}

// FetchProfile returns the first profile for symbol. An empty array is found=false.
func (c *ProfileClient) FetchProfile(ctx context.Context, symbol string) (model.Fundamentals, bool, error) {
	q := url.Values{"symbol": {strings.ToUpper(symbol)}, "apikey": {c.APIKey}}
	endpoint := c.BaseURL + "/profile?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Fundamentals{}, false, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		c.metrics.FetchError(fundamentalsProvider, "transient")
		return model.Fundamentals{}, false, fmt.Errorf("fetch profile %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
		serr := &StatusError{Provider: fundamentalsProvider, Endpoint: "/profile", Code: resp.StatusCode, Body: truncate(body)}
		c.metrics.FetchError(fundamentalsProvider, errorKind(serr))
		return model.Fundamentals{}, false, serr
	}

	var profiles []profile
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		return model.Fundamentals{}, false, fmt.Errorf("decode profile %s: %w", symbol, err)
	}
	if len(profiles) == 0 {
		return model.Fundamentals{}, false, nil
	}
	f := profiles[0].toModel()
	if f.Symbol == "" {
		f.Symbol = strings.ToUpper(symbol)
	}
	return f, true, nil
}
