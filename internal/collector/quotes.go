package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"MomentumWatch/internal/metrics"
	"MomentumWatch/internal/model"
)

const quotesProvider = "quotes"

// QuotesClient implements the market snapshot endpoints of the quotes provider.
type QuotesClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	breaker  *gobreaker.CircuitBreaker
	planOnce sync.Once
	metrics  *metrics.Metrics
}

// NewQuotesClient creates a client with optional proxy support. m may be nil.
func NewQuotesClient(baseURL, apiKey, proxyURL string, m *metrics.Metrics) *QuotesClient {
	st := gobreaker.Settings{
		Name:     quotesProvider,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Plan restriction and not-found are answers, not outages; a
		// cancelled caller says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrPlanRestricted) || errors.Is(err, errNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &QuotesClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		breaker: gobreaker.NewCircuitBreaker(st),
		metrics: m,
	}
}

func (c *QuotesClient) Name() string { return quotesProvider }

type tickersResponse struct {
	Status  string         `json:"status"`
	Tickers []model.Ticker `json:"tickers"`
}

type snapshotResponse struct {
	Status string        `json:"status"`
	Ticker *model.Ticker `json:"ticker"`
}

type searchResponse struct {
	Status  string               `json:"status"`
	Results []model.SearchResult `json:"results"`
}

// Gainers returns the provider's top gainers snapshot.
func (c *QuotesClient) Gainers(ctx context.Context) ([]model.Ticker, error) {
	var resp tickersResponse
	if err := c.get(ctx, "/gainers", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch gainers: %w", err)
	}
	return resp.Tickers, nil
}

// Losers returns the provider's top losers snapshot.
func (c *QuotesClient) Losers(ctx context.Context) ([]model.Ticker, error) {
	var resp tickersResponse
	if err := c.get(ctx, "/losers", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch losers: %w", err)
	}
	return resp.Tickers, nil
}

// Ticker looks up one symbol. An unknown symbol is found=false with a nil error.
func (c *QuotesClient) Ticker(ctx context.Context, symbol string) (model.Ticker, bool, error) {
	var resp snapshotResponse
	err := c.get(ctx, "/snapshot/"+url.PathEscape(strings.ToUpper(symbol)), nil, &resp)
	if errors.Is(err, errNotFound) {
		return model.Ticker{}, false, nil
	}
	if err != nil {
		return model.Ticker{}, false, fmt.Errorf("fetch snapshot %s: %w", symbol, err)
	}
	if resp.Ticker == nil {
		return model.Ticker{}, false, nil
	}
	return *resp.Ticker, true, nil
}

// Search finds symbols matching query.
func (c *QuotesClient) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	var resp searchResponse
	if err := c.get(ctx, "/search", url.Values{"query": {query}}, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return resp.Results, nil
}

func (c *QuotesClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.APIKey)
	endpoint := c.BaseURL + path + "?" + query.Encode()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, path, endpoint, out)
	})
	if err == nil {
		return nil
	}

	kind := errorKind(err)
	if kind == "not_found" || errors.Is(err, context.Canceled) {
		return err
	}
	c.metrics.FetchError(quotesProvider, kind)
	if kind == "plan_restricted" {
		c.planOnce.Do(func() {
			log.Warn().Str("endpoint", path).Msg("quotes provider returned 403: current plan does not include this data")
		})
		return err
	}
	log.Error().Err(err).Str("endpoint", path).Msg("quotes request failed")
	return err
}

func (c *QuotesClient) do(ctx context.Context, path, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
		return &StatusError{Provider: quotesProvider, Endpoint: path, Code: resp.StatusCode, Body: truncate(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
