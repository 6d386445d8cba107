package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"MomentumWatch/internal/calculator"
	"MomentumWatch/internal/collector"
	"MomentumWatch/internal/config"
	"MomentumWatch/internal/fundamentals"
	"MomentumWatch/internal/metrics"
	"MomentumWatch/internal/model"
	"MomentumWatch/internal/scanner"
	"MomentumWatch/internal/store"
)

// app holds the components shared by every command.
type app struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	quotes   *collector.QuotesClient
	store    store.Store
	fund     *fundamentals.Client
	live     *scanner.Pipeline
	demo     *scanner.Pipeline // nil unless demo.enabled
}

func newApp(ctx context.Context, c *config.Config) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	quotes := collector.NewQuotesClient(c.Quotes.BaseURL, c.Quotes.APIKey, c.Proxy, m)
	profiles := collector.NewProfileClient(c.Fundamentals.BaseURL, c.Fundamentals.APIKey, c.Proxy, m)
	fund := fundamentals.New(ctx, profiles, st,
		fundamentals.WithMaxAge(c.Fundamentals.MaxAge),
		fundamentals.WithGroupDelay(c.Fundamentals.GroupDelay),
		fundamentals.WithMetrics(m),
	)

	a := &app{
		registry: reg,
		metrics:  m,
		quotes:   quotes,
		store:    st,
		fund:     fund,
		live:     newPipeline(c, quotes, fund, model.SourceProvider),
	}

	if c.Demo.Enabled {
		src := collector.NewDemoSource(c.Demo.Seed, c.Demo.Symbols)
		demoFund := fundamentals.New(ctx, src, store.NewMemoryStore(), fundamentals.WithGroupDelay(0))
		a.demo = newPipeline(c, src, demoFund, model.SourceDemo)
	}
	return a, nil
}

func newPipeline(c *config.Config, q collector.QuoteSource, f scanner.FundamentalsSource, src model.Source) *scanner.Pipeline {
	p := scanner.New(q, f, src)
	if c.Scanner.ViewLimit > 0 {
		p.ViewLimit = c.Scanner.ViewLimit
	}
	if c.Fundamentals.Concurrency > 0 {
		p.Concurrency = c.Fundamentals.Concurrency
	}
	return p
}

func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Cache.Backend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, c.Cache.Redis.Addr, c.Cache.Redis.Password, c.Cache.Redis.DB, c.Cache.Redis.Key)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		log.Info().Str("addr", c.Cache.Redis.Addr).Msg("fundamentals cache: redis")
		return rs, nil
	case "memory":
		log.Info().Msg("fundamentals cache: memory")
		return store.NewMemoryStore(), nil
	default:
		log.Info().Str("path", c.Cache.Path).Msg("fundamentals cache: file")
		return store.NewFileStore(c.Cache.Path), nil
	}
}

// scanOnce runs the live pipeline, falling back to demo data on a plan
// restriction when demo mode is configured.
func (a *app) scanOnce(ctx context.Context) (*model.ScanResult, error) {
	res, err := a.live.RunCycle(ctx, nil)
	if err != nil && errors.Is(err, collector.ErrPlanRestricted) && a.demo != nil {
		log.Warn().Err(err).Msg("quotes plan restricted, using demo data")
		return a.demo.RunCycle(ctx, nil)
	}
	return res, err
}

// lookupSymbol fetches one symbol outside the scan cycle and derives its
// record against prev, which may be nil.
func (a *app) lookupSymbol(ctx context.Context, symbol string, prev *model.DerivedRecord) (model.DerivedRecord, bool, error) {
	t, found, err := a.quotes.Ticker(ctx, symbol)
	if err != nil || !found {
		return model.DerivedRecord{}, found, err
	}
	var f *model.Fundamentals
	if v, ok := a.fund.Get(ctx, []string{t.Symbol}, 1)[t.Symbol]; ok {
		f = &v
	}
	return calculator.Derive(t, prev, f), true, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("close cache store")
	}
}
