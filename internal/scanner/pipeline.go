// Package scanner runs one fetch → enrich → derive → rank cycle.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"MomentumWatch/internal/calculator"
	"MomentumWatch/internal/collector"
	"MomentumWatch/internal/model"
	"MomentumWatch/internal/strategy"
)

const (
	DefaultViewLimit   = 25
	DefaultConcurrency = 5

	gapThreshold      = 4.0
	momentumThreshold = 5.0
	rvolThreshold     = 1.5
)

// FundamentalsSource returns whatever fundamentals it can for symbols.
// Missing symbols are simply absent; it never fails.
type FundamentalsSource interface {
	Get(ctx context.Context, symbols []string, concurrency int) map[string]model.Fundamentals
}

// Pipeline turns a gainers snapshot into the three ranked views.
type Pipeline struct {
	Quotes       collector.QuoteSource
	Fundamentals FundamentalsSource
	Source       model.Source
	ViewLimit    int
	Concurrency  int
}

// New creates a Pipeline with default limits.
func New(quotes collector.QuoteSource, fund FundamentalsSource, source model.Source) *Pipeline {
	return &Pipeline{
		Quotes:       quotes,
		Fundamentals: fund,
		Source:       source,
		ViewLimit:    DefaultViewLimit,
		Concurrency:  DefaultConcurrency,
	}
}

// RunCycle performs one scan. prev may be nil. A snapshot failure, including
// collector.ErrPlanRestricted, is returned wrapped but otherwise untouched;
// deciding what to show instead is the caller's business.
func (p *Pipeline) RunCycle(ctx context.Context, prev *model.ScanResult) (*model.ScanResult, error) {
	tickers, err := p.Quotes.Gainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s snapshot: %w", p.Quotes.Name(), err)
	}

	previous := prev.Union()

	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, t.Symbol)
	}
	fund := p.Fundamentals.Get(ctx, symbols, p.Concurrency)
	// A cancelled Get returns whatever it had; that is not a full scan.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fundamentals: %w", err)
	}

	valid := make([]model.DerivedRecord, 0, len(tickers))
	for _, t := range tickers {
		var prevRec *model.DerivedRecord
		if r, ok := previous[t.Symbol]; ok {
			prevRec = &r
		}
		var f *model.Fundamentals
		if v, ok := fund[t.Symbol]; ok {
			f = &v
		}
		rec := calculator.Derive(t, prevRec, f)
		if rec.Price <= 0 || rec.Volume <= 0 {
			continue
		}
		valid = append(valid, rec)
	}

	limit := p.ViewLimit
	if limit <= 0 {
		limit = DefaultViewLimit
	}
	res := &model.ScanResult{
		Gappers:   Rank(valid, gapPercent, gapThreshold, limit),
		Momentum:  Rank(valid, changePercent, momentumThreshold, limit),
		HighRVol:  Rank(valid, relativeVolume, rvolThreshold, limit),
		Status:    model.StatusDelayed,
		Source:    p.Source,
		Universe:  len(valid),
		ScannedAt: time.Now(),
	}

	log.Debug().
		Int("tickers", len(tickers)).
		Int("valid", len(valid)).
		Int("fundamentals", len(fund)).
		Msg("scan cycle complete")
	return res, nil
}

func gapPercent(r *model.DerivedRecord) float64     { return r.GapPercent }
func changePercent(r *model.DerivedRecord) float64  { return r.ChangePercent }
func relativeVolume(r *model.DerivedRecord) float64 { return r.RelativeVolume }

// Rank keeps records whose key exceeds threshold, sorted by key descending,
// capped at limit. If none qualify it falls back to the first limit records
// in their original order so a view is never empty while data exists.
func Rank(records []model.DerivedRecord, key func(*model.DerivedRecord) float64, threshold float64, limit int) []model.DerivedRecord {
	var out []model.DerivedRecord
	for i := range records {
		if key(&records[i]) > threshold {
			out = append(out, records[i])
		}
	}
	if len(out) == 0 {
		n := len(records)
		if n > limit {
			n = limit
		}
		return append([]model.DerivedRecord(nil), records[:n]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return key(&out[i]) > key(&out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SetupsOnly filters a view down to qualifying records.
func SetupsOnly(records []model.DerivedRecord) []model.DerivedRecord {
	out := make([]model.DerivedRecord, 0, len(records))
	for i := range records {
		if strategy.MatchesSetupCriteria(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
