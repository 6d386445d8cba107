package collector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"MomentumWatch/internal/model"
)

// DemoSource returns synthetic but plausible small-cap movers. It stands in
// for the provider when the account plan does not include snapshot data.
type DemoSource struct {
	mu      sync.Mutex
	rng     *rand.Rand
	symbols []string
	state   map[string]*demoSymbol
}

type demoSymbol struct {
	prevClose  float64
	open       float64
	last       float64
	high       float64
	low        float64
	volume     float64
	prevVolume float64
	float      float64
	sector     string
}

var demoSectors = []string{"Technology", "Healthcare", "Energy", "Financial Services", "Consumer Cyclical"}

// NewDemoSource creates a generator over count symbols. The same seed
// produces the same sequence.
func NewDemoSource(seed int64, count int) *DemoSource {
	d := &DemoSource{
		rng:   rand.New(rand.NewSource(seed)),
		state: make(map[string]*demoSymbol, count),
	}
	for i := 0; i < count; i++ {
		sym := demoSymbolName(i)
		d.symbols = append(d.symbols, sym)
		d.state[sym] = d.newSymbol()
	}
	return d
}

func demoSymbolName(i int) string {
	return fmt.Sprintf("DM%c%c", 'A'+rune(i/26%26), 'A'+rune(i%26))
}

func (d *DemoSource) newSymbol() *demoSymbol {
	prevClose := 1 + d.rng.Float64()*24
	gap := -0.02 + d.rng.Float64()*0.30
	open := prevClose * (1 + gap)
	prevVolume := 200_000 + d.rng.Float64()*2_000_000
	return &demoSymbol{
		prevClose:  prevClose,
		open:       open,
		last:       open,
		high:       open,
		low:        open,
		volume:     prevVolume * (0.5 + d.rng.Float64()*8),
		prevVolume: prevVolume,
		float:      2_000_000 + d.rng.Float64()*60_000_000,
		sector:     demoSectors[d.rng.Intn(len(demoSectors))],
	}
}

func (d *DemoSource) Name() string { return "demo" }

// Gainers advances every symbol one random step and returns the snapshot.
func (d *DemoSource) Gainers(_ context.Context) ([]model.Ticker, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UnixNano()
	out := make([]model.Ticker, 0, len(d.symbols))
	for _, sym := range d.symbols {
		s := d.state[sym]
		s.last *= 1 + (d.rng.Float64()-0.45)*0.04
		if s.last > s.high {
			s.high = s.last
		}
		if s.last < s.low {
			s.low = s.last
		}
		s.volume += s.prevVolume * d.rng.Float64() * 0.2

		out = append(out, model.Ticker{
			Symbol:        sym,
			Change:        s.last - s.prevClose,
			ChangePercent: (s.last - s.prevClose) / s.prevClose * 100,
			Updated:       now,
			Day: model.Bar{
				Open:   s.open,
				High:   s.high,
				Low:    s.low,
				Close:  s.last,
				Volume: s.volume,
				VWAP:   (s.open + s.high + s.low + s.last) / 4,
			},
			PrevDay: model.Bar{Close: s.prevClose, Volume: s.prevVolume},
		})
	}
	return out, nil
}

// FetchProfile serves synthetic fundamentals for demo symbols.
func (d *DemoSource) FetchProfile(_ context.Context, symbol string) (model.Fundamentals, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.state[symbol]
	if !ok {
		return model.Fundamentals{}, false, nil
	}
	return model.Fundamentals{
		Symbol:      symbol,
		CompanyName: symbol + " Demo Corp",
		Exchange:    "DEMO",
		Sector:      s.sector,
		MarketCap:   s.float * s.prevClose * 1.3,
		FloatShares: s.float,
		AvgVolume:   s.prevVolume,
	}, true, nil
}
