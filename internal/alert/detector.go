// Package alert diffs consecutive scans into user-facing alerts.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"MomentumWatch/internal/model"
	"MomentumWatch/internal/strategy"
)

// Config holds detector thresholds.
type Config struct {
	SpikeThreshold  float64       // change% points gained between cycles
	VolumeThreshold float64       // relative volume level crossed upward
	MaxAlerts       int           // history kept for display
	HighlightTTL    time.Duration // how long a symbol stays highlighted
}

func DefaultConfig() Config {
	return Config{
		SpikeThreshold:  3,
		VolumeThreshold: 10,
		MaxAlerts:       30,
		HighlightTTL:    30 * time.Second,
	}
}

// Detector keeps a capped, newest-first alert history and per-symbol
// highlight deadlines. It is safe for concurrent use.
type Detector struct {
	cfg   Config
	now   func() time.Time
	newID func() string

	mu         sync.Mutex
	recent     []model.Alert
	highlights map[string]time.Time
}

func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = def.MaxAlerts
	}
	if cfg.HighlightTTL <= 0 {
		cfg.HighlightTTL = def.HighlightTTL
	}
	return &Detector{
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
		highlights: make(map[string]time.Time),
	}
}

// Detect compares two scans and returns the alerts raised by next. With no
// previous scan there is nothing to compare and no alerts are raised.
func (d *Detector) Detect(prev, next *model.ScanResult) []model.Alert {
	if prev == nil || next == nil {
		return nil
	}
	before := prev.Union()
	now := d.now()

	var alerts []model.Alert
	for _, rec := range orderedUnion(next) {
		old, existed := before[rec.Symbol]
		if !existed {
			if strategy.MatchesSetupCriteria(&rec) {
				alerts = append(alerts, d.alert(model.AlertNewMover, rec.Symbol, now,
					"%s new qualifying mover: gap %+.1f%%, %.1fx RVol at $%.2f",
					rec.Symbol, rec.GapPercent, rec.RelativeVolume, rec.Price))
			}
			continue
		}
		if delta := rec.ChangePercent - old.ChangePercent; delta > d.cfg.SpikeThreshold {
			alerts = append(alerts, d.alert(model.AlertSpike, rec.Symbol, now,
				"%s spiked %+.1f pts to %+.1f%%", rec.Symbol, delta, rec.ChangePercent))
		}
		if old.RelativeVolume < d.cfg.VolumeThreshold && rec.RelativeVolume >= d.cfg.VolumeThreshold {
			alerts = append(alerts, d.alert(model.AlertVolumeSpike, rec.Symbol, now,
				"%s volume spike: %.1fx relative volume", rec.Symbol, rec.RelativeVolume))
		}
	}

	if len(alerts) > 0 {
		d.record(alerts, now)
	}
	return alerts
}

func (d *Detector) alert(kind model.AlertType, symbol string, now time.Time, format string, args ...any) model.Alert {
	return model.Alert{
		ID:        d.newID(),
		Type:      kind,
		Symbol:    symbol,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: now,
	}
}

func (d *Detector) record(alerts []model.Alert, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	merged := make([]model.Alert, 0, len(alerts)+len(d.recent))
	for i := len(alerts) - 1; i >= 0; i-- {
		merged = append(merged, alerts[i])
		d.highlights[alerts[i].Symbol] = now.Add(d.cfg.HighlightTTL)
	}
	merged = append(merged, d.recent...)
	if len(merged) > d.cfg.MaxAlerts {
		merged = merged[:d.cfg.MaxAlerts]
	}
	d.recent = merged
}

// Seed replaces the history with alerts persisted by an earlier run. alerts
// must be newest first. Seeded alerts do not highlight their symbols.
func (d *Detector) Seed(alerts []model.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(alerts) > d.cfg.MaxAlerts {
		alerts = alerts[:d.cfg.MaxAlerts]
	}
	d.recent = append([]model.Alert(nil), alerts...)
}

// Recent returns the alert history, newest first.
func (d *Detector) Recent() []model.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Alert(nil), d.recent...)
}

// Highlighted reports whether symbol had an alert within the highlight TTL.
func (d *Detector) Highlighted(symbol string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.highlights[symbol]
	if !ok {
		return false
	}
	if !d.now().Before(until) {
		delete(d.highlights, symbol)
		return false
	}
	return true
}

// Highlights lists the currently highlighted symbols and drops expired ones.
func (d *Detector) Highlights() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	var out []string
	for sym, until := range d.highlights {
		if now.Before(until) {
			out = append(out, sym)
		} else {
			delete(d.highlights, sym)
		}
	}
	return out
}

// orderedUnion lists each symbol of the scan once, in view order.
func orderedUnion(s *model.ScanResult) []model.DerivedRecord {
	seen := make(map[string]struct{})
	var out []model.DerivedRecord
	for _, list := range [][]model.DerivedRecord{s.Gappers, s.Momentum, s.HighRVol} {
		for _, r := range list {
			if _, ok := seen[r.Symbol]; ok {
				continue
			}
			seen[r.Symbol] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
