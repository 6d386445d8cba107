package model

import "time"

// Status describes the freshness of the data on screen.
type Status string

const (
	StatusLive    Status = "live"
	StatusDelayed Status = "delayed"
	StatusOffline Status = "offline"
)

// Source names where a scan's snapshot came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceDemo     Source = "demo"
)

// View names one of the three ranked lists of a scan.
type View string

const (
	ViewGappers  View = "gappers"
	ViewMomentum View = "momentum"
	ViewHighRVol View = "high_rvol"
)

// ScanResult is the output of one pipeline cycle.
type ScanResult struct {
	Gappers   []DerivedRecord `json:"gappers"`
	Momentum  []DerivedRecord `json:"momentum"`
	HighRVol  []DerivedRecord `json:"high_rvol"`
	Status    Status          `json:"status"`
	Source    Source          `json:"source"`
	Universe  int             `json:"universe"`
	ScannedAt time.Time       `json:"scanned_at"`
}

// View returns the named list, or nil for an unknown name.
func (s *ScanResult) View(v View) []DerivedRecord {
	if s == nil {
		return nil
	}
	switch v {
	case ViewGappers:
		return s.Gappers
	case ViewMomentum:
		return s.Momentum
	case ViewHighRVol:
		return s.HighRVol
	}
	return nil
}

// Union indexes the records of all three views by symbol. When a symbol
// appears in several views the first occurrence wins; all copies are equal.
func (s *ScanResult) Union() map[string]DerivedRecord {
	out := make(map[string]DerivedRecord)
	if s == nil {
		return out
	}
	for _, list := range [][]DerivedRecord{s.Gappers, s.Momentum, s.HighRVol} {
		for _, r := range list {
			if _, ok := out[r.Symbol]; !ok {
				out[r.Symbol] = r
			}
		}
	}
	return out
}
