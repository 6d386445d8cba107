package model

import "time"

// MaxPriceHistory bounds DerivedRecord.PriceHistory.
const MaxPriceHistory = 10

// MaxStrategies bounds DerivedRecord.Strategies.
const MaxStrategies = 3

// DerivedRecord is one symbol's computed view for a single scan cycle.
// A new value is produced every cycle; records are never updated in place.
type DerivedRecord struct {
	Symbol string `json:"symbol"`

	Price      float64 `json:"price"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Volume     float64 `json:"volume"`
	PrevClose  float64 `json:"prev_close"`
	PrevVolume float64 `json:"prev_volume"`
	VWAP       float64 `json:"vwap"`

	GapPercent     float64 `json:"gap_percent"`
	RelativeVolume float64 `json:"relative_volume"`
	VWAPDistance   float64 `json:"vwap_distance"`
	Change         float64 `json:"change"`
	ChangePercent  float64 `json:"change_percent"`

	Float     float64 `json:"float"`
	MarketCap float64 `json:"market_cap"`
	Sector    string  `json:"sector"`

	PriceHistory []float64  `json:"price_history"`
	Strategies   []Strategy `json:"strategies"`
	IsNew        bool       `json:"is_new"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
