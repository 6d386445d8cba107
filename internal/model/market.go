package model

import "time"

// Bar is one aggregate block of a snapshot (day or previous day).
type Bar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	VWAP   float64 `json:"vw"`
}

// Ticker is the latest provider snapshot for one symbol.
type Ticker struct {
	Symbol        string  `json:"ticker"`
	Change        float64 `json:"todaysChange"`
	ChangePercent float64 `json:"todaysChangePerc"`
	Updated       int64   `json:"updated"` // unix nanoseconds
	Day           Bar     `json:"day"`
	PrevDay       Bar     `json:"prevDay"`
}

// UpdatedAt converts the provider timestamp. Zero if the provider sent none.
func (t Ticker) UpdatedAt() time.Time {
	if t.Updated == 0 {
		return time.Time{}
	}
	return time.Unix(0, t.Updated)
}

// SearchResult is one match returned by the symbol search endpoint.
type SearchResult struct {
	Symbol   string `json:"ticker"`
	Name     string `json:"name"`
	Market   string `json:"market"`
	Exchange string `json:"primary_exchange"`
	Type     string `json:"type"`
	Active   bool   `json:"active"`
}
