package model

// Fundamentals holds slow-moving company data used to enrich a snapshot.
type Fundamentals struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"company_name"`
	Exchange          string  `json:"exchange"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	MarketCap         float64 `json:"market_cap"`
	FloatShares       float64 `json:"float_shares"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	AvgVolume         float64 `json:"avg_volume"`
}
