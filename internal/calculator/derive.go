package calculator

import (
	"time"

	"MomentumWatch/internal/model"
	"MomentumWatch/internal/strategy"
)

// Derive computes one cycle's record for a symbol. prev and fund may be nil.
// It performs no I/O. UpdatedAt is the provider timestamp, or the wall clock
// when the snapshot carries none.
func Derive(raw model.Ticker, prev *model.DerivedRecord, fund *model.Fundamentals) model.DerivedRecord {
	price := CurrentPrice(raw)

	rec := model.DerivedRecord{
		Symbol:     raw.Symbol,
		Price:      price,
		Open:       raw.Day.Open,
		High:       raw.Day.High,
		Low:        raw.Day.Low,
		Volume:     raw.Day.Volume,
		PrevClose:  raw.PrevDay.Close,
		PrevVolume: raw.PrevDay.Volume,
		Change:     raw.Change,
		UpdatedAt:  raw.UpdatedAt(),
	}

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	rec.GapPercent = Percent(raw.Day.Open, raw.PrevDay.Close)
	rec.RelativeVolume = RelativeVolume(raw.Day.Volume, fund, raw.PrevDay.Volume)
	rec.VWAP = VWAP(raw.Day, price)
	rec.VWAPDistance = Percent(price, rec.VWAP)
	rec.ChangePercent = Round2(raw.ChangePercent)

	if prev != nil {
		rec.PriceHistory = AppendHistory(prev.PriceHistory, price)
	} else {
		rec.PriceHistory = []float64{price}
		rec.IsNew = true
	}

	switch {
	case fund != nil:
		rec.Float = fund.FloatShares
		rec.MarketCap = fund.MarketCap
		rec.Sector = fund.Sector
	case prev != nil:
		rec.Float = prev.Float
		rec.MarketCap = prev.MarketCap
		rec.Sector = prev.Sector
	}

	rec.Strategies = strategy.Classify(&rec)
	return rec
}

// CurrentPrice is today's close, else yesterday's close, else 0.
func CurrentPrice(raw model.Ticker) float64 {
	if raw.Day.Close > 0 {
		return raw.Day.Close
	}
	if raw.PrevDay.Close > 0 {
		return raw.PrevDay.Close
	}
	return 0
}

// RelativeVolume divides volume by the best available baseline: the cached
// average volume, then the previous session's volume, then 1.
func RelativeVolume(volume float64, fund *model.Fundamentals, prevVolume float64) float64 {
	denom := 1.0
	switch {
	case fund != nil && fund.AvgVolume > 0:
		denom = fund.AvgVolume
	case prevVolume > 0:
		denom = prevVolume
	}
	rv := Round2(volume / denom)
	if rv < 0 {
		return 0
	}
	return rv
}

// VWAP prefers the provider value, then the typical price, then price.
func VWAP(day model.Bar, price float64) float64 {
	if day.VWAP > 0 {
		return day.VWAP
	}
	if typical := (day.High + day.Low + day.Close) / 3; typical > 0 {
		return typical
	}
	return price
}

// AppendHistory returns a new slice holding history plus price, keeping
// only the most recent model.MaxPriceHistory entries. history is not modified.
func AppendHistory(history []float64, price float64) []float64 {
	start := 0
	if n := len(history) + 1; n > model.MaxPriceHistory {
		start = n - model.MaxPriceHistory
	}
	out := make([]float64, 0, model.MaxPriceHistory)
	out = append(out, history[start:]...)
	return append(out, price)
}
