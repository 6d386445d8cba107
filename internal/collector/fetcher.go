package collector

import (
	"context"

	"MomentumWatch/internal/model"
)

// QuoteSource supplies the market-wide gainers snapshot a scan starts from.
type QuoteSource interface {
	Gainers(ctx context.Context) ([]model.Ticker, error)
	Name() string
}

// ProfileFetcher supplies fundamentals for one symbol. found is false when
// the provider has no profile for it.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, symbol string) (profile model.Fundamentals, found bool, err error)
}
