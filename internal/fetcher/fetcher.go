package fetcher

import (
	"context"
	"fmt"

	"b3fundamentals/internal/market"
)

//go:generate mockgen -package=fetchermock -destination=fetchermock/fetcher.go -source=fetcher.go Fetcher

// Fetcher is the capability contract every data source implements.
// A Fetcher retrieves the indicators of one ticker from one upstream and
// returns them already mapped to canonical fields and normalised.
type Fetcher interface {
	// Source returns the identifier of the upstream this fetcher reads.
	Source() market.Source

	// Kind tells structured APIs from scraped sites.
	Kind() market.SourceKind

	// Fetch retrieves the indicators for ticker. It never fails outright:
	// network, HTTP and parse failures come back as a degraded Result whose
	// Err is set and whose fields are null.
	Fetch(ctx context.Context, ticker market.Ticker) Result
}

// Key returns the hierarchical key for one source/ticker pair.
// Format: fetcher:{source}:{ticker}
// Examples:
//   - fetcher:yahoo:PETR4.SA
//   - fetcher:statusinvest:VALE3.SA
func Key(source market.Source, ticker market.Ticker) string {
	return fmt.Sprintf("fetcher:%s:%s", source, ticker)
}
