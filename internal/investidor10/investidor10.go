// Package investidor10 configures the Investidor10 stock page scraper.
package investidor10

import (
	"strings"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/scrape"
)

// DefaultBaseURL is the production site.
const DefaultBaseURL = "https://investidor10.com.br"

// Layout holds the anchors of an Investidor10 stock page. The indicator
// grid cells carry the label as their first span and the value inside
// a .value block.
var Layout = scrape.Layout{
	Price: "#cards-ticker ._card.cotacao ._card-body span",
	Sections: []scrape.Section{
		{Container: "#cards-ticker", Item: "._card", Label: "._card-header span", Value: "._card-body span"},
		{Container: "#table-indicators", Item: ".cell", Label: "span:first-child", Value: ".value span"},
	},
}

// Path returns the page of ticker, /acoes/petr4/ for PETR4.SA.
func Path(ticker market.Ticker) string {
	return "/acoes/" + strings.ToLower(ticker.Symbol()) + "/"
}

// NewFetcher creates an Investidor10 fetcher rooted at baseURL.
func NewFetcher(baseURL string, opts fetcher.Options) *scrape.Fetcher {
	return scrape.NewFetcher(scrape.Site{
		Source:  market.SourceInvestidor10,
		BaseURL: baseURL,
		Path:    Path,
		Layout:  Layout,
	}, opts)
}
