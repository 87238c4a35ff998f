// Package statusinvest configures the Status Invest stock page scraper.
package statusinvest

import (
	"strings"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/scrape"
)

// DefaultBaseURL is the production site.
const DefaultBaseURL = "https://statusinvest.com.br"

// Layout holds the anchors of a Status Invest stock page.
var Layout = scrape.Layout{
	Price: `div[title="Valor atual do ativo"] strong.value`,
	Sections: []scrape.Section{
		{Container: ".indicator-today-container", Item: ".item", Label: "h3.title", Value: "strong.value"},
		{Container: ".top-info", Item: ".info", Label: "h3.title", Value: "strong.value"},
	},
}

// Path returns the page of ticker, /acoes/petr4 for PETR4.SA.
func Path(ticker market.Ticker) string {
	return "/acoes/" + strings.ToLower(ticker.Symbol())
}

// NewFetcher creates a Status Invest fetcher rooted at baseURL.
func NewFetcher(baseURL string, opts fetcher.Options) *scrape.Fetcher {
	return scrape.NewFetcher(scrape.Site{
		Source:  market.SourceStatusInvest,
		BaseURL: baseURL,
		Path:    Path,
		Layout:  Layout,
	}, opts)
}
