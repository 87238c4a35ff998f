package market

// Source identifies one upstream data provider.
type Source string

const (
	SourceYahoo        Source = "yahoo"
	SourceStatusInvest Source = "statusinvest"
	SourceInvestidor10 Source = "investidor10"
)

// SourceKind tells structured APIs from scraped sites.
type SourceKind string

const (
	KindAPI     SourceKind = "api"
	KindScraper SourceKind = "scraper"
)

// RawValue is a source's native label/text pair before normalisation.
type RawValue struct {
	Label string
	Text  string
}
