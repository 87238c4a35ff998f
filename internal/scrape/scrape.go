// Package scrape reads indicator pages of HTML sources. A Site describes
// where a source's page lives and which CSS anchors hold its values; the
// Fetcher does the request, pacing, parsing and normalisation.
package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/normalize"
	"b3fundamentals/internal/ratelimit"
)

const acceptHTML = "text/html,application/xhtml+xml"

// Section is a repeated block of label/value pairs. Item is matched inside
// Container, Label and Value inside each item; the first match is used.
type Section struct {
	Container string
	Item      string
	Label     string
	Value     string
}

// Layout lists the anchors of a page.
type Layout struct {
	// Price selects the element holding the current quote.
	Price    string
	Sections []Section
}

// Site is one HTML source.
type Site struct {
	Source  market.Source
	BaseURL string
	// Path returns the page path of ticker relative to BaseURL.
	Path   func(market.Ticker) string
	Layout Layout
}

// Fetcher scrapes one Site.
type Fetcher struct {
	site   Site
	client *resty.Client
	host   string
	opts   fetcher.Options
}

// NewFetcher creates a fetcher for site.
func NewFetcher(site Site, opts fetcher.Options) *Fetcher {
	opts = opts.WithDefaults()
	if opts.HTTP.Accept == "" {
		opts.HTTP.Accept = acceptHTML
	}
	return &Fetcher{
		site:   site,
		client: opts.NewClient(site.BaseURL),
		host:   ratelimit.HostOf(site.BaseURL),
		opts:   opts,
	}
}

// Source implements fetcher.Fetcher.
func (f *Fetcher) Source() market.Source { return f.site.Source }

// Kind implements fetcher.Fetcher.
func (f *Fetcher) Kind() market.SourceKind { return market.KindScraper }

// Fetch downloads and reads the page of ticker.
func (f *Fetcher) Fetch(ctx context.Context, ticker market.Ticker) fetcher.Result {
	b := fetcher.NewBuilder(f.site.Source, market.KindScraper, ticker, f.opts.Now())
	path := f.site.Path(ticker)

	var resp *resty.Response
	err := f.opts.Pacer.Do(ctx, f.host, func(ctx context.Context) error {
		var err error
		resp, err = f.client.R().
			SetContext(ctx).
			Get(path)
		return err
	})

	if err != nil {
		return b.Fail(fmt.Sprintf("failed to fetch %s", path), fetcher.ClassifyTransportError(err))
	}

	if !resp.IsSuccess() {
		return b.Fail(fmt.Sprintf("%s returned status %d", f.site.Source, resp.StatusCode()), fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return b.Fail("failed to parse document", &fetcher.FetchError{
			Type:    fetcher.ErrorTypeParse,
			Message: "malformed document",
			Cause:   err,
		})
	}

	if found := f.extract(doc, b); found == 0 {
		return b.Fail("no known anchor found in page", fetcher.NewParseError(fmt.Sprintf("page layout of %s not recognised for %s", f.site.Source, ticker)))
	}
	return b.Result()
}

// extract reads every anchor of the layout into b and returns how many
// anchors matched. Missing anchors leave their fields null.
func (f *Fetcher) extract(doc *goquery.Document, b *fetcher.Builder) int {
	layout := f.site.Layout
	found := 0

	if layout.Price != "" {
		if sel := doc.Find(layout.Price).First(); sel.Length() > 0 {
			found++
			f.set(b, market.Price, market.RawValue{Label: string(market.Price), Text: text(sel)})
		} else {
			b.Warn(fmt.Sprintf("price anchor %q not found", layout.Price), nil)
		}
	}

	for _, s := range layout.Sections {
		container := doc.Find(s.Container)
		if container.Length() == 0 {
			b.Warn(fmt.Sprintf("section anchor %q not found", s.Container), nil)
			continue
		}
		found++

		container.Find(s.Item).Each(func(_ int, item *goquery.Selection) {
			raw := market.RawValue{
				Label: text(item.Find(s.Label).First()),
				Text:  text(item.Find(s.Value).First()),
			}
			if raw.Label == "" {
				return
			}
			field := f.opts.Mapper.Map(f.site.Source, raw.Label)
			// Pages repeat some indicators; the first readable one wins.
			if !b.Result().Get(field).IsNull() {
				return
			}
			f.set(b, field, raw)
		})
	}
	return found
}

func (f *Fetcher) set(b *fetcher.Builder, field market.Field, raw market.RawValue) {
	v := normalize.Field(field, raw.Text)
	if v.IsNull() {
		b.Debug(fmt.Sprintf("%s: unreadable value %q", raw.Label, raw.Text), nil)
	}
	b.Set(field, v)
}

// text returns the element text with whitespace runs collapsed.
func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
