// Package yahoo implements the structured-API source backed by the Yahoo
// Finance quoteSummary endpoint.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"resty.dev/v3"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/normalize"
	"b3fundamentals/internal/ratelimit"
)

const (
	// DefaultBaseURL is the production quoteSummary host.
	DefaultBaseURL = "https://query2.finance.yahoo.com"

	// DefaultConsentURL hands out the session cookie a crumb is bound to.
	DefaultConsentURL = "https://fc.yahoo.com"
)

const modules = "price,summaryDetail,defaultKeyStatistics,financialData"

// Fetcher reads one ticker's quote summary from Yahoo Finance.
//
// quoteSummary requires a crumb tied to a session cookie. The first Fetch
// visits the consent URL to obtain the cookie (kept in the client's cookie
// jar), asks for a crumb and reuses it until Yahoo rejects it with 401.
type Fetcher struct {
	client     *resty.Client
	host       string
	consentURL string
	opts       fetcher.Options

	mu    sync.Mutex
	crumb string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConsentURL replaces DefaultConsentURL.
func WithConsentURL(u string) Option {
	return func(f *Fetcher) {
		if u != "" {
			f.consentURL = u
		}
	}
}

// NewFetcher creates a new Yahoo Finance fetcher.
func NewFetcher(baseURL string, opts fetcher.Options, options ...Option) *Fetcher {
	opts = opts.WithDefaults()
	f := &Fetcher{
		client:     opts.NewClient(baseURL),
		host:       ratelimit.HostOf(baseURL),
		consentURL: DefaultConsentURL,
		opts:       opts,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Source implements fetcher.Fetcher.
func (f *Fetcher) Source() market.Source { return market.SourceYahoo }

// Kind implements fetcher.Fetcher.
func (f *Fetcher) Kind() market.SourceKind { return market.KindAPI }

// Fetch retrieves the indicators of ticker. Yahoo uses the full ticker,
// exchange suffix included (PETR4.SA).
func (f *Fetcher) Fetch(ctx context.Context, ticker market.Ticker) fetcher.Result {
	b := fetcher.NewBuilder(market.SourceYahoo, market.KindAPI, ticker, f.opts.Now())

	crumb, ferr := f.session(ctx)
	if ferr != nil {
		return b.Fail("failed to obtain a yahoo crumb", ferr)
	}

	var result QuoteSummaryResponse
	var resp *resty.Response
	err := f.opts.Pacer.Do(ctx, f.host, func(ctx context.Context) error {
		var err error
		resp, err = f.client.R().
			SetContext(ctx).
			SetPathParam("symbol", ticker.String()).
			SetQueryParam("modules", modules).
			SetQueryParam("crumb", crumb).
			SetResult(&result).
			Get("/v10/finance/quoteSummary/{symbol}")
		return err
	})

	if err != nil {
		return b.Fail(fmt.Sprintf("failed to fetch quote summary for %s", ticker), fetcher.ClassifyTransportError(err))
	}

	if !resp.IsSuccess() {
		if resp.StatusCode() == http.StatusUnauthorized {
			f.expire(crumb)
		}
		return b.Fail(fmt.Sprintf("yahoo API returned status %d", resp.StatusCode()), fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	if e := result.QuoteSummary.Error; e != nil {
		return b.Fail("yahoo API reported an error", fetcher.NewValidationError(fmt.Sprintf("%s: %s", e.Code, e.Description)))
	}

	if len(result.QuoteSummary.Result) == 0 {
		return b.Fail("empty quote summary", fetcher.NewValidationError(fmt.Sprintf("quote summary not found in response for %s", ticker)))
	}

	summary := result.QuoteSummary.Result[0]
	for _, p := range summary.pairs() {
		field := f.opts.Mapper.Map(market.SourceYahoo, p.label)
		if !b.Result().Get(field).IsNull() {
			continue
		}
		b.Set(field, f.value(field, p.num))
	}

	// Average daily liquidity in currency: shares traded times price.
	res := b.Result()
	b.Set(market.AvgDailyLiquidity, res.Get(market.AvgVolume10d).Mul(res.Get(market.Price)))

	return b.Result()
}

// session returns the current crumb, running the cookie and crumb handshake
// when there is none. Concurrent callers wait for a single handshake.
func (f *Fetcher) session(ctx context.Context) (string, *fetcher.FetchError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.crumb != "" {
		return f.crumb, nil
	}

	// The consent host answers with an error status but still sets the
	// cookie, so only the crumb request decides the outcome.
	_ = f.opts.Pacer.Do(ctx, ratelimit.HostOf(f.consentURL), func(ctx context.Context) error {
		_, err := f.client.R().SetContext(ctx).Get(f.consentURL)
		return err
	})

	var resp *resty.Response
	err := f.opts.Pacer.Do(ctx, f.host, func(ctx context.Context) error {
		var err error
		resp, err = f.client.R().
			SetContext(ctx).
			SetHeader("Accept", "text/plain").
			Get("/v1/test/getcrumb")
		return err
	})
	if err != nil {
		return "", fetcher.ClassifyTransportError(err)
	}
	if !resp.IsSuccess() {
		return "", fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	crumb := resp.String()
	if crumb == "" {
		return "", fetcher.NewValidationError("yahoo returned an empty crumb")
	}
	f.crumb = crumb
	return crumb, nil
}

// expire drops crumb so the next Fetch renews the session. A crumb already
// replaced by another caller is kept.
func (f *Fetcher) expire(crumb string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb == crumb {
		f.crumb = ""
	}
}

func (f *Fetcher) value(field market.Field, n Number) market.Value {
	if n.Raw == nil {
		return market.Null
	}
	raw := *n.Raw
	// Fractional fields already arrive as fractions (1.5 is 150%), except
	// debt/equity which Yahoo reports as a percentage (45.3 for 0.453).
	if field == market.DebtToEquity {
		raw /= 100
	}
	return normalize.Number(raw)
}
