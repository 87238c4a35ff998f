package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/ratelimit"
	"b3fundamentals/internal/testutil"
)

const testSource market.Source = "statusinvest"

var testLayout = Layout{
	Price: "#quote .price",
	Sections: []Section{
		{Container: "#indicators", Item: ".item", Label: ".label", Value: ".value"},
		{Container: "#extra", Item: "li", Label: "b", Value: "i"},
	},
}

const fullPage = `<html><body>
<div id="quote"><span class="price">R$ 23,40</span></div>
<div id="indicators">
  <div class="item"><span class="label">P/L</span><span class="value">10,50</span></div>
  <div class="item"><span class="label">D.Y</span><span class="value">7,23%</span></div>
  <div class="item"><span class="label">ROE</span><span class="value">-</span></div>
  <div class="item"><span class="label">P/VP</span><span class="value">abc</span></div>
  <div class="item"><span class="label">Free float</span><span class="value">45,5%</span></div>
</div>
<ul id="extra">
  <li><b>P/L</b><i>99,00</i></li>
  <li><b>Valor de mercado</b><i>
     R$ 1,5 B
  </i></li>
</ul>
</body></html>`

func newTestSite(baseURL string) Site {
	return Site{
		Source:  testSource,
		BaseURL: baseURL,
		Path: func(t market.Ticker) string {
			return "/acoes/" + strings.ToLower(t.Symbol())
		},
		Layout: testLayout,
	}
}

func newTestFetcher(t *testing.T, body string, status int) (*Fetcher, *testutil.RecordingPacer, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acoes/abcd3", r.URL.Path)
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	pacer := &testutil.RecordingPacer{}
	f := NewFetcher(newTestSite(server.URL), fetcher.Options{
		HTTP:  fetcher.HTTPOptions{RetryCount: fetcher.Retries(0)},
		Pacer: pacer,
	})
	return f, pacer, server
}

func value(t *testing.T, res fetcher.Result, field market.Field) float64 {
	t.Helper()
	v, ok := res.Get(field).Float64()
	require.True(t, ok, "%s is null", field)
	return v
}

func TestFetcher_Identity(t *testing.T) {
	f := NewFetcher(newTestSite("https://statusinvest.com.br"), fetcher.Options{})

	assert.Equal(t, testSource, f.Source())
	assert.Equal(t, market.KindScraper, f.Kind())
	assert.Equal(t, "statusinvest.com.br", f.host)
	assert.Equal(t, acceptHTML, f.opts.HTTP.Accept)
}

func TestFetcher_Fetch_FullPage(t *testing.T) {
	f, pacer, server := newTestFetcher(t, fullPage, http.StatusOK)

	res := f.Fetch(context.Background(), market.MustParseTicker("ABCD3"))

	require.False(t, res.Failed(), "unexpected failure: %v", res.Err)
	assert.Equal(t, market.KindScraper, res.Kind)
	assert.InDelta(t, 23.40, value(t, res, market.Price), 1e-9)
	assert.InDelta(t, 0.0723, value(t, res, market.DividendYield), 1e-9)
	assert.InDelta(t, 1.5e9, value(t, res, market.MarketCap), 1e-3)

	// The first readable occurrence of a repeated label wins.
	assert.InDelta(t, 10.5, value(t, res, market.PE), 1e-9)

	// Unknown labels pass through under their native name.
	assert.InDelta(t, 0.455, value(t, res, market.Field("Free float")), 1e-9)

	assert.True(t, res.Get(market.ROE).IsNull())
	assert.True(t, res.Get(market.PB).IsNull())

	var debug int
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, slog.LevelWarn, d.Level, "unexpected warning: %s", d.Message)
		if d.Level == slog.LevelDebug {
			debug++
		}
	}
	assert.Equal(t, 2, debug, "one debug diagnostic per unreadable value")

	assert.Equal(t, 1, pacer.Count(ratelimit.HostOf(server.URL)))
}

func TestFetcher_Fetch_MissingSection(t *testing.T) {
	page := `<html><body>
<div id="quote"><span class="price">23,40</span></div>
<div id="indicators">
  <div class="item"><span class="label">P/L</span><span class="value">10,50</span></div>
</div>
</body></html>`
	f, _, _ := newTestFetcher(t, page, http.StatusOK)

	res := f.Fetch(context.Background(), market.MustParseTicker("ABCD3"))

	require.False(t, res.Failed())
	assert.InDelta(t, 23.4, value(t, res, market.Price), 1e-9)
	assert.InDelta(t, 10.5, value(t, res, market.PE), 1e-9)
	assert.True(t, res.Get(market.MarketCap).IsNull())

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, slog.LevelWarn, res.Diagnostics[0].Level)
	assert.Contains(t, res.Diagnostics[0].Message, "#extra")
}

func TestFetcher_Fetch_MissingPrice(t *testing.T) {
	page := `<html><body>
<div id="indicators">
  <div class="item"><span class="label">P/L</span><span class="value">10,50</span></div>
</div>
<ul id="extra"></ul>
</body></html>`
	f, _, _ := newTestFetcher(t, page, http.StatusOK)

	res := f.Fetch(context.Background(), market.MustParseTicker("ABCD3"))

	require.False(t, res.Failed())
	assert.True(t, res.Get(market.Price).IsNull())
	assert.InDelta(t, 10.5, value(t, res, market.PE), 1e-9)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, "price anchor")
}

func TestFetcher_Fetch_UnrecognisedLayout(t *testing.T) {
	f, pacer, server := newTestFetcher(t, `<html><body><p>Página em manutenção</p></body></html>`, http.StatusOK)

	res := f.Fetch(context.Background(), market.MustParseTicker("ABCD3"))

	require.True(t, res.Failed())
	assert.Equal(t, fetcher.ErrorTypeParse, res.Err.Type)
	assert.False(t, res.Err.Retryable)
	assert.Empty(t, res.Values)
	assert.Equal(t, res.Ticker, market.MustParseTicker("ABCD3"))
	assert.Equal(t, 1, pacer.Count(ratelimit.HostOf(server.URL)))
}

func TestFetcher_Fetch_HTTPErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType fetcher.ErrorType
	}{
		{"not found", http.StatusNotFound, fetcher.ErrorTypeClient},
		{"forbidden", http.StatusForbidden, fetcher.ErrorTypeClient},
		{"rate limited", http.StatusTooManyRequests, fetcher.ErrorTypeRateLimit},
		{"bad gateway", http.StatusBadGateway, fetcher.ErrorTypeServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, pacer, server := newTestFetcher(t, fullPage, tt.status)

			res := f.Fetch(context.Background(), market.MustParseTicker("ABCD3"))

			require.True(t, res.Failed())
			assert.Equal(t, tt.wantType, res.Err.Type)
			assert.Equal(t, tt.status, res.Err.StatusCode)
			assert.Empty(t, res.Values)
			assert.Equal(t, 1, pacer.Count(ratelimit.HostOf(server.URL)))
		})
	}
}

func TestFetcher_Fetch_EveryAttemptIsPaced(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantHits int
	}{
		{"rate limited host is not hit again", http.StatusTooManyRequests, 1},
		{"server errors retried with default count", http.StatusServiceUnavailable, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			hits := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				hits++
				mu.Unlock()
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			pacer := &testutil.RecordingPacer{}
			f := NewFetcher(newTestSite(server.URL), fetcher.Options{
				HTTP:  fetcher.HTTPOptions{RetryWait: time.Millisecond},
				Pacer: pacer,
			})

			res := f.Fetch(context.Background(), market.MustParseTicker("ABCD3"))

			require.True(t, res.Failed())
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tt.wantHits, hits)
			assert.Equal(t, hits, pacer.Pauses(ratelimit.HostOf(server.URL)))
		})
	}
}

func TestFetcher_Fetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	pacer := &testutil.RecordingPacer{}
	f := NewFetcher(newTestSite(baseURL), fetcher.Options{
		HTTP:  fetcher.HTTPOptions{RetryCount: fetcher.Retries(0)},
		Pacer: pacer,
	})

	res := f.Fetch(context.Background(), market.MustParseTicker("ABCD3"))

	require.True(t, res.Failed())
	assert.Equal(t, fetcher.ErrorTypeNetwork, res.Err.Type)
	assert.Equal(t, 1, pacer.Total())
}

func TestText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="x">  R$
	  23,40 </div>`))
	require.NoError(t, err)
	assert.Equal(t, "R$ 23,40", text(doc.Find("#x")))
	assert.Equal(t, "", text(doc.Find("#missing")))
}
