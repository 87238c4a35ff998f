package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"b3fundamentals/internal/cache"
	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/testutil"
)

var defaultSources = []market.Source{
	market.SourceYahoo,
	market.SourceStatusInvest,
	market.SourceInvestidor10,
}

// fakeLookup answers from a FetchFunc and records every call.
type fakeLookup struct {
	mu    sync.Mutex
	calls []string
	fetch func(ctx context.Context, source market.Source, ticker market.Ticker) (fetcher.Result, error)
}

func (l *fakeLookup) GetOrFetch(ctx context.Context, source market.Source, ticker market.Ticker) (fetcher.Result, error) {
	l.mu.Lock()
	l.calls = append(l.calls, fetcher.Key(source, ticker))
	l.mu.Unlock()

	if l.fetch != nil {
		return l.fetch(ctx, source, ticker)
	}
	kind := market.KindScraper
	if source == market.SourceYahoo {
		kind = market.KindAPI
	}
	return testutil.NewResult(source, kind, ticker, map[market.Field]market.Value{
		market.PE: market.Some(10),
	}), nil
}

func (l *fakeLookup) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func parseTickers(t *testing.T, symbols ...string) []market.Ticker {
	t.Helper()
	tickers, err := market.ParseTickers(symbols)
	if err != nil {
		t.Fatalf("ParseTickers() error: %v", err)
	}
	return tickers
}

func TestNew(t *testing.T) {
	coord := New(&fakeLookup{}, defaultSources)
	if coord == nil {
		t.Fatal("New() returned nil")
	}

	if len(coord.sources) != len(defaultSources) {
		t.Errorf("New() created coordinator with %d sources, want %d", len(coord.sources), len(defaultSources))
	}
	if coord.workers != 1 {
		t.Errorf("workers = %d, want 1", coord.workers)
	}

	coord = New(&fakeLookup{}, defaultSources, WithWorkers(0))
	if coord.workers != 1 {
		t.Errorf("WithWorkers(0) set workers = %d, want 1", coord.workers)
	}
}

func TestRun_NoTickers(t *testing.T) {
	coord := New(&fakeLookup{}, defaultSources)

	_, err := coord.Run(context.Background(), nil, nil)
	if !errors.Is(err, ErrNoTickers) {
		t.Errorf("Run() error = %v, want %v", err, ErrNoTickers)
	}
}

func TestRun_NoSources(t *testing.T) {
	coord := New(&fakeLookup{}, nil)

	_, err := coord.Run(context.Background(), parseTickers(t, "PETR4"), nil)
	if !errors.Is(err, ErrNoSources) {
		t.Errorf("Run() error = %v, want %v", err, ErrNoSources)
	}

	expectedErrMsg := "no sources configured"
	if err.Error() != expectedErrMsg {
		t.Errorf("Run() error = %q, want %q", err.Error(), expectedErrMsg)
	}
}

func TestRun_SequentialOrderAndProgress(t *testing.T) {
	lookup := &fakeLookup{}
	coord := New(lookup, defaultSources)
	tickers := parseTickers(t, "PETR4", "VALE3", "PETR4")

	var events []Progress
	report, err := coord.Run(context.Background(), tickers, func(p Progress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", report.RunID, err)
	}

	if len(report.Records) != len(tickers) {
		t.Fatalf("got %d records, want %d", len(report.Records), len(tickers))
	}
	for i, rec := range report.Records {
		if rec.Ticker != tickers[i] {
			t.Errorf("record %d ticker = %s, want %s", i, rec.Ticker, tickers[i])
		}
		for _, f := range market.OutputSchema {
			if _, ok := rec.Values[f]; !ok {
				t.Errorf("record %d misses field %s", i, f)
			}
		}
	}

	if len(events) != len(tickers) {
		t.Fatalf("got %d progress events, want %d", len(events), len(tickers))
	}
	for i, ev := range events {
		if ev.Index != i+1 || ev.Total != len(tickers) || ev.Ticker != tickers[i] {
			t.Errorf("event %d = %+v", i, ev)
		}
	}

	// Sources are queried in configured order, one ticker at a time.
	want := []string{
		"fetcher:yahoo:PETR4.SA", "fetcher:statusinvest:PETR4.SA", "fetcher:investidor10:PETR4.SA",
		"fetcher:yahoo:VALE3.SA", "fetcher:statusinvest:VALE3.SA", "fetcher:investidor10:VALE3.SA",
		"fetcher:yahoo:PETR4.SA", "fetcher:statusinvest:PETR4.SA", "fetcher:investidor10:PETR4.SA",
	}
	calls := lookup.Calls()
	if len(calls) != len(want) {
		t.Fatalf("got %d lookups, want %d: %v", len(calls), len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("lookup %d = %s, want %s", i, calls[i], want[i])
		}
	}
}

func TestRun_DegradedRecord(t *testing.T) {
	yahoo := testutil.NewMockFetcher(market.SourceYahoo, market.KindAPI, map[market.Field]market.Value{
		market.Price: market.Null,
		market.PE:    market.Some(10.5),
	})
	statusInvest := testutil.NewFailingFetcher(market.SourceStatusInvest, market.KindScraper, fetcher.NewServerError(503))
	investidor10 := testutil.NewMockFetcher(market.SourceInvestidor10, market.KindScraper, map[market.Field]market.Value{
		market.Price: market.Some(23.4),
	})
	c := cache.New([]fetcher.Fetcher{yahoo, statusInvest, investidor10})

	coord := New(c, defaultSources)
	tickers := parseTickers(t, "ABCD3.SA")

	var last Progress
	report, err := coord.Run(context.Background(), tickers, func(p Progress) { last = p })
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(report.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(report.Records))
	}
	rec := report.Records[0]
	if got := rec.Get(market.Price); got != market.Some(23.4) {
		t.Errorf("price = %v, want 23.4", got)
	}
	if got := rec.Get(market.PE); got != market.Some(10.5) {
		t.Errorf("pe = %v, want 10.5", got)
	}

	if !last.Degraded {
		t.Error("progress should flag the ticker as degraded")
	}
	if len(report.Diagnostics) != 1 || report.Diagnostics[0].Source != market.SourceStatusInvest {
		t.Errorf("Diagnostics = %+v, want the statusinvest failure", report.Diagnostics)
	}
}

func TestRun_LookupErrorBecomesDiagnostic(t *testing.T) {
	c := cache.New([]fetcher.Fetcher{
		testutil.NewMockFetcher(market.SourceYahoo, market.KindAPI, map[market.Field]market.Value{market.PE: market.Some(8)}),
	})
	coord := New(c, []market.Source{market.SourceYahoo, "unknown"})

	report, err := coord.Run(context.Background(), parseTickers(t, "PETR4"), nil)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if got := report.Records[0].Get(market.PE); got != market.Some(8) {
		t.Errorf("pe = %v, want 8", got)
	}
	if len(report.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(report.Diagnostics))
	}
	d := report.Diagnostics[0]
	if d.Level != slog.LevelError || !errors.Is(d.Err, cache.ErrUnknownSource) {
		t.Errorf("diagnostic = %+v, want an unknown source error", d)
	}
}

func TestRun_ParallelPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	lookup := &fakeLookup{
		fetch: func(ctx context.Context, source market.Source, ticker market.Ticker) (fetcher.Result, error) {
			mu.Lock()
			inFlight++
			peak = max(peak, inFlight)
			mu.Unlock()

			time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return testutil.NewResult(source, market.KindScraper, ticker, nil), nil
		},
	}
	coord := New(lookup, defaultSources, WithWorkers(4))
	tickers := parseTickers(t, "PETR4", "VALE3", "ITUB4", "BBDC4", "ABEV3", "WEGE3", "BBAS3", "RENT3")

	var indexes []int
	report, err := coord.Run(context.Background(), tickers, func(p Progress) {
		indexes = append(indexes, p.Index)
	})
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(report.Records) != len(tickers) {
		t.Fatalf("got %d records, want %d", len(report.Records), len(tickers))
	}
	for i, rec := range report.Records {
		if rec.Ticker != tickers[i] {
			t.Errorf("record %d ticker = %s, want %s", i, rec.Ticker, tickers[i])
		}
	}
	for i, idx := range indexes {
		if idx != i+1 {
			t.Errorf("progress %d index = %d, want %d", i, idx, i+1)
		}
	}
	if peak > 4 {
		t.Errorf("peak concurrency = %d, want at most 4", peak)
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord := New(&fakeLookup{}, defaultSources)
	tickers := parseTickers(t, "PETR4", "VALE3", "ITUB4", "BBDC4")

	report, err := coord.Run(ctx, tickers, func(p Progress) {
		if p.Index == 2 {
			cancel()
		}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if report == nil {
		t.Fatal("Run() returned no report on cancellation")
	}
	if len(report.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(report.Records))
	}
	for i, rec := range report.Records {
		if rec.Ticker != tickers[i] {
			t.Errorf("record %d ticker = %s, want %s", i, rec.Ticker, tickers[i])
		}
	}
}

func TestRun_Duration(t *testing.T) {
	start := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * 3 * time.Second)
	}

	coord := New(&fakeLookup{}, defaultSources, WithClock(clock))
	report, err := coord.Run(context.Background(), parseTickers(t, "PETR4"), nil)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if !report.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", report.StartedAt, start)
	}
	if report.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", report.Duration)
	}
}
