package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/merge"
	"b3fundamentals/internal/metrics"
)

var (
	// ErrNoTickers is returned by Run for an empty ticker list.
	ErrNoTickers = errors.New("no tickers configured")
	// ErrNoSources is returned by Run when no source is configured.
	ErrNoSources = errors.New("no sources configured")
)

// Lookup resolves one source's result for one ticker. *cache.Cache
// implements it.
type Lookup interface {
	GetOrFetch(ctx context.Context, source market.Source, ticker market.Ticker) (fetcher.Result, error)
}

// Progress is reported once per finished ticker.
type Progress struct {
	// Index counts finished tickers, starting at 1. With several workers it
	// is the completion order, not the input position.
	Index       int
	Total       int
	Ticker      market.Ticker
	Degraded    bool
	Diagnostics []fetcher.Diagnostic
}

// ProgressFunc receives progress events. Calls are serialised.
type ProgressFunc func(Progress)

// Report is the outcome of a run.
type Report struct {
	RunID string
	// Records holds one record per finished ticker, in input order.
	Records     []merge.Record
	Diagnostics []fetcher.Diagnostic
	StartedAt   time.Time
	Duration    time.Duration
}

// Coordinator drives the fetch and merge of a ticker list.
type Coordinator struct {
	lookup  Lookup
	sources []market.Source
	workers int
	policy  merge.Policy
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers sets how many tickers are processed at once. The default, 1,
// processes tickers strictly one after another.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPolicy replaces merge.DefaultPolicy.
func WithPolicy(p merge.Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a new Coordinator querying sources, in the given order, through lookup.
// The order is the merge priority, lowest first.
func New(lookup Lookup, sources []market.Source, opts ...Option) *Coordinator {
	c := &Coordinator{
		lookup:  lookup,
		sources: sources,
		workers: 1,
		policy:  merge.DefaultPolicy,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fetches and merges every ticker. Each ticker's sources are queried
// one after another; tickers themselves are processed by up to the
// configured number of workers. A failing source degrades its ticker's
// record but never drops it.
//
// When ctx is cancelled, tickers not yet finished are skipped and Run
// returns the finished records together with ctx.Err().
func (c *Coordinator) Run(ctx context.Context, tickers []market.Ticker, progress ProgressFunc) (*Report, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	if len(c.sources) == 0 {
		return nil, ErrNoSources
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
	}
	logger := c.logger.With("run_id", report.RunID)
	logger.Info("run started", "tickers", len(tickers), "sources", len(c.sources), "workers", c.workers)

	var (
		mu       sync.Mutex
		records  = make([]merge.Record, len(tickers))
		finished = make([]bool, len(tickers))
		count    int
	)

	process := func(i int) {
		if ctx.Err() != nil {
			return
		}
		rec, diags, degraded := c.processTicker(ctx, logger, tickers[i])
		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		records[i] = rec
		finished[i] = true
		count++
		report.Diagnostics = append(report.Diagnostics, diags...)
		if progress != nil {
			progress(Progress{
				Index:       count,
				Total:       len(tickers),
				Ticker:      tickers[i],
				Degraded:    degraded,
				Diagnostics: diags,
			})
		}
	}

	if c.workers <= 1 {
		for i := range tickers {
			if ctx.Err() != nil {
				break
			}
			process(i)
		}
	} else {
		p := pool.New().WithMaxGoroutines(c.workers)
		for i := range tickers {
			p.Go(func() { process(i) })
		}
		p.Wait()
	}

	for i, ok := range finished {
		if ok {
			report.Records = append(report.Records, records[i])
		}
	}
	report.Duration = c.now().Sub(report.StartedAt)

	if err := ctx.Err(); err != nil {
		logger.Warn("run cancelled", "finished", len(report.Records), "total", len(tickers))
		return report, fmt.Errorf("run cancelled after %d of %d tickers: %w", len(report.Records), len(tickers), err)
	}
	logger.Info("run finished", "tickers", len(report.Records), "duration", report.Duration)
	return report, nil
}

// processTicker queries every source for ticker and merges the results.
func (c *Coordinator) processTicker(ctx context.Context, logger *slog.Logger, ticker market.Ticker) (merge.Record, []fetcher.Diagnostic, bool) {
	results := make([]fetcher.Result, 0, len(c.sources))
	var diags []fetcher.Diagnostic
	degraded := false

	for _, src := range c.sources {
		res, err := c.lookup.GetOrFetch(ctx, src, ticker)
		if err != nil {
			degraded = true
			diags = append(diags, fetcher.Diagnostic{
				Level:   slog.LevelError,
				Source:  src,
				Ticker:  ticker,
				Message: "source lookup failed",
				Err:     err,
			})
			continue
		}
		if res.Failed() {
			degraded = true
		}
		diags = append(diags, res.Diagnostics...)
		results = append(results, res)
	}

	for _, d := range diags {
		logger.LogAttrs(ctx, d.Level, d.Message, d.Attrs()...)
	}

	rec := c.policy.Merge(ticker, results)
	metrics.RecordTicker(degraded)
	return rec, diags, degraded
}
