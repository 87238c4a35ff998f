package fetcher

import (
	"log/slog"
	"time"

	"b3fundamentals/internal/market"
)

// Result is one source's normalised output for one ticker.
// Results are shared through the cache and must not be mutated once returned.
type Result struct {
	Source    market.Source
	Kind      market.SourceKind
	Ticker    market.Ticker
	Values    map[market.Field]market.Value
	FetchedAt time.Time

	// Diagnostics are the leveled events raised while producing this result.
	Diagnostics []Diagnostic

	// Err is the terminal failure of the fetch, nil when the upstream
	// answered and at least part of the document could be read.
	Err *FetchError
}

// Get returns the value for f, Null when the source did not provide it.
func (r Result) Get(f market.Field) market.Value {
	return r.Values[f]
}

// Failed reports whether the fetch ended in a terminal error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Diagnostic is a structured event raised inside a fetch. Diagnostics travel
// with the Result instead of being printed, so callers decide how to surface
// them.
type Diagnostic struct {
	Level   slog.Level
	Source  market.Source
	Ticker  market.Ticker
	Message string
	Err     error
}

// Attrs returns the diagnostic as slog attributes.
func (d Diagnostic) Attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("source", string(d.Source)),
		slog.String("ticker", d.Ticker.String()),
	}
	if d.Err != nil {
		attrs = append(attrs, slog.String("error", d.Err.Error()))
	}
	return attrs
}

// Builder accumulates a Result inside a Fetch call.
type Builder struct {
	res Result
}

// NewBuilder starts a Result for source/ticker stamped with at.
func NewBuilder(source market.Source, kind market.SourceKind, ticker market.Ticker, at time.Time) *Builder {
	return &Builder{res: Result{
		Source:    source,
		Kind:      kind,
		Ticker:    ticker,
		Values:    make(map[market.Field]market.Value),
		FetchedAt: at,
	}}
}

// Set records v for f. Null values are recorded too so an unparseable field
// stays visible as present-but-null.
func (b *Builder) Set(f market.Field, v market.Value) {
	b.res.Values[f] = v
}

// Debug records a debug-level diagnostic.
func (b *Builder) Debug(msg string, err error) { b.diag(slog.LevelDebug, msg, err) }

// Warn records a warning diagnostic.
func (b *Builder) Warn(msg string, err error) { b.diag(slog.LevelWarn, msg, err) }

func (b *Builder) diag(level slog.Level, msg string, err error) {
	b.res.Diagnostics = append(b.res.Diagnostics, Diagnostic{
		Level:   level,
		Source:  b.res.Source,
		Ticker:  b.res.Ticker,
		Message: msg,
		Err:     err,
	})
}

// Fail marks the result as failed with err and drops any value collected so
// far, so a failed result only carries the ticker.
func (b *Builder) Fail(msg string, err *FetchError) Result {
	b.res.Err = err
	b.res.Values = make(map[market.Field]market.Value)
	b.diag(slog.LevelWarn, msg, err)
	return b.res
}

// Result returns the accumulated result.
func (b *Builder) Result() Result {
	return b.res
}
