// Package merge reconciles the results of several sources for one ticker
// into a single record.
//
// Results are given in ascending priority: the first is the fallback, the
// last the authoritative source. For every field the highest-priority
// non-null value wins, so a poorer source returning null never erases a
// good value from another one. Fields can additionally prefer a kind of
// source (scraped quotes for price); a non-null value of the preferred kind
// wins before the general rule applies.
package merge

import (
	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
)

// Record is the merged view of one ticker. It is built fresh by every merge
// and not modified afterwards.
type Record struct {
	Ticker market.Ticker
	// Values holds every schema field, null when no source had it, plus any
	// non-canonical field a source reported.
	Values map[market.Field]market.Value
	// Sources records the winning source of each non-null field.
	Sources map[market.Field]market.Source
}

// Get returns the merged value of f.
func (r Record) Get(f market.Field) market.Value {
	return r.Values[f]
}

// Source returns the source whose value won for f, empty for null fields.
func (r Record) Source(f market.Field) market.Source {
	return r.Sources[f]
}

// Fields returns the values of schema in order.
func (r Record) Fields(schema []market.Field) []market.Value {
	out := make([]market.Value, len(schema))
	for i, f := range schema {
		out[i] = r.Values[f]
	}
	return out
}

// Policy is a merge configuration.
type Policy struct {
	// Schema lists the fields every record carries.
	Schema []market.Field
	// Prefer names, per field, the kind of source whose values win over the
	// general priority order.
	Prefer map[market.Field]market.SourceKind
}

// DefaultPolicy keeps the output schema and lets scraped quotes win for price.
var DefaultPolicy = Policy{
	Schema: market.OutputSchema,
	Prefer: map[market.Field]market.SourceKind{
		market.Price: market.KindScraper,
	},
}

// Merge combines results with DefaultPolicy.
func Merge(ticker market.Ticker, results []fetcher.Result) Record {
	return DefaultPolicy.Merge(ticker, results)
}

// Merge combines results, given in ascending priority, into a record for
// ticker. Results of another ticker are ignored. The record's ticker is
// always the argument.
func (p Policy) Merge(ticker market.Ticker, results []fetcher.Result) Record {
	relevant := make([]fetcher.Result, 0, len(results))
	for _, r := range results {
		if r.Ticker.IsZero() || r.Ticker == ticker {
			relevant = append(relevant, r)
		}
	}

	rec := Record{
		Ticker:  ticker,
		Values:  make(map[market.Field]market.Value, len(p.Schema)),
		Sources: make(map[market.Field]market.Source),
	}

	for _, f := range p.Schema {
		rec.Values[f] = market.Null
	}
	for _, r := range relevant {
		for f := range r.Values {
			rec.Values[f] = market.Null
		}
	}

	for f := range rec.Values {
		if kind, ok := p.Prefer[f]; ok {
			if v, src, found := pick(relevant, f, func(r fetcher.Result) bool { return r.Kind == kind }); found {
				rec.Values[f], rec.Sources[f] = v, src
				continue
			}
		}
		if v, src, found := pick(relevant, f, nil); found {
			rec.Values[f], rec.Sources[f] = v, src
		}
	}
	return rec
}

// pick returns the non-null value of f from the highest-priority result
// accepted by keep, or found=false.
func pick(results []fetcher.Result, f market.Field, keep func(fetcher.Result) bool) (v market.Value, src market.Source, found bool) {
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if keep != nil && !keep(r) {
			continue
		}
		if v := r.Get(f); !v.IsNull() {
			return v, r.Source, true
		}
	}
	return market.Null, "", false
}
