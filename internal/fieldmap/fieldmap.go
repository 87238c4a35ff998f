// Package fieldmap translates each source's native label vocabulary into
// canonical field names.
package fieldmap

import (
	"strings"

	"b3fundamentals/internal/market"
	"b3fundamentals/internal/normalize"
)

// Table maps native labels to canonical fields for one source.
type Table map[string]market.Field

// Mapper holds one Table per source. Keys are compared after Key folding,
// so tables may be written in any case and with or without accents.
type Mapper struct {
	tables map[market.Source]map[string]market.Field
}

// New builds a Mapper from per-source tables.
func New(tables map[market.Source]Table) *Mapper {
	m := &Mapper{tables: make(map[market.Source]map[string]market.Field, len(tables))}
	for src, t := range tables {
		folded := make(map[string]market.Field, len(t))
		for label, f := range t {
			folded[Key(label)] = f
		}
		m.tables[src] = folded
	}
	return m
}

// Default returns a Mapper with the built-in tables for every known source.
func Default() *Mapper {
	return New(map[market.Source]Table{
		market.SourceYahoo:        yahooLabels,
		market.SourceStatusInvest: statusInvestLabels,
		market.SourceInvestidor10: investidor10Labels,
	})
}

// Lookup returns the canonical field for label, if the source's table has one.
func (m *Mapper) Lookup(src market.Source, label string) (market.Field, bool) {
	f, ok := m.tables[src][Key(label)]
	return f, ok
}

// Map returns the canonical field for label or, when the label is unknown,
// the trimmed native label itself so unexpected fields stay visible.
func (m *Mapper) Map(src market.Source, label string) market.Field {
	if f, ok := m.Lookup(src, label); ok {
		return f
	}
	return market.Field(strings.Join(strings.Fields(label), " "))
}

// Key folds a label for comparison: accents removed, upper-cased, inner
// whitespace collapsed, no spaces around '/', no trailing ':'.
func Key(label string) string {
	k := strings.ToUpper(normalize.Fold(label))
	k = strings.Join(strings.Fields(k), " ")
	k = strings.ReplaceAll(k, " /", "/")
	k = strings.ReplaceAll(k, "/ ", "/")
	return strings.TrimSpace(strings.TrimSuffix(k, ":"))
}
