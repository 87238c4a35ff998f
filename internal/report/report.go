// Package report renders merged records for people (a pt-BR formatted
// table) and for programs (JSON, CSV).
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"b3fundamentals/internal/market"
	"b3fundamentals/internal/merge"
)

// Formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// NotAvailable is printed in tables for null values.
const NotAvailable = "N/D"

// labels are the table row headings of canonical fields.
var labels = map[market.Field]string{
	market.Price:             "Cotação",
	market.DividendYield:     "Dividend Yield",
	market.PE:                "P/L",
	market.ForwardPE:         "P/L projetado",
	market.PB:                "P/VP",
	market.PSR:               "P/Receita",
	market.EVEBITDA:          "EV/EBITDA",
	market.GrossMargin:       "Margem bruta",
	market.EBITMargin:        "Margem EBIT",
	market.NetMargin:         "Margem líquida",
	market.ROE:               "ROE",
	market.ROA:               "ROA",
	market.ROIC:              "ROIC",
	market.CurrentRatio:      "Liquidez corrente",
	market.NetDebtToEquity:   "Dív. líquida/PL",
	market.DebtToEquity:      "Dív. bruta/PL",
	market.AvgVolume10d:      "Volume médio 10d",
	market.AvgDailyLiquidity: "Liquidez média diária",
	market.MarketCap:         "Valor de mercado",
	market.BVPS:              "VPA",
	market.EPS:               "LPA",
	market.RevenueCAGR5y:     "CAGR receitas 5a",
	market.EarningsCAGR5y:    "CAGR lucros 5a",
	market.RevenueGrowth:     "Cresc. receita",
	market.EarningsGrowth:    "Cresc. lucro",
}

// Label returns the table heading of f, the field name itself for
// non-canonical fields.
func Label(f market.Field) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Write renders records in format with the default output schema.
func Write(w io.Writer, format string, records []merge.Record) error {
	switch format {
	case FormatTable, "":
		return WriteTable(w, records, market.OutputSchema)
	case FormatJSON:
		return WriteJSON(w, records, market.OutputSchema)
	case FormatCSV:
		return WriteCSV(w, records, market.OutputSchema)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteTable renders one row per field and one column per ticker.
func WriteTable(w io.Writer, records []merge.Record, schema []market.Field) error {
	p := message.NewPrinter(language.BrazilianPortuguese)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprint(tw, "Indicador\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t", r.Ticker)
	}
	fmt.Fprintln(tw)

	for _, f := range schema {
		fmt.Fprintf(tw, "%s\t", Label(f))
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t", Format(p, f, r.Get(f)))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// Format renders v as a pt-BR string following the unit convention of f.
func Format(p *message.Printer, f market.Field, v market.Value) string {
	x, ok := v.Float64()
	if !ok {
		return NotAvailable
	}

	switch f.Class() {
	case market.ClassPercent:
		return p.Sprintf("%.2f%%", x*100)
	case market.ClassCurrency:
		return "R$ " + compact(p, x)
	case market.ClassPerShare:
		return p.Sprintf("R$ %.2f", x)
	case market.ClassCount:
		return compact(p, x)
	default:
		return p.Sprintf("%.2f", x)
	}
}

// compact abbreviates large magnitudes the way Brazilian sites print them.
func compact(p *message.Printer, x float64) string {
	switch abs := math.Abs(x); {
	case abs >= 1e12:
		return p.Sprintf("%.2f tri", x/1e12)
	case abs >= 1e9:
		return p.Sprintf("%.2f bi", x/1e9)
	case abs >= 1e6:
		return p.Sprintf("%.2f mi", x/1e6)
	default:
		return p.Sprintf("%.2f", x)
	}
}

type jsonRecord struct {
	Ticker  string                         `json:"ticker"`
	Values  map[market.Field]market.Value  `json:"values"`
	Sources map[market.Field]market.Source `json:"sources"`
}

// WriteJSON renders records as an indented JSON array. Every schema field is
// present in values, null when not available.
func WriteJSON(w io.Writer, records []merge.Record, schema []market.Field) error {
	out := make([]jsonRecord, 0, len(records))
	for _, r := range records {
		jr := jsonRecord{
			Ticker:  r.Ticker.String(),
			Values:  make(map[market.Field]market.Value, len(schema)),
			Sources: make(map[market.Field]market.Source),
		}
		for _, f := range schema {
			jr.Values[f] = r.Get(f)
			if src := r.Source(f); src != "" {
				jr.Sources[f] = src
			}
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV renders a header row of field names and one row per record with
// plain decimal numbers; null values are empty cells.
func WriteCSV(w io.Writer, records []merge.Record, schema []market.Field) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(schema)+1)
	header = append(header, "ticker")
	for _, f := range schema {
		header = append(header, string(f))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := make([]string, 0, len(schema)+1)
		row = append(row, r.Ticker.String())
		for _, v := range r.Fields(schema) {
			cell := ""
			if x, ok := v.Float64(); ok {
				cell = strconv.FormatFloat(x, 'f', -1, 64)
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
