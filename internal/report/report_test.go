package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/merge"
	"b3fundamentals/internal/testutil"
)

func sampleRecords() []merge.Record {
	abcd3 := market.MustParseTicker("ABCD3")
	api := testutil.NewResult(market.SourceYahoo, market.KindAPI, abcd3, map[market.Field]market.Value{
		market.PE: market.Some(10.5),
	})
	site := testutil.NewResult(market.SourceStatusInvest, market.KindScraper, abcd3, map[market.Field]market.Value{
		market.Price:         market.Some(23.4),
		market.DividendYield: market.Some(0.0723),
		market.MarketCap:     market.Some(12.5e9),
	})

	wxyz3 := market.MustParseTicker("WXYZ3")
	return []merge.Record{
		merge.Merge(abcd3, []fetcher.Result{api, site}),
		merge.Merge(wxyz3, nil),
	}
}

func TestFormat(t *testing.T) {
	p := message.NewPrinter(language.BrazilianPortuguese)

	tests := []struct {
		field market.Field
		value market.Value
		want  string
	}{
		{market.Price, market.Some(23.4), "R$ 23,40"},
		{market.DividendYield, market.Some(0.0723), "7,23%"},
		{market.RevenueGrowth, market.Some(-0.125), "-12,50%"},
		{market.PE, market.Some(10.5), "10,50"},
		{market.EPS, market.Some(2.23), "R$ 2,23"},
		{market.MarketCap, market.Some(12.5e9), "R$ 12,50 bi"},
		{market.AvgDailyLiquidity, market.Some(35.2e6), "R$ 35,20 mi"},
		{market.Field("PAYOUT"), market.Some(0.55), "0,55"},
		{market.Price, market.Null, NotAvailable},
		{market.ROE, market.Null, "N/D"},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			assert.Equal(t, tt.want, Format(p, tt.field, tt.value))
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, sampleRecords()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, len(market.OutputSchema)+1)

	assert.Contains(t, lines[0], "ABCD3.SA")
	assert.Contains(t, lines[0], "WXYZ3.SA")

	out := buf.String()
	assert.Contains(t, out, "R$ 23,40")
	assert.Contains(t, out, "7,23%")
	assert.Contains(t, out, "10,50")
	assert.Contains(t, out, "R$ 12,50 bi")

	// WXYZ3 had no data at all: every cell of its column is N/D.
	for _, line := range lines[1:] {
		assert.True(t, strings.HasSuffix(strings.TrimSpace(line), NotAvailable), "line %q", line)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRecords()))

	var got []struct {
		Ticker  string              `json:"ticker"`
		Values  map[string]*float64 `json:"values"`
		Sources map[string]string   `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)

	assert.Equal(t, "ABCD3.SA", got[0].Ticker)
	for _, f := range market.OutputSchema {
		_, ok := got[0].Values[string(f)]
		assert.True(t, ok, "field %s missing", f)
	}
	require.NotNil(t, got[0].Values["price"])
	assert.Equal(t, 23.4, *got[0].Values["price"])
	assert.Nil(t, got[0].Values["roe"])
	assert.Equal(t, "statusinvest", got[0].Sources["price"])
	assert.Equal(t, "yahoo", got[0].Sources["pe"])
	assert.NotContains(t, got[0].Sources, "roe")

	assert.Len(t, got[1].Values, len(market.OutputSchema))
	assert.Empty(t, got[1].Sources)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	require.Len(t, header, len(market.OutputSchema)+1)
	assert.Equal(t, "ticker", header[0])
	assert.Equal(t, "price", header[1])

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %s missing", name)
		return -1
	}

	assert.Equal(t, "ABCD3.SA", rows[1][0])
	assert.Equal(t, "23.4", rows[1][col("price")])
	assert.Equal(t, "0.0723", rows[1][col("dividend_yield")])
	assert.Equal(t, "12500000000", rows[1][col("market_cap")])
	assert.Equal(t, "", rows[1][col("roe")])
	assert.Equal(t, "", rows[2][col("price")])
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "xml", nil)
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}
