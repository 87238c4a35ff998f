package fieldmap

import "b3fundamentals/internal/market"

// yahooLabels covers the quoteSummary keys the yahoo fetcher reads.
var yahooLabels = Table{
	"currentPrice":                 market.Price,
	"regularMarketPrice":           market.Price,
	"dividendYield":                market.DividendYield,
	"trailingPE":                   market.PE,
	"forwardPE":                    market.ForwardPE,
	"priceToBook":                  market.PB,
	"priceToSalesTrailing12Months": market.PSR,
	"enterpriseToEbitda":           market.EVEBITDA,
	"grossMargins":                 market.GrossMargin,
	"operatingMargins":             market.EBITMargin,
	"profitMargins":                market.NetMargin,
	"returnOnEquity":               market.ROE,
	"returnOnAssets":               market.ROA,
	"currentRatio":                 market.CurrentRatio,
	"debtToEquity":                 market.DebtToEquity,
	"averageDailyVolume10Day":      market.AvgVolume10d,
	"averageDailyLiquidity":        market.AvgDailyLiquidity,
	"marketCap":                    market.MarketCap,
	"bookValue":                    market.BVPS,
	"trailingEps":                  market.EPS,
	"revenueGrowth":                market.RevenueGrowth,
	"earningsGrowth":               market.EarningsGrowth,
}

var statusInvestLabels = Table{
	"Valor atual":           market.Price,
	"D.Y":                   market.DividendYield,
	"Dividend Yield":        market.DividendYield,
	"P/L":                   market.PE,
	"P/VP":                  market.PB,
	"P/SR":                  market.PSR,
	"EV/EBITDA":             market.EVEBITDA,
	"M. Bruta":              market.GrossMargin,
	"M. EBIT":               market.EBITMargin,
	"M. Líquida":            market.NetMargin,
	"ROE":                   market.ROE,
	"ROA":                   market.ROA,
	"ROIC":                  market.ROIC,
	"Liq. corrente":         market.CurrentRatio,
	"Dív. líquida/PL":       market.NetDebtToEquity,
	"Dív. bruta/PL":         market.DebtToEquity,
	"Valor de mercado":      market.MarketCap,
	"Liquidez média diária": market.AvgDailyLiquidity,
	"VPA":                   market.BVPS,
	"LPA":                   market.EPS,
	"CAGR Receitas 5 anos":  market.RevenueCAGR5y,
	"CAGR Lucros 5 anos":    market.EarningsCAGR5y,
}

var investidor10Labels = Table{
	"Cotação":                     market.Price,
	"DY":                          market.DividendYield,
	"Dividend Yield":              market.DividendYield,
	"P/L":                         market.PE,
	"P/VP":                        market.PB,
	"P/Receita (PSR)":             market.PSR,
	"EV/EBITDA":                   market.EVEBITDA,
	"Margem Bruta":                market.GrossMargin,
	"Margem EBIT":                 market.EBITMargin,
	"Margem Líquida":              market.NetMargin,
	"ROE":                         market.ROE,
	"ROA":                         market.ROA,
	"ROIC":                        market.ROIC,
	"Liquidez Corrente":           market.CurrentRatio,
	"Dívida Líquida / Patrimônio": market.NetDebtToEquity,
	"Dívida Bruta / Patrimônio":   market.DebtToEquity,
	"Valor de Mercado":            market.MarketCap,
	"Liquidez Média Diária":       market.AvgDailyLiquidity,
	"VPA":                         market.BVPS,
	"LPA":                         market.EPS,
	"CAGR Receitas 5 Anos":        market.RevenueCAGR5y,
	"CAGR Lucros 5 Anos":          market.EarningsCAGR5y,
}
