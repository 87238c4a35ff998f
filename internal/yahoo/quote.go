package yahoo

// QuoteSummaryResponse represents the Yahoo Finance quoteSummary response for
// the price, summaryDetail, defaultKeyStatistics and financialData modules.
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []QuoteSummary `json:"result"`
		Error  *APIError      `json:"error"`
	} `json:"quoteSummary"`
}

// APIError is the error object Yahoo embeds in otherwise valid responses.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// QuoteSummary holds the modules of one symbol.
type QuoteSummary struct {
	Price struct {
		RegularMarketPrice Number `json:"regularMarketPrice"`
		MarketCap          Number `json:"marketCap"`
		Currency           string `json:"currency"`
	} `json:"price"`

	SummaryDetail struct {
		DividendYield                Number `json:"dividendYield"`
		TrailingPE                   Number `json:"trailingPE"`
		ForwardPE                    Number `json:"forwardPE"`
		MarketCap                    Number `json:"marketCap"`
		AverageDailyVolume10Day      Number `json:"averageDailyVolume10Day"`
		PriceToSalesTrailing12Months Number `json:"priceToSalesTrailing12Months"`
	} `json:"summaryDetail"`

	DefaultKeyStatistics struct {
		PriceToBook        Number `json:"priceToBook"`
		BookValue          Number `json:"bookValue"`
		TrailingEps        Number `json:"trailingEps"`
		ProfitMargins      Number `json:"profitMargins"`
		EnterpriseToEbitda Number `json:"enterpriseToEbitda"`
	} `json:"defaultKeyStatistics"`

	FinancialData struct {
		CurrentPrice     Number `json:"currentPrice"`
		GrossMargins     Number `json:"grossMargins"`
		OperatingMargins Number `json:"operatingMargins"`
		ProfitMargins    Number `json:"profitMargins"`
		ReturnOnEquity   Number `json:"returnOnEquity"`
		ReturnOnAssets   Number `json:"returnOnAssets"`
		CurrentRatio     Number `json:"currentRatio"`
		DebtToEquity     Number `json:"debtToEquity"`
		RevenueGrowth    Number `json:"revenueGrowth"`
		EarningsGrowth   Number `json:"earningsGrowth"`
	} `json:"financialData"`
}

// Number is Yahoo's {raw, fmt} pair. Fields Yahoo has no data for come back
// as an empty object, leaving Raw nil.
type Number struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

// labeled is one native (label, number) pair in reading order. When a label
// appears twice the first non-null occurrence wins.
type labeled struct {
	label string
	num   Number
}

func (q *QuoteSummary) pairs() []labeled {
	return []labeled{
		{"currentPrice", q.FinancialData.CurrentPrice},
		{"regularMarketPrice", q.Price.RegularMarketPrice},
		{"dividendYield", q.SummaryDetail.DividendYield},
		{"trailingPE", q.SummaryDetail.TrailingPE},
		{"forwardPE", q.SummaryDetail.ForwardPE},
		{"priceToBook", q.DefaultKeyStatistics.PriceToBook},
		{"priceToSalesTrailing12Months", q.SummaryDetail.PriceToSalesTrailing12Months},
		{"enterpriseToEbitda", q.DefaultKeyStatistics.EnterpriseToEbitda},
		{"grossMargins", q.FinancialData.GrossMargins},
		{"operatingMargins", q.FinancialData.OperatingMargins},
		{"profitMargins", q.FinancialData.ProfitMargins},
		{"profitMargins", q.DefaultKeyStatistics.ProfitMargins},
		{"returnOnEquity", q.FinancialData.ReturnOnEquity},
		{"returnOnAssets", q.FinancialData.ReturnOnAssets},
		{"currentRatio", q.FinancialData.CurrentRatio},
		{"debtToEquity", q.FinancialData.DebtToEquity},
		{"averageDailyVolume10Day", q.SummaryDetail.AverageDailyVolume10Day},
		{"marketCap", q.SummaryDetail.MarketCap},
		{"marketCap", q.Price.MarketCap},
		{"bookValue", q.DefaultKeyStatistics.BookValue},
		{"trailingEps", q.DefaultKeyStatistics.TrailingEps},
		{"revenueGrowth", q.FinancialData.RevenueGrowth},
		{"earningsGrowth", q.FinancialData.EarningsGrowth},
	}
}
