package market

// Field is a canonical indicator name. Labels a source emits that have no
// canonical mapping are carried as Field values holding the native label.
type Field string

// Canonical fields.
const (
	Price             Field = "price"
	DividendYield     Field = "dividend_yield"
	PE                Field = "pe"
	ForwardPE         Field = "forward_pe"
	PB                Field = "pb"
	PSR               Field = "psr"
	EVEBITDA          Field = "ev_ebitda"
	GrossMargin       Field = "gross_margin"
	EBITMargin        Field = "ebit_margin"
	NetMargin         Field = "net_margin"
	ROE               Field = "roe"
	ROA               Field = "roa"
	ROIC              Field = "roic"
	CurrentRatio      Field = "current_ratio"
	NetDebtToEquity   Field = "net_debt_equity"
	DebtToEquity      Field = "debt_equity"
	AvgVolume10d      Field = "avg_volume_10d"
	AvgDailyLiquidity Field = "avg_daily_liquidity"
	MarketCap         Field = "market_cap"
	BVPS              Field = "bvps"
	EPS               Field = "eps"
	RevenueCAGR5y     Field = "revenue_cagr_5y"
	EarningsCAGR5y    Field = "earnings_cagr_5y"
	RevenueGrowth     Field = "revenue_growth"
	EarningsGrowth    Field = "earnings_growth"
)

// Class is the unit convention of a field.
type Class int

const (
	ClassUnknown Class = iota
	// ClassCurrency values are in base currency units.
	ClassCurrency
	// ClassPercent values are stored as fractions (0.0723 for 7.23%).
	ClassPercent
	// ClassRatio values are plain multiples.
	ClassRatio
	// ClassCount values are unit counts (shares, contracts).
	ClassCount
	// ClassPerShare values are currency per share.
	ClassPerShare
)

var classes = map[Field]Class{
	Price:             ClassCurrency,
	DividendYield:     ClassPercent,
	PE:                ClassRatio,
	ForwardPE:         ClassRatio,
	PB:                ClassRatio,
	PSR:               ClassRatio,
	EVEBITDA:          ClassRatio,
	GrossMargin:       ClassPercent,
	EBITMargin:        ClassPercent,
	NetMargin:         ClassPercent,
	ROE:               ClassPercent,
	ROA:               ClassPercent,
	ROIC:              ClassPercent,
	CurrentRatio:      ClassRatio,
	NetDebtToEquity:   ClassRatio,
	DebtToEquity:      ClassRatio,
	AvgVolume10d:      ClassCount,
	AvgDailyLiquidity: ClassCurrency,
	MarketCap:         ClassCurrency,
	BVPS:              ClassPerShare,
	EPS:               ClassPerShare,
	RevenueCAGR5y:     ClassPercent,
	EarningsCAGR5y:    ClassPercent,
	RevenueGrowth:     ClassPercent,
	EarningsGrowth:    ClassPercent,
}

// OutputSchema is the fixed, ordered column set of a merged record.
var OutputSchema = []Field{
	Price,
	DividendYield,
	PE,
	ForwardPE,
	PB,
	PSR,
	EVEBITDA,
	GrossMargin,
	EBITMargin,
	NetMargin,
	ROE,
	ROA,
	ROIC,
	CurrentRatio,
	NetDebtToEquity,
	DebtToEquity,
	AvgVolume10d,
	AvgDailyLiquidity,
	MarketCap,
	BVPS,
	EPS,
	RevenueCAGR5y,
	EarningsCAGR5y,
	RevenueGrowth,
	EarningsGrowth,
}

// Class returns the unit convention of f, ClassUnknown for passthrough labels.
func (f Field) Class() Class {
	return classes[f]
}

// Canonical reports whether f belongs to the closed canonical vocabulary.
func (f Field) Canonical() bool {
	_, ok := classes[f]
	return ok
}

// Fractional reports whether f is stored as a fraction by convention.
func (f Field) Fractional() bool {
	return f.Class() == ClassPercent
}
