package types

import "time"

// Holding is one static line of the portfolio table
type Holding struct {
	Symbol           string  `json:"symbol" toml:"symbol" bson:"symbol" validate:"required"`
	PurchasePrice    float64 `json:"purchasePrice" toml:"purchase_price" bson:"purchasePrice" validate:"gt=0"`
	Quantity         float64 `json:"quantity" toml:"quantity" bson:"quantity" validate:"gt=0"`
	PortfolioPercent float64 `json:"portfolioPercent" toml:"portfolio_percent" bson:"portfolioPercent" validate:"gte=0,lte=100"`
	Sector           string  `json:"sector" toml:"sector" bson:"sector"`
}

// Quote is what the market quote provider returns for a symbol
type Quote struct {
	Price      float64 `json:"price"`
	TrailingPE float64 `json:"trailingPE"`
	EPSTTM     float64 `json:"epsTTM"`
	LongName   string  `json:"longName"`
}

// StatementTable is one statement section: row label -> period values
// (oldest first, newest last), plus the order the rows appeared in.
type StatementTable struct {
	Headers []string            `json:"headers"`
	Order   []string            `json:"order"`
	Rows    map[string][]string `json:"rows"`
}

func NewStatementTable() StatementTable {
	return StatementTable{Headers: []string{}, Order: []string{}, Rows: map[string][]string{}}
}

// Add records a row; the first row seen for a label wins.
func (t *StatementTable) Add(label string, values []string) {
	if t.Rows == nil {
		t.Rows = map[string][]string{}
	}
	if _, exists := t.Rows[label]; exists {
		return
	}
	t.Order = append(t.Order, label)
	t.Rows[label] = values
}

// Series returns the values of label, or nil when the row is absent
func (t StatementTable) Series(label string) []string {
	return t.Rows[label]
}

// FindFirst returns the first row, in page order, whose label satisfies match
func (t StatementTable) FindFirst(match func(label string) bool) (string, []string, bool) {
	for _, label := range t.Order {
		if match(label) {
			return label, t.Rows[label], true
		}
	}
	return "", nil, false
}

func (t StatementTable) Len() int {
	return len(t.Order)
}

// FinancialsSnapshot holds the literal text of one fundamentals page.
// Row labels are kept as the page prints them; a missing section is an
// empty table, never a nil one.
type FinancialsSnapshot struct {
	CompanyName        string            `json:"companyName"`
	TopRatios          map[string]string `json:"topRatios"`
	BalanceSheetLatest map[string]string `json:"balanceSheetRows"`
	ProfitLoss         StatementTable    `json:"profitLoss"`
	CashFlow           StatementTable    `json:"cashFlow"`
	// QuarterlyLatestRow is every cell of the first quarterly-results row, label included.
	QuarterlyLatestRow []string `json:"quarterlyLatestRow"`
}

// NewFinancialsSnapshot returns a snapshot with every section present but empty
func NewFinancialsSnapshot() *FinancialsSnapshot {
	return &FinancialsSnapshot{
		TopRatios:          map[string]string{},
		BalanceSheetLatest: map[string]string{},
		ProfitLoss:         NewStatementTable(),
		CashFlow:           NewStatementTable(),
		QuarterlyLatestRow: []string{},
	}
}

// PeriodFigures is a quarterly / trailing / last-full-year triplet
type PeriodFigures struct {
	Quarterly *float64 `json:"quarterly"`
	TTM       *float64 `json:"ttm"`
	Annual    *float64 `json:"annual"`
}

// BalanceSheetFigures are the latest balance-sheet inputs of debt-to-equity
type BalanceSheetFigures struct {
	Deposits      *float64 `json:"deposits"`
	Borrowing     *float64 `json:"borrowing"`
	EquityCapital *float64 `json:"equityCapital"`
}

type CashFlowFigures struct {
	CFO          *float64 `json:"cfo"`
	FreeCashFlow *float64 `json:"freeCashFlow"`
}

// DerivedFinancials is computed once from a snapshot and never modified
type DerivedFinancials struct {
	CompanyName  string              `json:"companyName"`
	CurrentPrice *float64            `json:"currentPrice"`
	MarketCap    *float64            `json:"marketCap"`
	MarketCapTag string              `json:"marketCapCategory"`
	PE           *float64            `json:"peRatio"`
	BookValue    *float64            `json:"bookValue"`
	ROE          *float64            `json:"roe"`
	ROCE         *float64            `json:"roce"`
	DebtToEquity *float64            `json:"debtToEquity"`
	Revenue      PeriodFigures       `json:"revenue"`
	EBITDA       PeriodFigures       `json:"ebitda"`
	PAT          PeriodFigures       `json:"pat"`
	CashFlow     CashFlowFigures     `json:"cashFlow"`
	BalanceSheet BalanceSheetFigures `json:"balanceSheet"`
}

// AggregatedHolding is a holding merged with its quote and fundamentals
type AggregatedHolding struct {
	Symbol           string             `json:"nseBse"`
	DisplayName      string             `json:"particulars"`
	PurchasePrice    float64            `json:"purchasePrice"`
	Quantity         float64            `json:"quantity"`
	Investment       float64            `json:"investment"`
	PortfolioPercent float64            `json:"portfolioPercent"`
	CMP              float64            `json:"cmp"`
	PresentValue     float64            `json:"presentValue"`
	GainLoss         float64            `json:"gainLoss"`
	GainLossPercent  float64            `json:"gainLossPercent"`
	PERatio          float64            `json:"peRatio"`
	LatestEarnings   float64            `json:"latestEarnings"`
	Sector           string             `json:"sector"`
	Fundamentals     *DerivedFinancials `json:"fundamentals"`
}

type SectorSummary struct {
	Sector            string  `json:"sector"`
	Holdings          int     `json:"holdings"`
	TotalInvestment   float64 `json:"totalInvestment"`
	TotalPresentValue float64 `json:"totalPresentValue"`
	TotalGainLoss     float64 `json:"totalGainLoss"`
	GainLossPercent   float64 `json:"gainLossPercent"`
}

// PortfolioRefreshedEvent is published after every background refresh cycle
type PortfolioRefreshedEvent struct {
	ID                string    `json:"id"`
	RefreshedAt       time.Time `json:"refreshedAt"`
	Requested         int       `json:"requested"`
	Aggregated        int       `json:"aggregated"`
	SkippedSymbols    []string  `json:"skippedSymbols"`
	TotalInvestment   float64   `json:"totalInvestment"`
	TotalPresentValue float64   `json:"totalPresentValue"`
	TotalGainLoss     float64   `json:"totalGainLoss"`
}
