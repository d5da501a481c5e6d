package services

import (
	"strings"

	"portfoliobackend/types"
	"portfoliobackend/utils/helpers"
)

// Row label synonyms per metric, tried in order. Statement formats differ
// between banks and other companies, so each metric has several spellings.
var (
	RevenueLabels      = []string{"Sales", "Sales +", "Operating Revenues", "Revenue +", "Total Income"}
	EBITDALabels       = []string{"Operating Profit", "EBITDA", "Financing Profit"}
	PATLabels          = []string{"Net Profit +", "Profit after tax", "Net Profit"}
	CFOLabels          = []string{"Cash from Operating Activity +"}
	FreeCashFlowLabels = []string{"Free Cash Flow"}
	BorrowingLabels    = []string{"Borrowing", "Borrowings +", "Borrowings"}
	PELabels           = []string{"Stock P/E", "P/E"}
)

const (
	depositsLabel      = "Deposits"
	equityCapitalLabel = "Equity Capital"
	operatingCashFlow  = "Operating Cash Flow"
)

// Cell positions in the latest quarterly-results row, label at 0. These
// follow the page's current column order and break silently if it changes.
const (
	quarterlyRevenueCell = 1
	quarterlyEBITDACell  = 3
	quarterlyPATCell     = 4
)

// DeriveFinancials computes the figures a fundamentals page does not print
// directly. A missing row or section yields nil fields, never an error.
func DeriveFinancials(snapshot *types.FinancialsSnapshot) *types.DerivedFinancials {
	if snapshot == nil {
		snapshot = types.NewFinancialsSnapshot()
	}

	derived := &types.DerivedFinancials{
		CompanyName:  snapshot.CompanyName,
		CurrentPrice: topRatio(snapshot, "Current Price"),
		MarketCap:    topRatio(snapshot, "Market Cap"),
		PE:           labelledRatio(snapshot, PELabels...),
		BookValue:    topRatio(snapshot, "Book Value"),
		ROE:          topRatio(snapshot, "ROE"),
		ROCE:         topRatio(snapshot, "ROCE"),
	}
	if derived.MarketCap != nil {
		derived.MarketCapTag = helpers.GetMarketCapCategory(*derived.MarketCap)
	} else {
		derived.MarketCapTag = helpers.GetMarketCapCategory(0)
	}

	derived.BalanceSheet = balanceSheetFigures(snapshot.BalanceSheetLatest)
	derived.DebtToEquity = DebtToEquity(derived.BalanceSheet)

	derived.Revenue = periodFigures(snapshot, RevenueLabels, quarterlyRevenueCell)
	derived.EBITDA = periodFigures(snapshot, EBITDALabels, quarterlyEBITDACell)
	derived.PAT = periodFigures(snapshot, PATLabels, quarterlyPATCell)

	if _, series, ok := snapshot.CashFlow.FindFirst(func(label string) bool {
		return matchesAny(label, CFOLabels) || strings.Contains(label, operatingCashFlow)
	}); ok {
		derived.CashFlow.CFO = seriesFromEnd(series, 1)
	}
	if _, series, ok := snapshot.CashFlow.FindFirst(func(label string) bool {
		return matchesAny(label, FreeCashFlowLabels)
	}); ok {
		derived.CashFlow.FreeCashFlow = seriesFromEnd(series, 1)
	}

	return derived
}

// DebtToEquity picks the bank formula (deposits+borrowing)/equity when both
// liabilities are present, else borrowing/equity. Zero counts as absent, and
// without positive equity capital there is no ratio.
func DebtToEquity(figures types.BalanceSheetFigures) *float64 {
	if !present(figures.EquityCapital) || *figures.EquityCapital <= 0 {
		return nil
	}
	equity := *figures.EquityCapital

	var ratio float64
	switch {
	case present(figures.Deposits) && present(figures.Borrowing):
		ratio = (*figures.Deposits + *figures.Borrowing) / equity
	case present(figures.Borrowing):
		ratio = *figures.Borrowing / equity
	default:
		return nil
	}
	ratio = helpers.Round(ratio, 2)
	return &ratio
}

func balanceSheetFigures(rows map[string]string) types.BalanceSheetFigures {
	figures := types.BalanceSheetFigures{
		Deposits:      helpers.NumberPtr(rows[depositsLabel]),
		EquityCapital: helpers.NumberPtr(rows[equityCapitalLabel]),
	}
	for _, label := range BorrowingLabels {
		if value, ok := rows[label]; ok {
			figures.Borrowing = helpers.NumberPtr(value)
			break
		}
	}
	return figures
}

// periodFigures reads TTM (last column) and the latest full year (the one
// before it) from the first matching profit & loss row.
func periodFigures(snapshot *types.FinancialsSnapshot, labels []string, quarterlyCell int) types.PeriodFigures {
	var figures types.PeriodFigures
	if _, series, ok := snapshot.ProfitLoss.FindFirst(func(label string) bool {
		return matchesAny(label, labels)
	}); ok {
		figures.TTM = seriesFromEnd(series, 1)
		figures.Annual = seriesFromEnd(series, 2)
	}
	if quarterlyCell < len(snapshot.QuarterlyLatestRow) {
		figures.Quarterly = helpers.NumberPtr(snapshot.QuarterlyLatestRow[quarterlyCell])
	}
	return figures
}

func topRatio(snapshot *types.FinancialsSnapshot, names ...string) *float64 {
	for _, name := range names {
		if text, ok := snapshot.TopRatios[name]; ok {
			return helpers.NumberPtr(text)
		}
	}
	return nil
}

// labelledRatio is set whenever one of the labels is printed, coercing blank
// or unparseable text to 0
func labelledRatio(snapshot *types.FinancialsSnapshot, names ...string) *float64 {
	for _, name := range names {
		if text, ok := snapshot.TopRatios[name]; ok {
			value := helpers.ToFloat(text)
			return &value
		}
	}
	return nil
}

// seriesFromEnd returns the n-th value counted from the end (1 = last)
func seriesFromEnd(series []string, n int) *float64 {
	if len(series) < n {
		return nil
	}
	return helpers.NumberPtr(series[len(series)-n])
}

func matchesAny(label string, synonyms []string) bool {
	for _, synonym := range synonyms {
		if label == synonym {
			return true
		}
	}
	return false
}

func present(value *float64) bool {
	return value != nil && *value != 0
}
