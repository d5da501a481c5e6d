package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfoliobackend/config"
	"portfoliobackend/types"
	"portfoliobackend/utils/constants"
	"portfoliobackend/utils/helpers"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	ErrDuplicateHolding = errors.New("duplicate holding symbol")
	ErrNoHoldings       = errors.New("no holdings found")
)

var validate = validator.New()

// HoldingsStore reads holdings from a database collection
type HoldingsStore interface {
	LoadHoldings(ctx context.Context) ([]types.Holding, error)
}

// HoldingsTable is the static, ordered list of holdings loaded at start-up.
// It is never modified after construction.
type HoldingsTable struct {
	holdings []types.Holding
	bySymbol map[string]types.Holding
}

func NewHoldingsTable(holdings []types.Holding) (*HoldingsTable, error) {
	table := &HoldingsTable{
		holdings: make([]types.Holding, 0, len(holdings)),
		bySymbol: make(map[string]types.Holding, len(holdings)),
	}
	for i, holding := range holdings {
		holding.Symbol = strings.ToUpper(strings.TrimSpace(holding.Symbol))
		if err := validate.Struct(holding); err != nil {
			return nil, fmt.Errorf("holding %d (%s) is invalid: %w", i+1, holding.Symbol, err)
		}
		if _, exists := table.bySymbol[holding.Symbol]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateHolding, holding.Symbol)
		}
		table.holdings = append(table.holdings, holding)
		table.bySymbol[holding.Symbol] = holding
	}
	return table, nil
}

func (t *HoldingsTable) Lookup(symbol string) (types.Holding, bool) {
	holding, ok := t.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return holding, ok
}

// All returns the holdings in table order
func (t *HoldingsTable) All() []types.Holding {
	holdings := make([]types.Holding, len(t.holdings))
	copy(holdings, t.holdings)
	return holdings
}

func (t *HoldingsTable) Len() int {
	return len(t.holdings)
}

// LoadHoldings builds the holdings table from the configured source
func LoadHoldings(ctx context.Context, cfg config.HoldingsConfig, store HoldingsStore) (*HoldingsTable, error) {
	var (
		holdings []types.Holding
		err      error
	)
	switch strings.ToLower(cfg.Source) {
	case "", "default":
		holdings = DefaultHoldings()
	case "xlsx":
		holdings, err = LoadHoldingsFromXLSX(cfg.File, cfg.Sheet)
	case "mongo":
		if store == nil {
			return nil, errors.New("mongo holdings source needs a store")
		}
		holdings, err = store.LoadHoldings(ctx)
	default:
		return nil, fmt.Errorf("unknown holdings source %q", cfg.Source)
	}
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}

	table, err := NewHoldingsTable(holdings)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Loaded holdings", zap.String("source", cfg.Source), zap.Int("count", table.Len()))
	return table, nil
}

// LoadHoldingsFromXLSX reads holdings from a portfolio sheet. The header row
// is found by its titles, so leading rows and column order do not matter.
// A row with a title but no symbol starts a new sector group, the way the
// dashboard sheet groups holdings.
func LoadHoldingsFromXLSX(path, sheet string) ([]types.Holding, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening holdings file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("error reading rows from sheet %s: %w", sheet, err)
	}
	return parseHoldingRows(rows)
}

func parseHoldingRows(rows [][]string) ([]types.Holding, error) {
	headerFound := false
	headerMap := make(map[string]int)
	currentSector := ""
	var holdings []types.Holding

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}

		if !headerFound {
			for _, cell := range row {
				if helpers.MatchHeader(cell, []string{`nse\s*/?\s*bse`, `^symbol$`}) {
					headerFound = true
					break
				}
			}
			if !headerFound {
				continue
			}
			// Build the header map
			for i, headerCell := range row {
				normalizedHeader := helpers.NormalizeString(headerCell)
				switch {
				case helpers.MatchHeader(normalizedHeader, []string{`nse\s*/?\s*bse`, `^symbol$`}):
					headerMap["Symbol"] = i
				case helpers.MatchHeader(normalizedHeader, []string{`purchase\s*price`, `buy\s*price`}):
					headerMap["Purchase Price"] = i
				case helpers.MatchHeader(normalizedHeader, []string{`^qty`, `quantity`}):
					headerMap["Quantity"] = i
				case helpers.MatchHeader(normalizedHeader, []string{`portfolio\s*\(?\s*(%|percent)`, `weight`}):
					headerMap["Portfolio Percent"] = i
				case helpers.MatchHeader(normalizedHeader, []string{`sector`}):
					headerMap["Sector"] = i
				case helpers.MatchHeader(normalizedHeader, []string{`particulars`, `name`}):
					headerMap["Particulars"] = i
				}
			}
			continue
		}

		symbol := strings.TrimSpace(cellAt(row, headerMap, "Symbol"))
		if symbol == "" {
			if title := strings.TrimSpace(cellAt(row, headerMap, "Particulars")); title != "" {
				currentSector = title
			}
			continue
		}

		sector := strings.TrimSpace(cellAt(row, headerMap, "Sector"))
		if sector == "" {
			sector = currentSector
		}
		holdings = append(holdings, types.Holding{
			Symbol:           symbol,
			PurchasePrice:    helpers.ToFloat(cellAt(row, headerMap, "Purchase Price")),
			Quantity:         helpers.ToFloat(cellAt(row, headerMap, "Quantity")),
			PortfolioPercent: helpers.ToFloat(strings.TrimSuffix(cellAt(row, headerMap, "Portfolio Percent"), "%")),
			Sector:           sector,
		})
	}

	if !headerFound {
		return nil, errors.New("holdings sheet has no symbol column")
	}
	return holdings, nil
}

func cellAt(row []string, headerMap map[string]int, key string) string {
	i, ok := headerMap[key]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// DefaultHoldings is the portfolio served when no other source is configured
func DefaultHoldings() []types.Holding {
	holdings := []types.Holding{
		{Symbol: "HDFCBANK", PurchasePrice: 1490, Quantity: 50, Sector: "Financial Sector"},
		{Symbol: "BAJFINANCE", PurchasePrice: 6466, Quantity: 15, Sector: "Financial Sector"},
		{Symbol: "532174", PurchasePrice: 780, Quantity: 84, Sector: "Financial Sector"},
		{Symbol: "SBILIFE", PurchasePrice: 1197, Quantity: 24, Sector: "Financial Sector"},
		{Symbol: "DMART", PurchasePrice: 3777, Quantity: 27, Sector: "Consumer Sector"},
		{Symbol: "TATACONSUM", PurchasePrice: 845, Quantity: 90, Sector: "Consumer Sector"},
		{Symbol: "500331", PurchasePrice: 2376, Quantity: 36, Sector: "Consumer Sector"},
		{Symbol: "AFFLE", PurchasePrice: 1151, Quantity: 50, Sector: "Tech Sector"},
		{Symbol: "LTIM", PurchasePrice: 4775, Quantity: 16, Sector: "Tech Sector"},
		{Symbol: "KPIT", PurchasePrice: 672, Quantity: 61, Sector: "Tech Sector"},
		{Symbol: "TATATECH", PurchasePrice: 1072, Quantity: 63, Sector: "Tech Sector"},
		{Symbol: "BLS", PurchasePrice: 232, Quantity: 191, Sector: "Tech Sector"},
		{Symbol: "TANLA", PurchasePrice: 1134, Quantity: 45, Sector: "Tech Sector"},
		{Symbol: "INFY", PurchasePrice: 1647, Quantity: 20, Sector: "Tech Sector"},
		{Symbol: "HAPPSTMNDS", PurchasePrice: 599, Quantity: 69, Sector: "Tech Sector"},
		{Symbol: "EASEMYTRIP", PurchasePrice: 20, Quantity: 1332, Sector: "Tech Sector"},
		{Symbol: "500400", PurchasePrice: 224, Quantity: 225, Sector: "Power Sector"},
		{Symbol: "KPIGREEN", PurchasePrice: 875, Quantity: 50, Sector: "Power Sector"},
		{Symbol: "SUZLON", PurchasePrice: 44, Quantity: 450, Sector: "Power Sector"},
		{Symbol: "GENSOL", PurchasePrice: 998, Quantity: 45, Sector: "Power Sector"},
		{Symbol: "HARIOM", PurchasePrice: 580, Quantity: 60, Sector: "Pipe Sector"},
		{Symbol: "ASTRAL", PurchasePrice: 1517, Quantity: 56, Sector: "Pipe Sector"},
		{Symbol: "POLYCAB", PurchasePrice: 2818, Quantity: 28, Sector: "Pipe Sector"},
		{Symbol: "543318", PurchasePrice: 1610, Quantity: 8, Sector: "Chemicals"},
		{Symbol: "DEEPAKNTR", PurchasePrice: 2248, Quantity: 12, Sector: "Chemicals"},
		{Symbol: "FINEORG", PurchasePrice: 4284, Quantity: 16, Sector: "Chemicals"},
		{Symbol: "GRAVITA", PurchasePrice: 2037, Quantity: 8, Sector: constants.DefaultSector},
	}

	var total float64
	for _, holding := range holdings {
		total += holding.PurchasePrice * holding.Quantity
	}
	for i := range holdings {
		holdings[i].PortfolioPercent = helpers.Round(holdings[i].PurchasePrice*holdings[i].Quantity/total*100, 2)
	}
	return holdings
}
