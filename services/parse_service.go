package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"portfoliobackend/types"
	"portfoliobackend/utils/constants"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var ErrUnmappedSymbol = errors.New("no screener page mapped for symbol")

var (
	zeroWidthChars  = regexp.MustCompile("[\u200B\u200C\u200D\uFEFF]")
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	knownCompanyURL = make(map[string]bool, len(constants.ScreenerSymbols))
)

func init() {
	for _, symbol := range constants.ScreenerSymbols {
		knownCompanyURL[symbol] = true
	}
}

// MarkupFetcher returns the raw markup behind a URL
type MarkupFetcher interface {
	GetCompanyPage(ctx context.Context, url string) ([]byte, error)
}

type ScreenerServiceI interface {
	CompanyURL(symbol string) (string, error)
	FetchSnapshot(ctx context.Context, symbol string) (*types.FinancialsSnapshot, error)
}

type screenerService struct {
	baseURL string
	fetcher MarkupFetcher
}

func NewScreenerService(baseURL string, fetcher MarkupFetcher) ScreenerServiceI {
	if baseURL == "" {
		baseURL = constants.DefaultCompanyURL
	}
	return &screenerService{baseURL: strings.TrimRight(baseURL, "/"), fetcher: fetcher}
}

// ScreenerSymbol applies the alias table to a portfolio symbol
func ScreenerSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if alias, ok := constants.ScreenerSymbolAliases[symbol]; ok {
		return alias
	}
	return symbol
}

func (s *screenerService) CompanyURL(symbol string) (string, error) {
	mapped := ScreenerSymbol(symbol)
	if !knownCompanyURL[mapped] {
		return "", fmt.Errorf("%w: %s", ErrUnmappedSymbol, symbol)
	}
	return fmt.Sprintf("%s/company/%s/", s.baseURL, mapped), nil
}

// FetchSnapshot fetches and parses the fundamentals page of symbol. Only the
// fetch can fail; a page with missing sections still yields a snapshot.
func (s *screenerService) FetchSnapshot(ctx context.Context, symbol string) (*types.FinancialsSnapshot, error) {
	url, err := s.CompanyURL(symbol)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("Fetching screener page", zap.String("symbol", symbol), zap.String("normalized", ScreenerSymbol(symbol)), zap.String("url", url))

	markup, err := s.fetcher.GetCompanyPage(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the company page for %s: %w", symbol, err)
	}
	return ExtractSnapshot(bytes.NewReader(markup)), nil
}

// ExtractSnapshot parses one company page. It never fails: unreadable markup
// or a missing section simply leaves the matching part of the snapshot empty.
func ExtractSnapshot(r io.Reader) *types.FinancialsSnapshot {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		zap.L().Warn("Failed to parse the HTML content", zap.Error(err))
		return types.NewFinancialsSnapshot()
	}
	return ExtractSnapshotFromDocument(doc)
}

func ExtractSnapshotFromDocument(doc *goquery.Document) *types.FinancialsSnapshot {
	snapshot := types.NewFinancialsSnapshot()
	snapshot.CompanyName = cleanHTMLContent(doc.Find("h1").First().Text())

	doc.Find("#top-ratios li").Each(func(i int, item *goquery.Selection) {
		name := cleanHTMLContent(item.Find(".name").Text())
		if name == "" {
			return
		}
		// "High / Low" carries two numbers
		var numbers []string
		item.Find(".number").Each(func(j int, number *goquery.Selection) {
			if text := cleanHTMLContent(number.Text()); text != "" {
				numbers = append(numbers, text)
			}
		})
		if _, exists := snapshot.TopRatios[name]; !exists {
			snapshot.TopRatios[name] = strings.Join(numbers, " / ")
		}
	})

	doc.Find("#balance-sheet table").First().Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		label, values := parseRow(row)
		if label == "" {
			return
		}
		latest := ""
		if len(values) > 0 {
			latest = values[len(values)-1]
		}
		if _, exists := snapshot.BalanceSheetLatest[label]; !exists {
			snapshot.BalanceSheetLatest[label] = latest
		}
	})

	snapshot.ProfitLoss = parseStatementTable(doc.Find("#profit-loss table").First())
	snapshot.CashFlow = parseStatementTable(doc.Find("#cash-flow table").First())

	doc.Find("#quarters table").First().Find("tbody tr").First().Find("td").Each(func(i int, cell *goquery.Selection) {
		snapshot.QuarterlyLatestRow = append(snapshot.QuarterlyLatestRow, cleanHTMLContent(cell.Text()))
	})

	return snapshot
}

func parseStatementTable(table *goquery.Selection) types.StatementTable {
	statement := types.NewStatementTable()
	if table.Length() == 0 {
		return statement
	}

	// Extract periods from table headers, skipping the label column
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		if i > 0 {
			statement.Headers = append(statement.Headers, cleanHTMLContent(th.Text()))
		}
	})

	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		label, values := parseRow(row)
		if label == "" {
			return
		}
		statement.Add(label, values)
	})
	return statement
}

// parseRow splits a table row into its label (first cell) and period values
func parseRow(row *goquery.Selection) (string, []string) {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return "", nil
	}
	label := cleanHTMLContent(cells.First().Text())
	values := make([]string, 0, cells.Length()-1)
	cells.Each(func(i int, td *goquery.Selection) {
		if i > 0 { // Skip the first column which is the row key
			values = append(values, cleanHTMLContent(td.Text()))
		}
	})
	return label, values
}

func removeZeroWidthChars(s string) string {
	return zeroWidthChars.ReplaceAllString(s, "")
}

// normalizeWhitespace collapses runs of spaces, newlines and non-breaking
// spaces into one space, so "Sales&nbsp;+" reads as "Sales +".
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return whitespaceRuns.ReplaceAllString(s, " ")
}

func cleanHTMLContent(s string) string {
	return strings.TrimSpace(normalizeWhitespace(removeZeroWidthChars(s)))
}
