package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfoliobackend/types"
	"portfoliobackend/utils/constants"
)

var ErrNoQuote = errors.New("no quote in response")

type rawValue struct {
	Raw float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName           string   `json:"longName"`
				ShortName          string   `json:"shortName"`
				RegularMarketPrice rawValue `json:"regularMarketPrice"`
			} `json:"price"`
			SummaryDetail struct {
				TrailingPE rawValue `json:"trailingPE"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Client reads live quotes from the Yahoo Finance quoteSummary endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultQuoteURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// QuoteSymbol maps a portfolio symbol to its NSE listing on Yahoo
func QuoteSymbol(symbol string) string {
	if alias, ok := constants.QuoteSymbolAliases[symbol]; ok {
		symbol = alias
	}
	return strings.ToUpper(symbol) + constants.QuoteExchangeSuffix
}

func (c *Client) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	yahooSymbol := QuoteSymbol(symbol)
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.baseURL, url.PathEscape(yahooSymbol), "price,summaryDetail,defaultKeyStatistics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", yahooSymbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Yahoo Finance API returned status %d for %s", resp.StatusCode, yahooSymbol)
	}

	var apiResp quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance error for %s: %s", yahooSymbol, apiResp.QuoteSummary.Error.Description)
	}
	if len(apiResp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoQuote, yahooSymbol)
	}

	result := apiResp.QuoteSummary.Result[0]
	if result.Price.RegularMarketPrice.Raw <= 0 {
		return nil, fmt.Errorf("%w for %s: no market price", ErrNoQuote, yahooSymbol)
	}
	name := result.Price.LongName
	if name == "" {
		name = result.Price.ShortName
	}
	return &types.Quote{
		Price:      result.Price.RegularMarketPrice.Raw,
		TrailingPE: result.SummaryDetail.TrailingPE.Raw,
		EPSTTM:     result.DefaultKeyStatistics.TrailingEps.Raw,
		LongName:   name,
	}, nil
}
