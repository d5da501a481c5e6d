package constants

import "time"

const (
	DefaultPort            = "4000"
	DefaultCompanyURL      = "https://www.screener.in"
	DefaultQuoteURL        = "https://query1.finance.yahoo.com"
	DefaultCacheTTL        = 30 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultScreenerRPS     = 1.0
	DefaultScreenerBurst   = 30
	DefaultRefreshSchedule = "@every 15s"
	DefaultSector          = "Others"
	QuoteExchangeSuffix    = ".NS"
	CompleteCacheSuffix    = "_complete"
	BrowserUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	BrowserAccept          = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// ScreenerSymbolAliases maps portfolio codes (BSE numeric codes, old tickers)
// to the ticker screener.in uses in its company URL.
var ScreenerSymbolAliases = map[string]string{
	"532174":   "ICICIBANK",
	"PIDILITE": "PIDILITIND",
	"500331":   "PIDILITIND",
	"500400":   "TATAPOWER",
	"543318":   "CLEAN",
}

// QuoteSymbolAliases maps BSE numeric codes to NSE tickers for the quote provider
var QuoteSymbolAliases = map[string]string{
	"532174": "ICICIBANK",
	"500331": "PIDILITIND",
	"500400": "TATAPOWER",
	"543318": "CLEAN",
}

// ScreenerSymbols lists the companies with a known screener.in page.
// Symbols outside this list are treated as a failed markup fetch.
var ScreenerSymbols = []string{
	"HDFCBANK", "BAJFINANCE", "ICICIBANK", "AVENUE", "DMART", "AFFLE", "LTIM",
	"ASTRAL", "TANLA", "KPIT", "TATATECH", "BLS", "TATACONSUM",
	"PIDILITIND", "TATAPOWER", "KPIGREEN", "SUZLON", "GENSOL",
	"HARIOM", "POLYCAB", "CLEAN", "DEEPAKNTR", "FINEORG",
	"GRAVITA", "SBILIFE", "INFY", "HAPPSTMNDS", "EASEMYTRIP",
}
