package controllers

import (
	"errors"
	"net/http"

	"portfoliobackend/services"
	"portfoliobackend/types"
	"portfoliobackend/utils/constants"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultInspectSymbol = "HDFCBANK"

type ScreenerControllerI interface {
	InspectScreener(ctx *gin.Context)
	TestScreener(ctx *gin.Context)
}

type screenerController struct {
	screener services.SnapshotFetcher
	symbols  []string
}

func NewScreenerController(screener services.SnapshotFetcher, symbols []string) ScreenerControllerI {
	if len(symbols) == 0 {
		symbols = constants.ScreenerSymbols
	}
	return &screenerController{screener: screener, symbols: symbols}
}

// InspectScreener dumps the raw snapshot of one company page, for checking
// the row labels the page currently uses.
func (sc *screenerController) InspectScreener(ctx *gin.Context) {
	symbol := ctx.DefaultQuery("symbol", defaultInspectSymbol)

	snapshot, err := sc.screener.FetchSnapshot(ctx.Request.Context(), symbol)
	if err != nil {
		zap.L().Warn("Failed to fetch screener page", zap.String("symbol", symbol), zap.Error(err))
		ctx.JSON(fetchErrorStatus(err), gin.H{"error": "Failed to fetch", "details": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"symbol": symbol, "snapshot": snapshot})
}

type screenerTestResult struct {
	Symbol string                   `json:"symbol"`
	Status string                   `json:"status"`
	Data   *types.DerivedFinancials `json:"data,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// TestScreener derives the financials of one symbol, or of every known
// symbol with ?all=true. Symbols are fetched one after another so the page
// client's rate limit spaces the requests out.
func (sc *screenerController) TestScreener(ctx *gin.Context) {
	span := sentry.StartSpan(ctx.Request.Context(), "[GIN] TestScreener", sentry.WithTransactionName("TestScreener"))
	defer span.Finish()

	if ctx.Query("all") != "true" {
		symbol := ctx.DefaultQuery("symbol", defaultInspectSymbol)
		snapshot, err := sc.screener.FetchSnapshot(span.Context(), symbol)
		if err != nil {
			ctx.JSON(fetchErrorStatus(err), gin.H{"error": "Failed to fetch data", "details": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "symbol": symbol, "data": services.DeriveFinancials(snapshot)})
		return
	}

	results := make([]screenerTestResult, 0, len(sc.symbols))
	successful := 0
	for _, symbol := range sc.symbols {
		if err := span.Context().Err(); err != nil {
			results = append(results, screenerTestResult{Symbol: symbol, Status: "error", Error: err.Error()})
			continue
		}
		zap.L().Info("Testing screener page", zap.String("symbol", symbol))
		snapshot, err := sc.screener.FetchSnapshot(span.Context(), symbol)
		if err != nil {
			results = append(results, screenerTestResult{Symbol: symbol, Status: "failed", Error: err.Error()})
			continue
		}
		successful++
		results = append(results, screenerTestResult{Symbol: symbol, Status: "success", Data: services.DeriveFinancials(snapshot)})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"totalTested": len(sc.symbols),
		"successful":  successful,
		"failed":      len(sc.symbols) - successful,
		"results":     results,
	})
}

func fetchErrorStatus(err error) int {
	if errors.Is(err, services.ErrUnmappedSymbol) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
