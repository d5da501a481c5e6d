package controllers

import (
	"net/http"
	"strings"

	"portfoliobackend/services"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PortfolioControllerI interface {
	GetPortfolio(ctx *gin.Context)
	GetSectors(ctx *gin.Context)
	InvalidateCache(ctx *gin.Context)
}

type portfolioController struct {
	portfolio services.PortfolioServiceI
}

func NewPortfolioController(portfolio services.PortfolioServiceI) PortfolioControllerI {
	return &portfolioController{portfolio: portfolio}
}

// GetPortfolio returns every holding that could be priced, in table order
func (pc *portfolioController) GetPortfolio(ctx *gin.Context) {
	span := sentry.StartSpan(ctx.Request.Context(), "[GIN] GetPortfolio", sentry.WithTransactionName("GetPortfolio"))
	defer span.Finish()

	holdings := pc.portfolio.Holdings()
	aggregated := pc.portfolio.AggregatePortfolio(span.Context(), holdings)
	if skipped := len(holdings) - len(aggregated); skipped > 0 {
		zap.L().Warn("Portfolio served without some holdings", zap.Int("skipped", skipped))
	}
	ctx.JSON(http.StatusOK, aggregated)
}

func (pc *portfolioController) GetSectors(ctx *gin.Context) {
	span := sentry.StartSpan(ctx.Request.Context(), "[GIN] GetSectors", sentry.WithTransactionName("GetSectors"))
	defer span.Finish()

	aggregated := pc.portfolio.AggregatePortfolio(span.Context(), pc.portfolio.Holdings())
	sectors := services.RollupSectors(aggregated)
	ctx.JSON(http.StatusOK, gin.H{
		"sectors": sectors,
		"total":   services.RollupTotal(sectors),
	})
}

func (pc *portfolioController) InvalidateCache(ctx *gin.Context) {
	symbol := strings.TrimSpace(ctx.Param("symbol"))
	if symbol == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
		return
	}
	pc.portfolio.Invalidate(symbol)
	zap.L().Info("Cache invalidated", zap.String("symbol", symbol))
	ctx.JSON(http.StatusOK, gin.H{"message": "Cache invalidated", "key": services.CacheKey(symbol)})
}
