package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"portfoliobackend/types"
	"portfoliobackend/utils/cache"
	"portfoliobackend/utils/constants"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

var (
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrHoldingNotFound  = errors.New("holding not found")
)

// QuoteProvider returns the live market quote for a portfolio symbol
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*types.Quote, error)
}

// SnapshotFetcher returns the parsed fundamentals page for a portfolio symbol
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, symbol string) (*types.FinancialsSnapshot, error)
}

type PortfolioServiceI interface {
	Aggregate(ctx context.Context, symbol string) (*types.AggregatedHolding, error)
	AggregatePortfolio(ctx context.Context, holdings []types.Holding) []types.AggregatedHolding
	Invalidate(symbol string)
	Holdings() []types.Holding
}

type portfolioService struct {
	holdings  *HoldingsTable
	quotes    QuoteProvider
	snapshots SnapshotFetcher
	cache     *cache.Cache[*types.AggregatedHolding]
}

func NewPortfolioService(holdings *HoldingsTable, quotes QuoteProvider, snapshots SnapshotFetcher, store *cache.Cache[*types.AggregatedHolding]) PortfolioServiceI {
	return &portfolioService{
		holdings:  holdings,
		quotes:    quotes,
		snapshots: snapshots,
		cache:     store,
	}
}

// CacheKey is the cache key of a symbol's aggregated record
func CacheKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + constants.CompleteCacheSuffix
}

func (ps *portfolioService) Holdings() []types.Holding {
	return ps.holdings.All()
}

func (ps *portfolioService) Invalidate(symbol string) {
	ps.cache.Invalidate(CacheKey(symbol))
}

type quoteResult struct {
	quote *types.Quote
	err   error
}

type snapshotResult struct {
	snapshot *types.FinancialsSnapshot
	err      error
}

// Aggregate merges the live quote and the fundamentals of one holding. The
// quote is required; without fundamentals the record is still built, with
// the quote's P/E and no Fundamentals.
func (ps *portfolioService) Aggregate(ctx context.Context, symbol string) (*types.AggregatedHolding, error) {
	key := CacheKey(symbol)
	if cached, ok := ps.cache.Get(key); ok {
		zap.L().Debug("Using cached data", zap.String("symbol", symbol))
		return cached, nil
	}

	span := sentry.StartSpan(ctx, "[Service] Aggregate")
	span.SetTag("symbol", symbol)
	defer span.Finish()

	var (
		wg       sync.WaitGroup
		quoteRes quoteResult
		pageRes  snapshotResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		quoteRes.quote, quoteRes.err = ps.quotes.FetchQuote(span.Context(), symbol)
	}()
	go func() {
		defer wg.Done()
		pageRes.snapshot, pageRes.err = ps.snapshots.FetchSnapshot(span.Context(), symbol)
	}()
	wg.Wait()

	var fundamentals *types.DerivedFinancials
	switch quoteOK, pageOK := quoteAvailable(quoteRes), pageRes.err == nil && pageRes.snapshot != nil; {
	case quoteOK && pageOK:
		fundamentals = DeriveFinancials(pageRes.snapshot)
	case quoteOK && !pageOK:
		zap.L().Warn("Screener data missing", zap.String("symbol", symbol), zap.Error(pageRes.err))
	case !quoteOK && pageOK:
		span.Status = sentry.SpanStatusUnavailable
		return nil, quoteError(symbol, quoteRes.err)
	default:
		span.Status = sentry.SpanStatusUnavailable
		zap.L().Warn("Screener data missing", zap.String("symbol", symbol), zap.Error(pageRes.err))
		return nil, quoteError(symbol, quoteRes.err)
	}

	holding, ok := ps.holdings.Lookup(symbol)
	if !ok {
		span.Status = sentry.SpanStatusNotFound
		return nil, fmt.Errorf("%w: %s", ErrHoldingNotFound, symbol)
	}

	aggregated := buildAggregatedHolding(holding, quoteRes.quote, fundamentals)
	zap.L().Debug(ps.cache.Set(key, aggregated))
	return aggregated, nil
}

// an unpriced quote would show as a total loss, so it counts as missing
func quoteAvailable(res quoteResult) bool {
	return res.err == nil && res.quote != nil && res.quote.Price > 0
}

func quoteError(symbol string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s: no market price", ErrQuoteUnavailable, symbol)
	}
	return fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
}

func buildAggregatedHolding(holding types.Holding, quote *types.Quote, fundamentals *types.DerivedFinancials) *types.AggregatedHolding {
	investment := holding.PurchasePrice * holding.Quantity
	presentValue := quote.Price * holding.Quantity
	gainLoss := presentValue - investment

	gainLossPercent := 0.0
	if investment > 0 {
		gainLossPercent = gainLoss / investment * 100
	}

	peRatio := quote.TrailingPE
	if fundamentals != nil && fundamentals.PE != nil {
		peRatio = *fundamentals.PE
	}

	displayName := quote.LongName
	if displayName == "" {
		displayName = holding.Symbol
	}

	return &types.AggregatedHolding{
		Symbol:           holding.Symbol,
		DisplayName:      displayName,
		PurchasePrice:    holding.PurchasePrice,
		Quantity:         holding.Quantity,
		Investment:       investment,
		PortfolioPercent: holding.PortfolioPercent,
		CMP:              quote.Price,
		PresentValue:     presentValue,
		GainLoss:         gainLoss,
		GainLossPercent:  gainLossPercent,
		PERatio:          peRatio,
		LatestEarnings:   quote.EPSTTM,
		Sector:           holding.Sector,
		Fundamentals:     fundamentals,
	}
}

// AggregatePortfolio aggregates every holding concurrently. The result keeps
// the input order; holdings that could not be priced are left out.
func (ps *portfolioService) AggregatePortfolio(ctx context.Context, holdings []types.Holding) []types.AggregatedHolding {
	span := sentry.StartSpan(ctx, "[Service] AggregatePortfolio")
	defer span.Finish()

	results := make([]*types.AggregatedHolding, len(holdings))
	var wg sync.WaitGroup
	for i, holding := range holdings {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			aggregated, err := ps.Aggregate(span.Context(), symbol)
			if err != nil {
				zap.L().Warn("Skipping holding", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			results[i] = aggregated
		}(i, holding.Symbol)
	}
	wg.Wait()

	aggregated := make([]types.AggregatedHolding, 0, len(holdings))
	for _, result := range results {
		if result != nil {
			aggregated = append(aggregated, *result)
		}
	}
	return aggregated
}
