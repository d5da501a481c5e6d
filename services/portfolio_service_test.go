package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"portfoliobackend/types"
	"portfoliobackend/utils/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]*types.Quote
	calls  map[string]int
}

func (f *fakeQuotes) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[symbol]++
	quote, ok := f.quotes[symbol]
	if !ok {
		return nil, errors.New("Yahoo Finance API returned status 404")
	}
	return quote, nil
}

type fakeSnapshots struct {
	mu        sync.Mutex
	snapshots map[string]*types.FinancialsSnapshot
	calls     int
}

func (f *fakeSnapshots) FetchSnapshot(ctx context.Context, symbol string) (*types.FinancialsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	snapshot, ok := f.snapshots[symbol]
	if !ok {
		return nil, errors.New("failed to fetch the URL: context deadline exceeded")
	}
	return snapshot, nil
}

func snapshotWithPE(pe string) *types.FinancialsSnapshot {
	snapshot := types.NewFinancialsSnapshot()
	snapshot.TopRatios["Stock P/E"] = pe
	snapshot.BalanceSheetLatest["Borrowing"] = "60"
	snapshot.BalanceSheetLatest["Equity Capital"] = "20"
	return snapshot
}

func newTestPortfolio(t *testing.T, quotes *fakeQuotes, snapshots *fakeSnapshots) PortfolioServiceI {
	t.Helper()
	table, err := NewHoldingsTable([]types.Holding{
		{Symbol: "HDFCBANK", PurchasePrice: 100, Quantity: 10, PortfolioPercent: 50, Sector: "Financial Sector"},
		{Symbol: "INFY", PurchasePrice: 200, Quantity: 5, PortfolioPercent: 50, Sector: "Tech Sector"},
	})
	require.NoError(t, err)
	return NewPortfolioService(table, quotes, snapshots, cache.New[*types.AggregatedHolding](30*time.Second))
}

func TestAggregate_BothSourcesAvailable(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{
		"HDFCBANK": {Price: 120, TrailingPE: 19.5, EPSTTM: 80.1, LongName: "HDFC Bank Limited"},
	}}
	snapshots := &fakeSnapshots{snapshots: map[string]*types.FinancialsSnapshot{"HDFCBANK": snapshotWithPE("18.2")}}

	aggregated, err := newTestPortfolio(t, quotes, snapshots).Aggregate(context.Background(), "HDFCBANK")
	require.NoError(t, err)

	assert.Equal(t, "HDFC Bank Limited", aggregated.DisplayName)
	assert.Equal(t, 1000.0, aggregated.Investment)
	assert.Equal(t, 1200.0, aggregated.PresentValue)
	assert.Equal(t, 200.0, aggregated.GainLoss)
	assert.Equal(t, 20.0, aggregated.GainLossPercent)
	assert.Equal(t, 18.2, aggregated.PERatio)
	assert.Equal(t, 80.1, aggregated.LatestEarnings)
	assert.Equal(t, "Financial Sector", aggregated.Sector)
	require.NotNil(t, aggregated.Fundamentals)
	assert.Equal(t, 3.0, *aggregated.Fundamentals.DebtToEquity)
}

func TestAggregate_MarkupFailureFallsBackToQuote(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{"INFY": {Price: 180, TrailingPE: 24.7}}}
	snapshots := &fakeSnapshots{}

	aggregated, err := newTestPortfolio(t, quotes, snapshots).Aggregate(context.Background(), "INFY")
	require.NoError(t, err)

	assert.Nil(t, aggregated.Fundamentals)
	assert.Equal(t, "INFY", aggregated.DisplayName)
	assert.Equal(t, 900.0, aggregated.PresentValue)
	assert.Equal(t, -100.0, aggregated.GainLoss)
	assert.Equal(t, 24.7, aggregated.PERatio)
}

func TestAggregate_ScrapedPELabelMissingUsesQuotePE(t *testing.T) {
	snapshot := snapshotWithPE("")
	delete(snapshot.TopRatios, "Stock P/E")
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{"INFY": {Price: 180, TrailingPE: 24.7}}}
	snapshots := &fakeSnapshots{snapshots: map[string]*types.FinancialsSnapshot{"INFY": snapshot}}

	aggregated, err := newTestPortfolio(t, quotes, snapshots).Aggregate(context.Background(), "INFY")
	require.NoError(t, err)
	assert.NotNil(t, aggregated.Fundamentals)
	assert.Equal(t, 24.7, aggregated.PERatio)
}

func TestAggregate_BlankScrapedPEIsZero(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{"INFY": {Price: 180, TrailingPE: 24.7}}}
	snapshots := &fakeSnapshots{snapshots: map[string]*types.FinancialsSnapshot{"INFY": snapshotWithPE("")}}

	aggregated, err := newTestPortfolio(t, quotes, snapshots).Aggregate(context.Background(), "INFY")
	require.NoError(t, err)
	require.NotNil(t, aggregated.Fundamentals.PE)
	assert.Equal(t, 0.0, *aggregated.Fundamentals.PE)
	assert.Equal(t, 0.0, aggregated.PERatio)
}

func TestAggregate_UnpricedQuoteIsAbsent(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{"INFY": {TrailingPE: 24.7, LongName: "Infosys Limited"}}}
	snapshots := &fakeSnapshots{snapshots: map[string]*types.FinancialsSnapshot{"INFY": snapshotWithPE("24.1")}}
	service := newTestPortfolio(t, quotes, snapshots)

	aggregated, err := service.Aggregate(context.Background(), "INFY")
	assert.Nil(t, aggregated)
	assert.True(t, errors.Is(err, ErrQuoteUnavailable))
	assert.Empty(t, service.AggregatePortfolio(context.Background(), service.Holdings()[1:]))
}

func TestAggregate_QuoteFailureIsAbsent(t *testing.T) {
	snapshots := &fakeSnapshots{snapshots: map[string]*types.FinancialsSnapshot{"HDFCBANK": snapshotWithPE("18.2")}}

	aggregated, err := newTestPortfolio(t, &fakeQuotes{}, snapshots).Aggregate(context.Background(), "HDFCBANK")
	assert.Nil(t, aggregated)
	assert.True(t, errors.Is(err, ErrQuoteUnavailable))
}

func TestAggregate_BothSourcesFail(t *testing.T) {
	_, err := newTestPortfolio(t, &fakeQuotes{}, &fakeSnapshots{}).Aggregate(context.Background(), "HDFCBANK")
	assert.True(t, errors.Is(err, ErrQuoteUnavailable))
}

func TestAggregate_UnknownHolding(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{"TCS": {Price: 4000}}}

	_, err := newTestPortfolio(t, quotes, &fakeSnapshots{}).Aggregate(context.Background(), "TCS")
	assert.True(t, errors.Is(err, ErrHoldingNotFound))
}

func TestAggregate_SecondCallWithinTTLIsCacheHit(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{"HDFCBANK": {Price: 120, LongName: "HDFC Bank Limited"}}}
	snapshots := &fakeSnapshots{snapshots: map[string]*types.FinancialsSnapshot{"HDFCBANK": snapshotWithPE("18.2")}}
	service := newTestPortfolio(t, quotes, snapshots)

	first, err := service.Aggregate(context.Background(), "HDFCBANK")
	require.NoError(t, err)
	second, err := service.Aggregate(context.Background(), "HDFCBANK")
	require.NoError(t, err)

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, 1, quotes.calls["HDFCBANK"])
	assert.Equal(t, 1, snapshots.calls)

	service.Invalidate("hdfcbank")
	_, err = service.Aggregate(context.Background(), "HDFCBANK")
	require.NoError(t, err)
	assert.Equal(t, 2, quotes.calls["HDFCBANK"])
}

func TestAggregate_FailureIsNotCached(t *testing.T) {
	quotes := &fakeQuotes{}
	service := newTestPortfolio(t, quotes, &fakeSnapshots{})

	_, err := service.Aggregate(context.Background(), "INFY")
	require.Error(t, err)

	quotes.quotes = map[string]*types.Quote{"INFY": {Price: 180}}
	aggregated, err := service.Aggregate(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, 180.0, aggregated.CMP)
}

func TestAggregatePortfolio_OmitsFailedHoldings(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{"INFY": {Price: 180}}}
	service := newTestPortfolio(t, quotes, &fakeSnapshots{})

	aggregated := service.AggregatePortfolio(context.Background(), service.Holdings())
	require.Len(t, aggregated, 1)
	assert.Equal(t, "INFY", aggregated[0].Symbol)
}

func TestAggregatePortfolio_KeepsInputOrder(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*types.Quote{
		"HDFCBANK": {Price: 120},
		"INFY":     {Price: 180},
	}}
	service := newTestPortfolio(t, quotes, &fakeSnapshots{})

	aggregated := service.AggregatePortfolio(context.Background(), service.Holdings())
	require.Len(t, aggregated, 2)
	assert.Equal(t, "HDFCBANK", aggregated[0].Symbol)
	assert.Equal(t, "INFY", aggregated[1].Symbol)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "HDFCBANK_complete", CacheKey("HDFCBANK"))
	assert.Equal(t, "532174_complete", CacheKey(" 532174 "))
}

// rendezvous lets two fetchers each block until the other one has started
type rendezvous struct {
	started map[string]chan struct{}
}

func newRendezvous(names ...string) *rendezvous {
	r := &rendezvous{started: map[string]chan struct{}{}}
	for _, name := range names {
		r.started[name] = make(chan struct{})
	}
	return r
}

func (r *rendezvous) arrive(name, peer string) error {
	close(r.started[name])
	select {
	case <-r.started[peer]:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New(name + " ran without " + peer)
	}
}

type meetingQuotes struct {
	meet  *rendezvous
	peers map[string]string
	quote *types.Quote
}

func (m *meetingQuotes) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	if err := m.meet.arrive(symbol, m.peers[symbol]); err != nil {
		return nil, err
	}
	return m.quote, nil
}

type meetingSnapshots struct {
	meet *rendezvous
}

func (m *meetingSnapshots) FetchSnapshot(ctx context.Context, symbol string) (*types.FinancialsSnapshot, error) {
	if err := m.meet.arrive("markup", "quote"); err != nil {
		return nil, err
	}
	return snapshotWithPE("18.2"), nil
}

type quoteMeetsMarkup struct {
	meet *rendezvous
}

func (q *quoteMeetsMarkup) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	if err := q.meet.arrive("quote", "markup"); err != nil {
		return nil, err
	}
	return &types.Quote{Price: 120}, nil
}

func TestAggregate_FetchesQuoteAndMarkupConcurrently(t *testing.T) {
	meet := newRendezvous("quote", "markup")
	table, err := NewHoldingsTable([]types.Holding{{Symbol: "HDFCBANK", PurchasePrice: 100, Quantity: 10}})
	require.NoError(t, err)
	service := NewPortfolioService(table, &quoteMeetsMarkup{meet: meet}, &meetingSnapshots{meet: meet},
		cache.New[*types.AggregatedHolding](30*time.Second))

	aggregated, err := service.Aggregate(context.Background(), "HDFCBANK")
	require.NoError(t, err)
	assert.NotNil(t, aggregated.Fundamentals)
	assert.Equal(t, 18.2, aggregated.PERatio)
}

func TestAggregatePortfolio_AggregatesHoldingsConcurrently(t *testing.T) {
	meet := newRendezvous("HDFCBANK", "INFY")
	quotes := &meetingQuotes{
		meet:  meet,
		peers: map[string]string{"HDFCBANK": "INFY", "INFY": "HDFCBANK"},
		quote: &types.Quote{Price: 150},
	}
	table, err := NewHoldingsTable([]types.Holding{
		{Symbol: "HDFCBANK", PurchasePrice: 100, Quantity: 10},
		{Symbol: "INFY", PurchasePrice: 200, Quantity: 5},
	})
	require.NoError(t, err)
	service := NewPortfolioService(table, quotes, &fakeSnapshots{}, cache.New[*types.AggregatedHolding](30*time.Second))

	aggregated := service.AggregatePortfolio(context.Background(), service.Holdings())
	require.Len(t, aggregated, 2)
	assert.Equal(t, "HDFCBANK", aggregated[0].Symbol)
	assert.Equal(t, "INFY", aggregated[1].Symbol)
}
