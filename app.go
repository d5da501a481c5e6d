package main

import (
	"context"
	"strings"

	"portfoliobackend/clients/http_client"
	mongo_client "portfoliobackend/clients/mongo"
	"portfoliobackend/clients/yahoo"
	"portfoliobackend/config"
	"portfoliobackend/services"
	"portfoliobackend/types"
	"portfoliobackend/utils/cache"

	"go.uber.org/zap"
)

// application holds the long-lived dependencies shared by every command
type application struct {
	cfg       *config.Config
	screener  services.ScreenerServiceI
	portfolio services.PortfolioServiceI
	closers   []func()
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg}

	var store services.HoldingsStore
	if strings.EqualFold(cfg.Holdings.Source, "mongo") {
		mongoStore, err := mongo_client.Connect(ctx, cfg.Holdings.MongoURI, cfg.Holdings.Database, cfg.Holdings.Collection)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() {
			if err := mongoStore.Disconnect(context.Background()); err != nil {
				zap.L().Error("Error disconnecting from MongoDB", zap.Error(err))
			}
		})
		store = mongoStore
	}

	holdings, err := services.LoadHoldings(ctx, cfg.Holdings, store)
	if err != nil {
		app.Close()
		return nil, err
	}

	pages := http_client.NewPageClient(cfg.Screener.Timeout.Duration, http_client.WithRateLimit(cfg.Screener.RequestsPerSecond, cfg.Screener.Burst))
	app.screener = services.NewScreenerService(cfg.Screener.BaseURL, pages)
	quotes := yahoo.NewClient(cfg.Quote.BaseURL, cfg.Quote.Timeout.Duration)
	app.portfolio = services.NewPortfolioService(holdings, quotes, app.screener, cache.New[*types.AggregatedHolding](cfg.Cache.TTL.Duration))
	return app, nil
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
