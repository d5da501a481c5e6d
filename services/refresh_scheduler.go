package services

import (
	"context"
	"time"

	"portfoliobackend/types"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RefreshScheduler re-aggregates the portfolio on a cron schedule so that
// dashboard polls are served from a warm cache.
type RefreshScheduler struct {
	cron      *cron.Cron
	schedule  string
	portfolio PortfolioServiceI
	publisher EventPublisher
	timeout   time.Duration
}

func NewRefreshScheduler(schedule string, portfolio PortfolioServiceI, publisher EventPublisher, timeout time.Duration) *RefreshScheduler {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &RefreshScheduler{
		// an overlapping cycle would only duplicate upstream fetches
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule:  schedule,
		portfolio: portfolio,
		publisher: publisher,
		timeout:   timeout,
	}
}

func (s *RefreshScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	zap.L().Info("Portfolio refresh scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish
func (s *RefreshScheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("Portfolio refresh scheduler stopped")
}

// RunOnce aggregates every holding and publishes the resulting event
func (s *RefreshScheduler) RunOnce(ctx context.Context) types.PortfolioRefreshedEvent {
	defer sentry.Recover()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	span := sentry.StartSpan(ctx, "[Cron] RefreshPortfolio")
	defer span.Finish()

	start := time.Now()
	holdings := s.portfolio.Holdings()
	aggregated := s.portfolio.AggregatePortfolio(span.Context(), holdings)
	event := NewRefreshedEvent(holdings, aggregated, time.Now())

	if err := s.publisher.Publish(span.Context(), event); err != nil {
		sentry.CaptureException(err)
		zap.L().Error("Failed to publish refresh event", zap.String("id", event.ID), zap.Error(err))
	}

	zap.L().Info("Portfolio refreshed",
		zap.Int("requested", event.Requested),
		zap.Int("aggregated", event.Aggregated),
		zap.Strings("skipped", event.SkippedSymbols),
		zap.Duration("duration", time.Since(start)))
	return event
}
