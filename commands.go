package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"portfoliobackend/controllers"
	"portfoliobackend/middleware"
	"portfoliobackend/routes"
	"portfoliobackend/services"
	"portfoliobackend/types"
	"portfoliobackend/utils/constants"
	"portfoliobackend/utils/helpers"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

const defaultConfigPath = "config.toml"

type serveCmd struct {
	configPath string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the portfolio API server" }
func (*serveCmd) Usage() string {
	return `serve [-config <file>]

  Serves the portfolio dashboard API and keeps the holdings cache warm on
  the refresh schedule.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "TOML configuration file; missing file means defaults")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	setupSentry(cfg)
	defer sentry.Flush(2 * time.Second)

	app, err := newApplication(ctx, cfg)
	if err != nil {
		zap.L().Error("Failed to start", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer app.Close()

	publisher, err := services.NewEventPublisher(ctx, cfg.Events)
	if err != nil {
		// refresh events are optional, the API works without them
		zap.L().Error("Event sink unavailable, events are dropped", zap.String("sink", cfg.Events.Sink), zap.Error(err))
		publisher = services.NoopPublisher()
	}
	defer publisher.Close()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(sentrygin.New(sentrygin.Options{}))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	routes.Routes(router,
		controllers.NewPortfolioController(app.portfolio),
		controllers.NewScreenerController(app.screener, constants.ScreenerSymbols))

	var scheduler *services.RefreshScheduler
	if cfg.Refresh.Enabled {
		scheduler = services.NewRefreshScheduler(cfg.Refresh.Schedule, app.portfolio, publisher, cfg.Screener.Timeout.Duration*2)
		if err := scheduler.Start(); err != nil {
			zap.L().Error("Invalid refresh schedule", zap.String("schedule", cfg.Refresh.Schedule), zap.Error(err))
			return subcommands.ExitFailure
		}
	}

	// Create a server instance using gin engine as handler
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	done := GracefulShutdown(server, scheduler)

	zap.L().Info("Server starting", zap.String("port", cfg.Server.Port), zap.Int("holdings", len(app.portfolio.Holdings())))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("Error starting server", zap.Error(err))
		return subcommands.ExitFailure
	}
	<-done
	return subcommands.ExitSuccess
}

// GracefulShutdown stops the server and the refresh scheduler on SIGINT or
// SIGTERM. The returned channel is closed once shutdown has finished.
func GracefulShutdown(server *http.Server, scheduler *services.RefreshScheduler) <-chan struct{} {
	done := make(chan struct{})
	stopper := make(chan os.Signal, 1)
	// Listen for interrupt and SIGTERM signals
	signal.Notify(stopper, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer close(done)
		<-stopper
		zap.L().Info("Shutting down gracefully...")

		if scheduler != nil {
			scheduler.Stop()
		}
		// Create a context with a timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Shut down the server
		if err := server.Shutdown(ctx); err != nil {
			zap.L().Error("Server shutdown failed", zap.Error(err))
			return
		}
		zap.L().Info("Server exited gracefully")
	}()
	return done
}

type inspectCmd struct {
	configPath string
	derived    bool
}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "print what is scraped from one company page" }
func (*inspectCmd) Usage() string {
	return `inspect [-config <file>] [-derived] <symbol>

  Fetches the fundamentals page of <symbol> and prints the raw snapshot as
  JSON, or the derived financials with -derived.
`
}

func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "TOML configuration file")
	f.BoolVar(&c.derived, "derived", false, "print derived financials instead of the raw snapshot")
}

func (c *inspectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	app, err := newApplication(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	snapshot, err := app.screener.FetchSnapshot(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	var out interface{} = snapshot
	if c.derived {
		out = services.DeriveFinancials(snapshot)
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type snapshotCmd struct {
	configPath string
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "print the aggregated portfolio once" }
func (*snapshotCmd) Usage() string {
	return `snapshot [-config <file>]

  Aggregates every holding once and prints the holdings and sector totals.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "TOML configuration file")
}

func (c *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	app, err := newApplication(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	holdings := app.portfolio.Holdings()
	aggregated := app.portfolio.AggregatePortfolio(ctx, holdings)
	if err := writeSnapshot(os.Stdout, aggregated, services.RollupSectors(aggregated)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if skipped := len(holdings) - len(aggregated); skipped > 0 {
		fmt.Fprintf(os.Stderr, "%d holdings could not be priced\n", skipped)
	}
	return subcommands.ExitSuccess
}

func writeSnapshot(w io.Writer, holdings []types.AggregatedHolding, sectors []types.SectorSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Symbol\tCMP\tInvestment\tPresent value\tGain/Loss\t%\tP/E\t")
	for _, h := range holdings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t\n", h.Symbol,
			helpers.FormatINR(h.CMP), helpers.FormatINR(h.Investment), helpers.FormatINR(h.PresentValue),
			helpers.FormatINR(h.GainLoss), h.GainLossPercent, h.PERatio)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t\t\t")
	fmt.Fprintln(tw, "Sector\tHoldings\tInvestment\tPresent value\tGain/Loss\t%\t\t")
	rows := make([]types.SectorSummary, 0, len(sectors)+1)
	rows = append(rows, sectors...)
	rows = append(rows, services.RollupTotal(sectors))
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%.2f\t\t\n", s.Sector, s.Holdings,
			helpers.FormatINR(s.TotalInvestment), helpers.FormatINR(s.TotalPresentValue),
			helpers.FormatINR(s.TotalGainLoss), s.GainLossPercent)
	}
	return tw.Flush()
}
