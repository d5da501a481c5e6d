package main

import (
	"context"
	"flag"
	"os"
	"path"

	"portfoliobackend/config"

	"github.com/getsentry/sentry-go"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

func setupLogger(level string) {
	zapConfig := zap.NewProductionConfig()
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		atomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = atomicLevel
	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

func setupSentry(cfg *config.Config) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.Sentry.DSN,
		Environment:   cfg.Environment,
		EnableTracing: true,
		// Set TracesSampleRate to 1.0 to capture 100%
		// of transactions for tracing.
		TracesSampleRate: cfg.Sentry.SampleRate,
	}); err != nil {
		zap.L().Error("Sentry initialization failed: ", zap.Any("error", err.Error()))
	}
}

// loadConfig reads the configuration and sets up logging from it
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.LogLevel)
	cfg.LogNotices()
	return cfg, nil
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&inspectCmd{}, "tools")
	commander.Register(&snapshotCmd{}, "tools")

	flag.Parse()
	// the hosting platform starts the binary without arguments
	if flag.NArg() == 0 {
		_ = flag.CommandLine.Parse([]string{"serve"})
	}

	status := commander.Execute(context.Background())
	_ = zap.L().Sync()
	os.Exit(int(status))
}
