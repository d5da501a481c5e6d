package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"portfoliobackend/utils/constants"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"`
	LogLevel    string         `toml:"log_level"`
	Server      ServerConfig   `toml:"server"`
	Screener    ScreenerConfig `toml:"screener"`
	Quote       QuoteConfig    `toml:"quote"`
	Cache       CacheConfig    `toml:"cache"`
	Refresh     RefreshConfig  `toml:"refresh"`
	Holdings    HoldingsConfig `toml:"holdings"`
	Events      EventsConfig   `toml:"events"`
	Sentry      SentryConfig   `toml:"sentry"`

	// notices are collected while loading, before the logger exists
	notices []notice
}

type notice struct {
	level   zapcore.Level
	message string
	fields  []zap.Field
}

func (c *Config) notice(level zapcore.Level, message string, fields ...zap.Field) {
	c.notices = append(c.notices, notice{level: level, message: message, fields: fields})
}

// LogNotices writes what Load found worth reporting through the global
// logger. Call it once the logger is set up.
func (c *Config) LogNotices() {
	for _, n := range c.notices {
		if ce := zap.L().Check(n.level, n.message); ce != nil {
			ce.Write(n.fields...)
		}
	}
	c.notices = nil
}

// Duration reads "10s" style strings from TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type ScreenerConfig struct {
	BaseURL           string   `toml:"base_url"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
}

type QuoteConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type CacheConfig struct {
	TTL Duration `toml:"ttl"`
}

type RefreshConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron spec, e.g. "@every 15s"
}

type HoldingsConfig struct {
	Source     string `toml:"source"` // "default", "xlsx" or "mongo"
	File       string `toml:"file"`
	Sheet      string `toml:"sheet"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type EventsConfig struct {
	Sink     string         `toml:"sink"` // "none", "kafka" or "rabbitmq"
	Kafka    KafkaConfig    `toml:"kafka"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
}

type KafkaConfig struct {
	BootstrapServers  string `toml:"bootstrap_servers"`
	Topic             string `toml:"topic"`
	Partitions        int    `toml:"partitions"`
	ReplicationFactor int    `toml:"replication_factor"`
}

type RabbitMQConfig struct {
	Server string `toml:"server"`
	Port   string `toml:"port"`
	User   string `toml:"user"`
	Pass   string `toml:"pass"`
	Queue  string `toml:"queue"`
}

type SentryConfig struct {
	DSN        string  `toml:"dsn"`
	SampleRate float64 `toml:"sample_rate"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Server:      ServerConfig{Port: constants.DefaultPort},
		Screener: ScreenerConfig{
			BaseURL:           constants.DefaultCompanyURL,
			Timeout:           Duration{constants.DefaultFetchTimeout},
			RequestsPerSecond: constants.DefaultScreenerRPS,
			Burst:             constants.DefaultScreenerBurst,
		},
		Quote: QuoteConfig{
			BaseURL: constants.DefaultQuoteURL,
			Timeout: Duration{constants.DefaultFetchTimeout},
		},
		Cache:    CacheConfig{TTL: Duration{constants.DefaultCacheTTL}},
		Refresh:  RefreshConfig{Enabled: true, Schedule: constants.DefaultRefreshSchedule},
		Holdings: HoldingsConfig{Source: "default", Sheet: "Sheet1", Database: "portfolio", Collection: "holdings"},
		Events: EventsConfig{
			Sink: "none",
			Kafka: KafkaConfig{
				Topic:             "portfolio-refreshed",
				Partitions:        1,
				ReplicationFactor: 1,
			},
			RabbitMQ: RabbitMQConfig{Server: "localhost", Port: "5672", User: "guest", Pass: "guest", Queue: "portfoliobackend"},
		},
		Sentry: SentryConfig{SampleRate: 1.0},
	}
}

// Load reads .env (if any), then the TOML file at path (if any), then
// applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cfg.notice(zapcore.WarnLevel, "Could not load .env file", zap.Error(err))
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			cfg.notice(zapcore.InfoLevel, "No config file, using defaults", zap.String("path", path))
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetEnv retrieves the environment variable with a default value if not set.
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func applyEnv(cfg *Config) error {
	cfg.Environment = GetEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = GetEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Server.Port = GetEnv("PORT", cfg.Server.Port)
	cfg.Screener.BaseURL = GetEnv("COMPANY_URL", cfg.Screener.BaseURL)
	cfg.Quote.BaseURL = GetEnv("QUOTE_URL", cfg.Quote.BaseURL)
	cfg.Refresh.Schedule = GetEnv("REFRESH_SCHEDULE", cfg.Refresh.Schedule)
	cfg.Holdings.Source = GetEnv("HOLDINGS_SOURCE", cfg.Holdings.Source)
	cfg.Holdings.File = GetEnv("HOLDINGS_FILE", cfg.Holdings.File)
	cfg.Holdings.Sheet = GetEnv("HOLDINGS_SHEET", cfg.Holdings.Sheet)
	cfg.Holdings.MongoURI = GetEnv("MONGO_URI", cfg.Holdings.MongoURI)
	cfg.Holdings.Database = GetEnv("DATABASE", cfg.Holdings.Database)
	cfg.Holdings.Collection = GetEnv("HOLDINGS_COLLECTION", cfg.Holdings.Collection)
	cfg.Events.Sink = GetEnv("EVENTS_SINK", cfg.Events.Sink)
	cfg.Events.Kafka.BootstrapServers = GetEnv("KAFKA_BOOTSTRAPSERVERS", cfg.Events.Kafka.BootstrapServers)
	cfg.Events.Kafka.Topic = GetEnv("KAFKA_TOPIC", cfg.Events.Kafka.Topic)
	cfg.Events.RabbitMQ.Server = GetEnv("RABBITMQ_SERVER", cfg.Events.RabbitMQ.Server)
	cfg.Events.RabbitMQ.Port = GetEnv("RABBITMQ_PORT", cfg.Events.RabbitMQ.Port)
	cfg.Events.RabbitMQ.User = GetEnv("RABBITMQ_USER", cfg.Events.RabbitMQ.User)
	cfg.Events.RabbitMQ.Pass = GetEnv("RABBITMQ_PASS", cfg.Events.RabbitMQ.Pass)
	cfg.Sentry.DSN = GetEnv("SENTRY_DSN", cfg.Sentry.DSN)

	var err error
	if cfg.Cache.TTL.Duration, err = durationEnv("CACHE_TTL", cfg.Cache.TTL.Duration); err != nil {
		return err
	}
	if cfg.Screener.Timeout.Duration, err = durationEnv("FETCH_TIMEOUT", cfg.Screener.Timeout.Duration); err != nil {
		return err
	}
	if cfg.Quote.Timeout.Duration, err = durationEnv("QUOTE_TIMEOUT", cfg.Quote.Timeout.Duration); err != nil {
		return err
	}
	if cfg.Screener.RequestsPerSecond, err = floatEnv("SCREENER_RPS", cfg.Screener.RequestsPerSecond); err != nil {
		return err
	}
	// 1.0 by default if ENV SENTRY_SAMPLE_RATE not set
	if cfg.Sentry.SampleRate, err = floatEnv("SENTRY_SAMPLE_RATE", cfg.Sentry.SampleRate); err != nil {
		return err
	}
	if v := os.Getenv("SCREENER_BURST"); v != "" {
		if cfg.Screener.Burst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid SCREENER_BURST %q: %w", v, err)
		}
	}
	if v := os.Getenv("KAFKA_TOPIC_PARTITIONS"); v != "" {
		if cfg.Events.Kafka.Partitions, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid KAFKA_TOPIC_PARTITIONS %q: %w", v, err)
		}
	}
	if v := os.Getenv("KAFKA_TOPIC_REPL_FACTOR"); v != "" {
		if cfg.Events.Kafka.ReplicationFactor, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid KAFKA_TOPIC_REPL_FACTOR %q: %w", v, err)
		}
	}
	if v := os.Getenv("REFRESH_ENABLED"); v != "" {
		if cfg.Refresh.Enabled, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid REFRESH_ENABLED %q: %w", v, err)
		}
	}
	return nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
