package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	kafka_client "portfoliobackend/clients/kafka"
	rabbitmq_client "portfoliobackend/clients/rabbitmq"
	"portfoliobackend/config"
	"portfoliobackend/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher delivers portfolio refresh events to a message broker
type EventPublisher interface {
	Publish(ctx context.Context, event types.PortfolioRefreshedEvent) error
	Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, event types.PortfolioRefreshedEvent) error {
	zap.L().Debug("Portfolio refreshed", zap.String("id", event.ID), zap.Int("aggregated", event.Aggregated))
	return nil
}

func (noopPublisher) Close() {}

// NoopPublisher only logs events
func NoopPublisher() EventPublisher {
	return noopPublisher{}
}

// NewEventPublisher connects to the configured sink: "none", "kafka" or "rabbitmq"
func NewEventPublisher(ctx context.Context, cfg config.EventsConfig) (EventPublisher, error) {
	switch strings.ToLower(cfg.Sink) {
	case "", "none":
		return noopPublisher{}, nil
	case "kafka":
		producer, err := kafka_client.NewProducer(ctx, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return producer, nil
	case "rabbitmq":
		publisher, err := rabbitmq_client.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown events sink %q", cfg.Sink)
	}
}

// NewRefreshedEvent summarises one refresh cycle. Requested holdings missing
// from aggregated are reported as skipped.
func NewRefreshedEvent(requested []types.Holding, aggregated []types.AggregatedHolding, refreshedAt time.Time) types.PortfolioRefreshedEvent {
	priced := make(map[string]bool, len(aggregated))
	for _, holding := range aggregated {
		priced[holding.Symbol] = true
	}
	skipped := []string{}
	for _, holding := range requested {
		if !priced[holding.Symbol] {
			skipped = append(skipped, holding.Symbol)
		}
	}

	total := RollupTotal(RollupSectors(aggregated))
	return types.PortfolioRefreshedEvent{
		ID:                uuid.New().String(),
		RefreshedAt:       refreshedAt.UTC(),
		Requested:         len(requested),
		Aggregated:        len(aggregated),
		SkippedSymbols:    skipped,
		TotalInvestment:   total.TotalInvestment,
		TotalPresentValue: total.TotalPresentValue,
		TotalGainLoss:     total.TotalGainLoss,
	}
}
