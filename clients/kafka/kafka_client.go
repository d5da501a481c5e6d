package kafka_client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portfoliobackend/config"
	"portfoliobackend/types"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Producer publishes portfolio refresh events to one Kafka topic
type Producer struct {
	producer *kafka.Producer
	topic    string
}

func NewProducer(ctx context.Context, cfg config.KafkaConfig) (*Producer, error) {
	zap.L().Info("KAFKA_BOOTSTRAPSERVERS: ", zap.String("uri", cfg.BootstrapServers))

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"client.id":         "portfoliobackend",
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer initialization failed: %w", err)
	}

	// Delivery report handler for produced messages
	go func() {
		for e := range producer.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					zap.L().Error("Kafka Delivery failed: ", zap.Any("error", ev.TopicPartition.Error.Error()))
				} else {
					zap.L().Sugar().Infof("Delivered message to %s", *ev.TopicPartition.Topic)
				}
			}
		}
	}()

	p := &Producer{producer: producer, topic: cfg.Topic}
	if err := p.ensureTopic(ctx, cfg); err != nil {
		zap.L().Error("Failed to create topic: ", zap.Any("error", err.Error()))
	}
	return p, nil
}

func (p *Producer) ensureTopic(ctx context.Context, cfg config.KafkaConfig) error {
	admin, err := kafka.NewAdminClientFromProducer(p.producer)
	if err != nil {
		return err
	}
	defer admin.Close()

	results, err := admin.CreateTopics(
		ctx,
		[]kafka.TopicSpecification{{
			Topic:             cfg.Topic,
			NumPartitions:     cfg.Partitions,
			ReplicationFactor: cfg.ReplicationFactor}},
		kafka.SetAdminOperationTimeout(60*time.Second))
	if err != nil {
		return err
	}
	zap.L().Sugar().Infof("Connected to Kafka %s", results)
	return nil
}

func (p *Producer) Publish(ctx context.Context, event types.PortfolioRefreshedEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	zap.L().Sugar().Debugf("Sending message to kafka: %s", message)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.ID),
		Value:          message,
	}, nil)
	if err != nil {
		return fmt.Errorf("error sending message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}
