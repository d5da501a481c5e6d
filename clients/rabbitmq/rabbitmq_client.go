package rabbitmq_client

import (
	"context"
	"encoding/json"
	"fmt"

	"portfoliobackend/config"
	"portfoliobackend/types"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Publisher sends portfolio refresh events to a durable queue
type Publisher struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queue      amqp.Queue
}

// URL builds the AMQP dial URL from cfg
func URL(cfg config.RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.User, cfg.Pass, cfg.Server, cfg.Port)
}

func NewPublisher(cfg config.RabbitMQConfig) (*Publisher, error) {
	zap.L().Sugar().Infof("RabbitMQ Server: %s", cfg.Server)
	zap.L().Sugar().Infof("RabbitMQ Port: %s", cfg.Port)
	zap.L().Sugar().Infof("RabbitMQ User: %s", cfg.User)

	conn, err := amqp.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("rabbitmq initialization failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq - failed to open a channel: %w", err)
	}

	// Declare the queue so it exists before messages are published
	q, err := ch.QueueDeclare(
		cfg.Queue, // Name of the queue
		true,      // Durable
		false,     // Delete when unused
		false,     // Exclusive
		false,     // No-wait
		nil,       // Arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq - failed to declare a queue: %w", err)
	}

	zap.L().Info("Connected to RabbitMQ.")
	return &Publisher{connection: conn, channel: ch, queue: q}, nil
}

func (p *Publisher) Publish(ctx context.Context, event types.PortfolioRefreshedEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	zap.L().Sugar().Debugf("Sending message to rabbitmq: %s", message)
	err = p.channel.Publish(
		"",           // Exchange (empty means default)
		p.queue.Name, // Routing key (queue name in this case)
		false,        // Mandatory
		false,        // Immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.ID,
			Timestamp:   event.RefreshedAt,
			Body:        message,
		})
	if err != nil {
		return fmt.Errorf("error publishing message to rabbitmq: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.channel.Close()
	p.connection.Close()
}
