package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// RabbitConsumer publishes every decoded event to one durable queue. Events
// are published on the default exchange keyed by queue name; consumers on
// the relay side fan out from there.
type RabbitConsumer struct {
	cfg     *config.QueueConfig
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitConsumer(cfg *config.QueueConfig) *RabbitConsumer {
	return &RabbitConsumer{cfg: cfg}
}

func (c *RabbitConsumer) Start(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to queue broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open queue channel: %w", err)
	}

	if _, err := channel.QueueDeclare(
		c.cfg.QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", c.cfg.QueueName, err)
	}

	c.conn = conn
	c.channel = channel
	log.Ctx(ctx).Info().Str("queue", c.cfg.QueueName).Msg("event egress connected")
	return nil
}

func (c *RabbitConsumer) PushHTLCEvent(ctx context.Context, ev *types.HTLCEvent) error {
	if c.channel == nil {
		return fmt.Errorf("event egress is not started")
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal HTLC event: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		"",              // default exchange
		c.cfg.QueueName, // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         ev.Type.String(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish HTLC event %s: %w", ev.HTLCID, err)
	}
	return nil
}

func (c *RabbitConsumer) Stop() error {
	log.Info().Msg("shutting down event egress")
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return fmt.Errorf("failed to close queue channel: %w", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("failed to close queue connection: %w", err)
		}
	}
	return nil
}
