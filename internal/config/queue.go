package config

import "fmt"

// QueueConfig wires the optional RabbitMQ event egress. When present, every
// decoded HTLC event is also published to the named queue for the external
// relay orchestrator.
type QueueConfig struct {
	URL       string `mapstructure:"url"`
	QueueName string `mapstructure:"queue-name"`
}

const defaultQueueName = "htlc-events"

func (cfg *QueueConfig) Validate() error {
	if cfg.URL == "" {
		return fmt.Errorf("queue url is required")
	}
	if cfg.QueueName == "" {
		cfg.QueueName = defaultQueueName
	}
	return nil
}
