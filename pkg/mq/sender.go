package mq

import (
	"fmt"

	"github.com/wyfcoding/storefront/pkg/config"
)

// NewSender 按配置选择消息投递实现
func NewSender(cfg config.MessagingConfig) (Sender, error) {
	switch cfg.Driver {
	case "kafka":
		return NewProducer(KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
	case "rabbitmq":
		return NewRabbitPublisher(RabbitMQConfig{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			PoolSize: cfg.RabbitMQ.PoolSize,
		})
	case "none", "":
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Driver)
	}
}
