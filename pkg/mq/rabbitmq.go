package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL      string
	Exchange string
	PoolSize int
}

// RabbitPublisher 基于 channel 池的 RabbitMQ 发布者，topic 作为 routing key 投递到 topic exchange
type RabbitPublisher struct {
	conn     *amqp.Connection
	channels chan *amqp.Channel
	exchange string
	mu       sync.Mutex
	closed   bool
}

// NewRabbitPublisher 连接 RabbitMQ 并预建 channel
func NewRabbitPublisher(cfg RabbitMQConfig) (*RabbitPublisher, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	p := &RabbitPublisher{
		conn:     conn,
		channels: make(chan *amqp.Channel, cfg.PoolSize),
		exchange: cfg.Exchange,
	}
	for i := 0; i < cfg.PoolSize; i++ {
		ch, err := p.createChannel()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to create channel %d: %w", i, err)
		}
		p.channels <- ch
	}

	logger.Info(context.Background(), "RabbitMQ publisher created", "exchange", cfg.Exchange, "pool_size", cfg.PoolSize)
	return p, nil
}

func (p *RabbitPublisher) createChannel() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	// 声明是幂等的
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return ch, nil
}

func (p *RabbitPublisher) acquire(ctx context.Context) (*amqp.Channel, error) {
	select {
	case ch, ok := <-p.channels:
		if !ok {
			return nil, errors.New("rabbitmq publisher closed")
		}
		if ch.IsClosed() {
			return p.createChannel()
		}
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *RabbitPublisher) release(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || ch == nil || ch.IsClosed() {
		if ch != nil && !ch.IsClosed() {
			ch.Close()
		}
		return
	}
	select {
	case p.channels <- ch:
	default:
		ch.Close()
	}
}

// SendMessage 发布一条持久化消息
func (p *RabbitPublisher) SendMessage(ctx context.Context, topic string, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch, err := p.acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.release(ch)

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(pubCtx, p.exchange, topic, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    key,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		logger.Error(ctx, "Failed to publish RabbitMQ message", "topic", topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message: %w", err)
	}
	logger.Debug(ctx, "RabbitMQ message published", "topic", topic, "key", key)
	return nil
}

// Close 关闭所有 channel 与连接
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	close(p.channels)
	for ch := range p.channels {
		ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
