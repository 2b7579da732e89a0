// Package mq 提供领域事件的投递实现：Kafka、RabbitMQ 与仅记录日志的空实现
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// Sender 消息发送接口
type Sender interface {
	// SendMessage 发送单条消息，value 以 JSON 编码
	SendMessage(ctx context.Context, topic string, key string, value any) error
	// Close 释放底层连接
	Close() error
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string
	MaxRetries   int
	RetryBackoff int
}

// KafkaProducer Kafka 生产者
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}

	logger.Info(context.Background(), "Kafka producer created successfully", "brokers", cfg.Brokers)
	return &KafkaProducer{writer: writer}, nil
}

// SendMessage 发送单条消息，相同 key 落在同一分区
func (kp *KafkaProducer) SendMessage(ctx context.Context, topic string, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = kp.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		logger.Error(ctx, "Failed to send Kafka message", "topic", topic, "key", key, "error", err)
		return err
	}

	logger.Debug(ctx, "Kafka message sent", "topic", topic, "key", key)
	return nil
}

// Close 关闭生产者
func (kp *KafkaProducer) Close() error {
	return kp.writer.Close()
}

// LogSender 不投递消息，仅记录日志，用于未配置消息中间件的环境
type LogSender struct{}

// SendMessage 记录事件
func (LogSender) SendMessage(ctx context.Context, topic string, key string, value any) error {
	logger.Debug(ctx, "event dropped (messaging disabled)", "topic", topic, "key", key)
	return nil
}

// Close 无操作
func (LogSender) Close() error { return nil }
