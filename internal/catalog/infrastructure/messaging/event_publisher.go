package messaging

import (
	"context"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/mq"
)

// eventPublisher 基于 mq.Sender 的事件发布者实现
type eventPublisher struct {
	sender  mq.Sender
	metrics *metrics.Metrics
}

// NewEventPublisher 创建事件发布者，m 可以为 nil
func NewEventPublisher(sender mq.Sender, m *metrics.Metrics) domain.EventPublisher {
	return &eventPublisher{sender: sender, metrics: m}
}

// Publish 投递事件，失败计入指标并返回错误
func (p *eventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	if err := p.sender.SendMessage(ctx, topic, key, event); err != nil {
		p.metrics.RecordPublishFailure(topic)
		return err
	}
	return nil
}
