package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"nexus-discount/internal/pkg/mq"
	"nexus-discount/internal/service/discount/domain/port"
)

// AnalyticsKafkaAdapter 实现了 port.AnalyticsPublisher，把折扣使用事件写入 Kafka。
type AnalyticsKafkaAdapter struct {
	writer mq.MessageWriter
}

// NewAnalyticsKafkaAdapter 创建统计事件生产者，writer 的生命周期由调用方管理。
func NewAnalyticsKafkaAdapter(writer mq.MessageWriter) *AnalyticsKafkaAdapter {
	return &AnalyticsKafkaAdapter{writer: writer}
}

// PublishDiscountUsage 以商户 ID 作为消息 key，同一商户的事件落在同一分区。
func (a *AnalyticsKafkaAdapter) PublishDiscountUsage(ctx context.Context, event port.DiscountUsageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal discount usage event: %w", err)
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(event.BusinessID), payload)
}
