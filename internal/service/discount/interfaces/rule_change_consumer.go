package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nexus-discount/internal/pkg/logger"
	"nexus-discount/internal/pkg/mq"
)

// RuleChangedEvent 由规则管理端在促销、阶梯、类目、定价规则或商户配置变更后发布。
type RuleChangedEvent struct {
	BusinessID string `json:"businessId"`
	SourceType string `json:"sourceType,omitempty"`
	RuleID     string `json:"ruleId,omitempty"`
}

// CacheInvalidator 清除某商户的缓存结果。
type CacheInvalidator interface {
	InvalidateBusiness(businessID string) int
}

// RuleChangeConsumer 监听规则变更消息，清除对应商户的定价缓存。
type RuleChangeConsumer struct {
	reader  mq.MessageReader
	target  CacheInvalidator
	tracer  trace.Tracer
	backoff time.Duration
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewRuleChangeConsumer(reader mq.MessageReader, target CacheInvalidator) *RuleChangeConsumer {
	return &RuleChangeConsumer{
		reader:  reader,
		target:  target,
		tracer:  otel.Tracer(serviceName),
		backoff: time.Second,
	}
}

// Start 在后台消费，直到 ctx 取消或 Stop 被调用。
func (c *RuleChangeConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for !c.stopped.Load() {
			// 使用 FetchMessage 而不是 ReadMessage，处理完再提交 offset
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || c.stopped.Load() {
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not fetch rule change message, retrying")
				select {
				case <-time.After(c.backoff):
				case <-ctx.Done():
					return
				}
				continue
			}

			c.processMessage(ctx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit rule change message")
			}
		}
	}()
}

// Stop 关闭 reader 并等待消费协程退出。
func (c *RuleChangeConsumer) Stop() error {
	c.stopped.Store(true)
	err := c.reader.Close()
	c.wg.Wait()
	return err
}

// processMessage 格式错误的消息只记录日志并跳过。
func (c *RuleChangeConsumer) processMessage(parent context.Context, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(parent, msg.Headers)
	ctx, span := c.tracer.Start(ctx, "consumer.RuleChanged", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event RuleChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.BusinessID == "" {
		logger.Ctx(ctx).Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed rule change message")
		return
	}
	n := c.target.InvalidateBusiness(event.BusinessID)
	span.SetAttributes(
		attribute.String("business.id", event.BusinessID),
		attribute.Int("cache.invalidated", n),
	)
	logger.Ctx(ctx).Info().
		Str("business_id", event.BusinessID).
		Str("source", event.SourceType).
		Int("invalidated", n).
		Msg("pricing cache invalidated after rule change")
}
