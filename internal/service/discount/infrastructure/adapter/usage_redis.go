package adapter

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"nexus-discount/internal/pkg/redis"
)

// UsageRedisAdapter 实现了 port.UsageCounter，每个 商户/促销/客户 一个计数器。
type UsageRedisAdapter struct {
	rdb goredis.Cmdable
}

func NewUsageRedisAdapter(client *redis.Client) *UsageRedisAdapter {
	return &UsageRedisAdapter{rdb: client.GetClient()}
}

func usageKey(businessID, promotionID, customerID string) string {
	return fmt.Sprintf("discount:usage:{%s}:%s:%s", businessID, promotionID, customerID)
}

// CustomerUsage 读取已使用次数，key 不存在时为 0。
func (a *UsageRedisAdapter) CustomerUsage(ctx context.Context, businessID, promotionID, customerID string) (int, error) {
	n, err := a.rdb.Get(ctx, usageKey(businessID, promotionID, customerID)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage adapter failed to read counter: %w", err)
	}
	return n, nil
}

func (a *UsageRedisAdapter) IncrementUsage(ctx context.Context, businessID, promotionID, customerID string) error {
	if err := a.rdb.Incr(ctx, usageKey(businessID, promotionID, customerID)).Err(); err != nil {
		return fmt.Errorf("usage adapter failed to increment counter: %w", err)
	}
	return nil
}
