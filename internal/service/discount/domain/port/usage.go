package port

import "context"

// UsageCounter 记录每个客户对每个促销的使用次数。
type UsageCounter interface {
	CustomerUsage(ctx context.Context, businessID, promotionID, customerID string) (int, error)
	IncrementUsage(ctx context.Context, businessID, promotionID, customerID string) error
}
