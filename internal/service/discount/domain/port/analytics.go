package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountUsageEvent 是发往统计系统的折扣使用事件。
type DiscountUsageEvent struct {
	BusinessID     string          `json:"businessId"`
	CustomerID     string          `json:"customerId,omitempty"`
	AllocationID   string          `json:"allocationId,omitempty"`
	DiscountKeys   []string        `json:"discountKeys"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	TotalDiscount  decimal.Decimal `json:"totalDiscount"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// AnalyticsPublisher 是统计更新的出站端口，失败不能影响定价结果。
type AnalyticsPublisher interface {
	PublishDiscountUsage(ctx context.Context, event DiscountUsageEvent) error
}
