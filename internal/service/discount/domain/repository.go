package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SourceStore 是折扣规则源的只读查询接口，按商户过滤，并在查询层做粗粒度的有效期/门槛过滤。
// 归一化之后仍会在领域层重新校验。
type SourceStore interface {
	FindPromotions(ctx context.Context, businessID, promoCode string, at time.Time) ([]Promotion, error)
	FindVolumeTiers(ctx context.Context, businessID string, quantity int) ([]VolumeTier, error)
	FindPaymentTerms(ctx context.Context, businessID, customerID string) ([]EarlyPaymentTerm, error)
	FindCategoryRules(ctx context.Context, businessID, categoryID, serviceID string) ([]CategoryRule, error)
	FindPricingRules(ctx context.Context, businessID string, at time.Time) ([]PricingRule, error)
}

// SettingsStore 提供商户级别的折扣配置。
type SettingsStore interface {
	// ApprovalThreshold 返回商户的审批门槛，未配置时 ok 为 false。
	ApprovalThreshold(ctx context.Context, businessID string) (threshold decimal.Decimal, ok bool, err error)
}

// AllocationRepository 定义了分摊记录的持久化接口。
// Create 必须在单个事务中写入分摊头和全部明细行。
type AllocationRepository interface {
	Create(ctx context.Context, allocation *Allocation) error
	FindByID(ctx context.Context, businessID, id string) (*Allocation, error)
	AttachJournalEntry(ctx context.Context, businessID, id, journalEntryID, entryNumber string) error
}

// ApprovalRepository 定义了审批单的持久化接口。
type ApprovalRepository interface {
	Create(ctx context.Context, req *ApprovalRequest) error
	FindByID(ctx context.Context, businessID, id string) (*ApprovalRequest, error)
	// SaveDecision 只有在当前状态仍为 pending 时才写入，否则返回 ErrApprovalAlreadyDecided。
	SaveDecision(ctx context.Context, req *ApprovalRequest) error
}
