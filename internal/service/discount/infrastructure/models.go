package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromotionModel 对应 promotions 表。
type PromotionModel struct {
	ID               string `gorm:"primaryKey;size:64"`
	BusinessID       string `gorm:"size:64;index:idx_promotion_business"`
	Name             string `gorm:"size:128"`
	Code             string `gorm:"size:64;index"`
	AutoApply        bool
	DiscountType     string          `gorm:"size:16"`
	Value            decimal.Decimal `gorm:"type:decimal(12,4)"`
	MinPurchase      decimal.Decimal `gorm:"type:decimal(12,2)"`
	PerCustomerLimit int
	UsageLimit       int
	UsageCount       int
	Stackable        bool
	IsActive         bool `gorm:"index:idx_promotion_business"`
	ValidFrom        *time.Time
	ValidTo          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (PromotionModel) TableName() string {
	return "promotions"
}

// VolumeTierModel 对应 volume_discount_tiers 表。
type VolumeTierModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	BusinessID   string `gorm:"size:64;index"`
	Name         string `gorm:"size:128"`
	MinQuantity  int
	MaxQuantity  int
	MinAmount    decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountType string          `gorm:"size:16"`
	Value        decimal.Decimal `gorm:"type:decimal(12,4)"`
	Stackable    bool
	IsActive     bool
	ValidFrom    *time.Time
	ValidTo      *time.Time
}

func (VolumeTierModel) TableName() string {
	return "volume_discount_tiers"
}

// PaymentTermModel 对应 early_payment_terms 表，CustomerID 为空表示对全部客户生效。
type PaymentTermModel struct {
	ID              string `gorm:"primaryKey;size:64"`
	BusinessID      string `gorm:"size:64;index"`
	CustomerID      string `gorm:"size:64"`
	Name            string `gorm:"size:128"`
	PaymentDays     int
	DiscountPercent decimal.Decimal `gorm:"type:decimal(6,3)"`
	IsDefault       bool
	Stackable       bool
	IsActive        bool
	ValidFrom       *time.Time
	ValidTo         *time.Time
}

func (PaymentTermModel) TableName() string {
	return "early_payment_terms"
}

// CategoryRuleModel 对应 category_discount_rules 表。
type CategoryRuleModel struct {
	ID           string          `gorm:"primaryKey;size:64"`
	BusinessID   string          `gorm:"size:64;index"`
	Name         string          `gorm:"size:128"`
	CategoryID   string          `gorm:"size:64"`
	ServiceID    string          `gorm:"size:64"`
	DiscountType string          `gorm:"size:16"`
	Value        decimal.Decimal `gorm:"type:decimal(12,4)"`
	MinPurchase  decimal.Decimal `gorm:"type:decimal(12,2)"`
	MinQuantity  int
	Stackable    bool
	IsActive     bool
	ValidFrom    *time.Time
	ValidTo      *time.Time
}

func (CategoryRuleModel) TableName() string {
	return "category_discount_rules"
}

// PricingRuleModel 对应 pricing_rules 表。
// CustomerCategories 与 DaysOfWeek 以逗号分隔存储，DaysOfWeek 为 0(周日)-6。
type PricingRuleModel struct {
	ID                 string          `gorm:"primaryKey;size:64"`
	BusinessID         string          `gorm:"size:64;index"`
	Name               string          `gorm:"size:128"`
	DiscountType       string          `gorm:"size:16"`
	Value              decimal.Decimal `gorm:"type:decimal(12,4)"`
	CustomerCategories string          `gorm:"size:255"`
	MinQuantity        int
	MaxQuantity        int
	StartTime          string          `gorm:"size:5"`
	EndTime            string          `gorm:"size:5"`
	DaysOfWeek         string          `gorm:"size:32"`
	TargetType         string          `gorm:"size:16"`
	TargetID           string          `gorm:"size:64"`
	Condition          string          `gorm:"column:condition_expr;type:text"`
	MinPurchase        decimal.Decimal `gorm:"type:decimal(12,2)"`
	Stackable          bool
	IsActive           bool
	ValidFrom          *time.Time
	ValidTo            *time.Time
}

func (PricingRuleModel) TableName() string {
	return "pricing_rules"
}

// BusinessSettingsModel 对应 business_discount_settings 表。
type BusinessSettingsModel struct {
	BusinessID               string           `gorm:"primaryKey;size:64"`
	ApprovalThresholdPercent *decimal.Decimal `gorm:"type:decimal(6,2)"`
	UpdatedAt                time.Time
}

func (BusinessSettingsModel) TableName() string {
	return "business_discount_settings"
}

// AllocationModel 对应 discount_allocations 表，编号在商户内唯一。
type AllocationModel struct {
	ID                    string                `gorm:"primaryKey;size:64"`
	Number                string                `gorm:"size:64;uniqueIndex:uk_allocation_number"`
	BusinessID            string                `gorm:"size:64;uniqueIndex:uk_allocation_number"`
	CustomerID            string                `gorm:"size:64"`
	DiscountRuleID        string                `gorm:"size:128"`
	PromotionalDiscountID string                `gorm:"size:64"`
	TotalDiscountAmount   decimal.Decimal       `gorm:"type:decimal(12,2)"`
	Method                string                `gorm:"size:32"`
	Status                string                `gorm:"size:16"`
	JournalEntryID        string                `gorm:"size:64"`
	JournalEntryNumber    string                `gorm:"size:64"`
	Lines                 []AllocationLineModel `gorm:"foreignKey:AllocationID"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (AllocationModel) TableName() string {
	return "discount_allocations"
}

// AllocationLineModel 对应 discount_allocation_lines 表。
type AllocationLineModel struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	AllocationID   string `gorm:"size:64;index"`
	LineNo         int
	LineRef        string `gorm:"size:64"`
	LineType       string `gorm:"size:32"`
	Quantity       int
	LineAmount     decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2)"`
	Weight         decimal.Decimal `gorm:"type:decimal(12,6)"`
}

func (AllocationLineModel) TableName() string {
	return "discount_allocation_lines"
}

// ApprovalModel 对应 discount_approval_requests 表。
type ApprovalModel struct {
	ID                 string          `gorm:"primaryKey;size:64"`
	BusinessID         string          `gorm:"size:64;index"`
	CustomerID         string          `gorm:"size:64"`
	RequestedBy        string          `gorm:"size:64"`
	OriginalAmount     decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(6,2)"`
	Fingerprint        string          `gorm:"size:255"`
	Status             string          `gorm:"size:16"`
	Reason             string          `gorm:"size:512"`
	ApprovedBy         string          `gorm:"size:64"`
	DecidedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ApprovalModel) TableName() string {
	return "discount_approval_requests"
}

// AutoMigrateModels 列出需要建表的全部模型。
func AutoMigrateModels() []any {
	return []any{
		&PromotionModel{}, &VolumeTierModel{}, &PaymentTermModel{}, &CategoryRuleModel{}, &PricingRuleModel{},
		&BusinessSettingsModel{}, &AllocationModel{}, &AllocationLineModel{}, &ApprovalModel{},
	}
}
