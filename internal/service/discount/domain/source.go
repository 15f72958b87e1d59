package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source 是各类折扣规则记录的统一抽象（封闭的 tagged union）。
// 每个变体只有一个归一化函数，调用方通过 type switch 选择资格判断逻辑。
type Source interface {
	// Normalize 将原始规则记录转换为统一的候选折扣。
	Normalize() DiscountCandidate
	// Type 返回变体对应的来源类型。
	Type() SourceType

	sealed()
}

// Validity 是规则的有效期，两端均可为空。
type Validity struct {
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// Promotion 是促销码 / 自动促销。
type Promotion struct {
	ID           string
	Name         string
	Code         string
	AutoApply    bool
	DiscountType DiscountType
	Value        decimal.Decimal
	MinPurchase  decimal.Decimal
	// PerCustomerLimit 是每个客户可使用的次数，0 表示不限。
	PerCustomerLimit int
	// UsageLimit / UsageCount 是全局使用上限与已用次数，UsageLimit 为 0 表示不限。
	UsageLimit int
	UsageCount int
	Stackable  bool
	Validity
}

// VolumeTier 是按购买数量划分的阶梯折扣。
type VolumeTier struct {
	ID           string
	Name         string
	MinQuantity  int
	MaxQuantity  int // 0 表示无上限
	MinAmount    decimal.Decimal
	DiscountType DiscountType
	Value        decimal.Decimal
	Stackable    bool
	Validity
}

// EarlyPaymentTerm 是提前付款折扣，例如 "2/10 net 30" 中的 2%。
type EarlyPaymentTerm struct {
	ID              string
	Name            string
	PaymentDays     int
	DiscountPercent decimal.Decimal
	// IsDefault 表示在调用方未给出付款天数时也适用。
	IsDefault bool
	Stackable bool
	Validity
}

// CategoryRule 是针对商品类目或服务的折扣，CategoryID 与 ServiceID 都为空时适用全部。
type CategoryRule struct {
	ID           string
	Name         string
	CategoryID   string
	ServiceID    string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinPurchase  decimal.Decimal
	MinQuantity  int
	Stackable    bool
	Validity
}

// PricingRule 是通用定价规则，带有进程内求值的资格谓词。
type PricingRule struct {
	ID                 string
	Name               string
	DiscountType       DiscountType
	Value              decimal.Decimal
	CustomerCategories []string
	MinQuantity        int
	MaxQuantity        int
	// StartTime / EndTime 是一天内的时间窗口，格式 "HH:MM"，允许跨零点。
	StartTime  string
	EndTime    string
	DaysOfWeek []time.Weekday
	// TargetType 取值 "category" / "service" / "customer"，为空表示不限定目标。
	TargetType string
	TargetID   string
	// Condition 是可选的 CEL 表达式。
	Condition   string
	MinPurchase decimal.Decimal
	Stackable   bool
	Validity
}

func (Promotion) sealed()        {}
func (VolumeTier) sealed()       {}
func (EarlyPaymentTerm) sealed() {}
func (CategoryRule) sealed()     {}
func (PricingRule) sealed()      {}

func (Promotion) Type() SourceType        { return SourcePromotional }
func (VolumeTier) Type() SourceType       { return SourceVolume }
func (EarlyPaymentTerm) Type() SourceType { return SourceEarlyPayment }
func (CategoryRule) Type() SourceType     { return SourceCategory }
func (PricingRule) Type() SourceType      { return SourcePricingRule }

func (p Promotion) Normalize() DiscountCandidate {
	name := p.Name
	if name == "" {
		name = p.Code
	}
	return DiscountCandidate{
		ID:           p.ID,
		SourceType:   SourcePromotional,
		DiscountType: p.DiscountType,
		Value:        p.Value,
		ValidFrom:    p.ValidFrom,
		ValidTo:      p.ValidTo,
		MinPurchase:  p.MinPurchase,
		Stackable:    p.Stackable,
		Priority:     SourcePromotional.Priority(),
		Name:         name,
	}
}

func (v VolumeTier) Normalize() DiscountCandidate {
	return DiscountCandidate{
		ID:           v.ID,
		SourceType:   SourceVolume,
		DiscountType: v.DiscountType,
		Value:        v.Value,
		ValidFrom:    v.ValidFrom,
		ValidTo:      v.ValidTo,
		MinPurchase:  v.MinAmount,
		MinQuantity:  v.MinQuantity,
		Stackable:    v.Stackable,
		Priority:     SourceVolume.Priority(),
		Name:         v.Name,
	}
}

// Normalize 提前付款折扣总是按百分比计算。
func (e EarlyPaymentTerm) Normalize() DiscountCandidate {
	return DiscountCandidate{
		ID:           e.ID,
		SourceType:   SourceEarlyPayment,
		DiscountType: DiscountTypePercentage,
		Value:        e.DiscountPercent,
		ValidFrom:    e.ValidFrom,
		ValidTo:      e.ValidTo,
		Stackable:    e.Stackable,
		Priority:     SourceEarlyPayment.Priority(),
		Name:         e.Name,
	}
}

func (c CategoryRule) Normalize() DiscountCandidate {
	return DiscountCandidate{
		ID:           c.ID,
		SourceType:   SourceCategory,
		DiscountType: c.DiscountType,
		Value:        c.Value,
		ValidFrom:    c.ValidFrom,
		ValidTo:      c.ValidTo,
		MinPurchase:  c.MinPurchase,
		MinQuantity:  c.MinQuantity,
		Stackable:    c.Stackable,
		Priority:     SourceCategory.Priority(),
		Name:         c.Name,
	}
}

func (r PricingRule) Normalize() DiscountCandidate {
	return DiscountCandidate{
		ID:           r.ID,
		SourceType:   SourcePricingRule,
		DiscountType: r.DiscountType,
		Value:        r.Value,
		ValidFrom:    r.ValidFrom,
		ValidTo:      r.ValidTo,
		MinPurchase:  r.MinPurchase,
		MinQuantity:  r.MinQuantity,
		Stackable:    r.Stackable,
		Priority:     SourcePricingRule.Priority(),
		Name:         r.Name,
	}
}
