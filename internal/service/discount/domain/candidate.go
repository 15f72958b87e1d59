package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType 标识折扣来自哪一类规则源。
type SourceType string

const (
	SourcePromotional  SourceType = "PROMOTIONAL"
	SourceVolume       SourceType = "VOLUME"
	SourceEarlyPayment SourceType = "EARLY_PAYMENT"
	SourceCategory     SourceType = "CATEGORY"
	SourcePricingRule  SourceType = "PRICING_RULE"
)

// unknownSourcePriority 是未登记来源类型的优先级，排在最后。
const unknownSourcePriority = 999

var sourcePriority = map[SourceType]int{
	SourceEarlyPayment: 10,
	SourceVolume:       20,
	SourceCategory:     30,
	SourcePromotional:  40,
	SourcePricingRule:  50,
}

// AllSourceTypes 按优先级顺序返回所有来源类型。
func AllSourceTypes() []SourceType {
	return []SourceType{SourceEarlyPayment, SourceVolume, SourceCategory, SourcePromotional, SourcePricingRule}
}

// Priority 返回来源类型的固定优先级，数值越小越先应用。
func (s SourceType) Priority() int {
	if p, ok := sourcePriority[s]; ok {
		return p
	}
	return unknownSourcePriority
}

// DiscountType 定义了折扣的计算方式。
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE" // 折扣率，0-100
	DiscountTypeFixed      DiscountType = "FIXED"      // 立减金额
)

// DiscountCandidate 是归一化后的候选折扣，每次发现时从规则源重新构建。
type DiscountCandidate struct {
	ID           string
	SourceType   SourceType
	DiscountType DiscountType
	Value        decimal.Decimal
	ValidFrom    *time.Time
	ValidTo      *time.Time
	MinPurchase  decimal.Decimal
	MinQuantity  int
	Stackable    bool
	Priority     int
	Name         string
}

// Key 返回跨来源唯一的候选标识，例如 "PROMOTIONAL:42"。
func (c DiscountCandidate) Key() string {
	return fmt.Sprintf("%s:%s", c.SourceType, c.ID)
}

// AmountAgainst 计算该折扣相对于给定金额的独立折扣额，已舍入到最小货币单位。
func (c DiscountCandidate) AmountAgainst(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || c.Value.IsNegative() {
		return decimal.Zero
	}
	switch c.DiscountType {
	case DiscountTypePercentage:
		return RoundMinor(PercentOf(amount, c.Value))
	case DiscountTypeFixed:
		return RoundMinor(decimal.Min(c.Value, amount))
	default:
		return decimal.Zero
	}
}

// PercentageOf 返回该折扣占给定金额的百分比，审批门槛据此判断。
func (c DiscountCandidate) PercentageOf(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	if c.DiscountType == DiscountTypePercentage {
		return c.Value
	}
	return RatioPercent(c.Value, amount)
}
