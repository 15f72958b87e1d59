package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem 是交易中的一行明细，Amount 为单价。
type LineItem struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
}

// EffectiveQuantity 返回用于计算的数量，未填写或非正时按 1 处理。
func (li LineItem) EffectiveQuantity() int {
	if li.Quantity <= 0 {
		return 1
	}
	return li.Quantity
}

// LineAmount 返回行金额（数量 × 单价）。
func (li LineItem) LineAmount() decimal.Decimal {
	return li.Amount.Mul(decimal.NewFromInt(int64(li.EffectiveQuantity())))
}

// TransactionContext 是一次定价流水线的输入，在整个流程中只读。
type TransactionContext struct {
	BusinessID       string
	CustomerID       string
	CustomerCategory string
	Amount           decimal.Decimal
	Quantity         int
	PromoCode        string
	CategoryID       string
	ServiceID        string
	// PaymentDays 是客户承诺的付款天数，用于匹配提前付款折扣；nil 表示未知。
	PaymentDays     *int
	TransactionDate time.Time
	Items           []LineItem
}

// Fingerprint 生成结果缓存使用的确定性 key。
// 只包含商户、客户、金额和优惠码，其余字段不参与。
func (c TransactionContext) Fingerprint() string {
	return strings.Join([]string{
		c.BusinessID,
		c.CustomerID,
		c.Amount.StringFixed(MinorUnitPlaces),
		strings.ToUpper(strings.TrimSpace(c.PromoCode)),
	}, "|")
}

// AllocationItems 返回用于分摊的明细；没有明细时合成一行覆盖整笔交易。
func (c TransactionContext) AllocationItems() []LineItem {
	if len(c.Items) > 0 {
		return c.Items
	}
	return []LineItem{{
		ID:       "transaction",
		Type:     "transaction",
		Amount:   c.Amount,
		Quantity: 1,
	}}
}
