package domain

import "github.com/shopspring/decimal"

// AppliedDiscount 是一条实际生效的折扣及其计算结果。
type AppliedDiscount struct {
	CandidateID  string
	SourceType   SourceType
	DiscountType DiscountType
	Name         string
	Amount       decimal.Decimal
	// Percentage 是折扣额占原价的百分比，保留两位小数。
	Percentage decimal.Decimal
}

// StackedDiscountResult 是叠加计算的输出。
// 保证 FinalAmount = OriginalAmount - TotalDiscount，且 TotalDiscount = sum(Applied.Amount)。
type StackedDiscountResult struct {
	OriginalAmount decimal.Decimal
	Applied        []AppliedDiscount
	TotalDiscount  decimal.Decimal
	FinalAmount    decimal.Decimal
}

// Stack 按给定顺序叠加候选折扣。
// 每个折扣都基于原价独立计算（不是基于上一步的余额），单独舍入到分；
// 累计折扣不会超过原价，超出部分从最后一个生效折扣中扣除。
func Stack(originalAmount decimal.Decimal, ordered []DiscountCandidate) StackedDiscountResult {
	result := StackedDiscountResult{
		OriginalAmount: originalAmount,
		Applied:        []AppliedDiscount{},
		TotalDiscount:  decimal.Zero,
		FinalAmount:    originalAmount,
	}
	if !originalAmount.IsPositive() {
		return result
	}

	total := decimal.Zero
	for _, c := range ordered {
		remaining := originalAmount.Sub(total)
		if !remaining.IsPositive() {
			break
		}
		amount := c.AmountAgainst(originalAmount)
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		if !amount.IsPositive() {
			continue
		}
		total = total.Add(amount)
		result.Applied = append(result.Applied, AppliedDiscount{
			CandidateID:  c.ID,
			SourceType:   c.SourceType,
			DiscountType: c.DiscountType,
			Name:         c.Name,
			Amount:       amount,
			Percentage:   RatioPercent(amount, originalAmount).Round(2),
		})
	}

	result.TotalDiscount = total
	result.FinalAmount = originalAmount.Sub(total)
	return result
}
