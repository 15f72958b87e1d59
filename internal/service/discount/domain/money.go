package domain

import "github.com/shopspring/decimal"

// MinorUnitPlaces 是最小货币单位（分）对应的小数位数。
const MinorUnitPlaces int32 = 2

var (
	hundred = decimal.NewFromInt(100)

	// MinorUnit 是一个最小货币单位，即 0.01。
	MinorUnit = decimal.New(1, -MinorUnitPlaces)
)

// RoundMinor 将金额按 half-up 规则舍入到最小货币单位。
// 金额均为非负数，decimal 的 Round（远离零方向）与 half-up 等价。
func RoundMinor(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}

// PercentOf 计算 amount * pct / 100，不做舍入。
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// RatioPercent 计算 part 占 whole 的百分比，whole 非正时返回 0。
func RatioPercent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}
