package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationMethod 是将总折扣分摊到明细行的权重策略。
type AllocationMethod string

const (
	AllocationProRataAmount   AllocationMethod = "PRO_RATA_AMOUNT"
	AllocationProRataQuantity AllocationMethod = "PRO_RATA_QUANTITY"
	AllocationCustomWeights   AllocationMethod = "CUSTOM_WEIGHTS"
	AllocationFixedPercentage AllocationMethod = "FIXED_PERCENTAGE"
)

// Valid 判断分摊方式是否受支持。
func (m AllocationMethod) Valid() bool {
	switch m {
	case AllocationProRataAmount, AllocationProRataQuantity, AllocationCustomWeights, AllocationFixedPercentage:
		return true
	}
	return false
}

// weightTolerance 是自定义权重之和允许偏离 1.0 的范围。
var weightTolerance = decimal.New(1, -3)

// weightPlaces 是分摊权重保留的小数位数。
const weightPlaces int32 = 6

// AllocationLine 是一行明细分到的折扣。
type AllocationLine struct {
	LineRef        string          `json:"lineRef"`
	LineType       string          `json:"lineType"`
	Quantity       int             `json:"quantity"`
	LineAmount     decimal.Decimal `json:"lineAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	// Weight = DiscountAmount / LineAmount，行金额为 0 时为 0。
	Weight decimal.Decimal `json:"weight"`
}

// AllocationOptions 携带特定分摊方式需要的参数。
type AllocationOptions struct {
	Weights    []decimal.Decimal // CUSTOM_WEIGHTS，每行一个
	Percentage decimal.Decimal   // FIXED_PERCENTAGE，0-100
}

// Allocate 将总折扣分摊到明细行。
// 除 FIXED_PERCENTAGE 外，最后一行（按输入顺序）承担舍入差额，保证各行之和精确等于总折扣。
func Allocate(items []LineItem, totalDiscount decimal.Decimal, method AllocationMethod, opts AllocationOptions) ([]AllocationLine, error) {
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}
	if totalDiscount.IsNegative() {
		return nil, ErrNegativeDiscount
	}

	var shares []decimal.Decimal
	switch method {
	case AllocationProRataAmount:
		shares = proRataByAmount(items, totalDiscount)
	case AllocationProRataQuantity:
		shares = proRataByQuantity(items, totalDiscount)
	case AllocationCustomWeights:
		if err := ValidateWeights(opts.Weights, len(items)); err != nil {
			return nil, err
		}
		shares = byCustomWeights(opts.Weights, totalDiscount)
	case AllocationFixedPercentage:
		shares = byFixedPercentage(items, opts.Percentage)
	default:
		return nil, ErrUnknownAllocation
	}

	lines := make([]AllocationLine, len(items))
	for i, item := range items {
		lineAmount := item.LineAmount()
		weight := decimal.Zero
		if !lineAmount.IsZero() {
			weight = shares[i].Div(lineAmount).Round(weightPlaces)
		}
		lines[i] = AllocationLine{
			LineRef:        item.ID,
			LineType:       item.Type,
			Quantity:       item.EffectiveQuantity(),
			LineAmount:     lineAmount,
			DiscountAmount: shares[i],
			Weight:         weight,
		}
	}
	return lines, nil
}

// ValidateWeights 检查自定义权重个数与行数一致、均非负，且总和在 1.0 ± 0.001 之内。
func ValidateWeights(weights []decimal.Decimal, lines int) error {
	if len(weights) != lines {
		return ErrInvalidWeights
	}
	sum := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return ErrInvalidWeights
		}
		sum = sum.Add(w)
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(weightTolerance) {
		return ErrInvalidWeights
	}
	return nil
}

func proRataByAmount(items []LineItem, total decimal.Decimal) []decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineAmount())
	}
	return absorbRemainder(len(items), total, func(i int) decimal.Decimal {
		if sum.IsZero() {
			return decimal.Zero
		}
		return total.Mul(items[i].LineAmount()).Div(sum)
	})
}

func proRataByQuantity(items []LineItem, total decimal.Decimal) []decimal.Decimal {
	totalQty := int64(0)
	for _, item := range items {
		totalQty += int64(item.EffectiveQuantity())
	}
	rate := total.Div(decimal.NewFromInt(totalQty))
	return absorbRemainder(len(items), total, func(i int) decimal.Decimal {
		return rate.Mul(decimal.NewFromInt(int64(items[i].EffectiveQuantity())))
	})
}

func byCustomWeights(weights []decimal.Decimal, total decimal.Decimal) []decimal.Decimal {
	return absorbRemainder(len(weights), total, func(i int) decimal.Decimal {
		return total.Mul(weights[i])
	})
}

func byFixedPercentage(items []LineItem, pct decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(items))
	for i, item := range items {
		shares[i] = RoundMinor(PercentOf(item.LineAmount(), pct))
	}
	return shares
}

// absorbRemainder 前 n-1 行按 share 舍入，最后一行取 total 减去已分配部分。
// 舍入累计超出 total 时截断到剩余额度，因此任何一行都不会为负。
func absorbRemainder(n int, total decimal.Decimal, share func(i int) decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, n)
	assigned := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = decimal.Min(RoundMinor(share(i)), total.Sub(assigned))
		assigned = assigned.Add(shares[i])
	}
	shares[n-1] = total.Sub(assigned)
	return shares
}

// AllocationCheck 是分摊合计校验的结果。
type AllocationCheck struct {
	Valid       bool
	Allocated   decimal.Decimal
	Expected    decimal.Decimal
	Discrepancy decimal.Decimal
}

// ValidateAllocationTotal 检查各行合计与期望总额的差异是否在一个最小货币单位之内。
// 持久化层在提交前必须做这个检查。
func ValidateAllocationTotal(lines []AllocationLine, expected decimal.Decimal) AllocationCheck {
	allocated := decimal.Zero
	for _, l := range lines {
		allocated = allocated.Add(l.DiscountAmount)
	}
	diff := allocated.Sub(expected)
	return AllocationCheck{
		Valid:       diff.Abs().LessThanOrEqual(MinorUnit),
		Allocated:   allocated,
		Expected:    expected,
		Discrepancy: diff,
	}
}

// AllocationStatus 是分摊记录的状态。
type AllocationStatus string

const (
	AllocationStatusAllocated AllocationStatus = "allocated"
	AllocationStatusPosted    AllocationStatus = "posted"
)

// Allocation 是一次已授权折扣的分摊记录，由持久化层整体写入。
type Allocation struct {
	ID                    string
	Number                string
	BusinessID            string
	CustomerID            string
	DiscountRuleID        string
	PromotionalDiscountID string
	TotalDiscountAmount   decimal.Decimal
	Method                AllocationMethod
	Status                AllocationStatus
	Lines                 []AllocationLine
	JournalEntryID        string
	JournalEntryNumber    string
	CreatedAt             time.Time
}

// Validate 是提交前的检查：必须引用一条规则或促销，且各行合计与总额一致。
func (a *Allocation) Validate() error {
	if a.DiscountRuleID == "" && a.PromotionalDiscountID == "" {
		return ErrMissingDiscountRef
	}
	if len(a.Lines) == 0 {
		return ErrNoLineItems
	}
	if !ValidateAllocationTotal(a.Lines, a.TotalDiscountAmount).Valid {
		return ErrAllocationTotalMismatch
	}
	return nil
}
