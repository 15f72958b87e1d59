package domain

import (
	"sort"
	"time"
)

// FilterExpired 去掉有效期不包含交易日期的候选。
// 两端都是闭区间，只比较日期，不比较一天中的时间。
func FilterExpired(candidates []DiscountCandidate, txDate time.Time) []DiscountCandidate {
	day := dateOnly(txDate)
	out := make([]DiscountCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ValidFrom != nil && day.Before(dateOnly(*c.ValidFrom)) {
			continue
		}
		if c.ValidTo != nil && day.After(dateOnly(*c.ValidTo)) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterByMinimum 去掉最低消费金额或最低数量未达标的候选。
func FilterByMinimum(candidates []DiscountCandidate, tc TransactionContext) []DiscountCandidate {
	out := make([]DiscountCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.MinPurchase.IsPositive() && tc.Amount.LessThan(c.MinPurchase) {
			continue
		}
		if c.MinQuantity > 0 && tc.Quantity < c.MinQuantity {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortByPriority 按来源优先级升序排序，同优先级按折扣值降序；原切片不变。
func SortByPriority(candidates []DiscountCandidate) []DiscountCandidate {
	out := make([]DiscountCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].SourceType.Priority(), out[j].SourceType.Priority()
		if pi != pj {
			return pi < pj
		}
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
