package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Eligible 判断一条规则记录是否适用于当前交易。
// 有效期与最低消费门槛不在这里判断，由 FilterExpired / FilterByMinimum 统一处理。
// engine 只在定价规则带有条件表达式时使用，可以为 nil。
func Eligible(src Source, tc TransactionContext, engine RuleEngine) (bool, error) {
	switch s := src.(type) {
	case Promotion:
		return promotionEligible(s, tc), nil
	case VolumeTier:
		return s.MaxQuantity <= 0 || tc.Quantity <= s.MaxQuantity, nil
	case EarlyPaymentTerm:
		if tc.PaymentDays == nil {
			return s.IsDefault, nil
		}
		return *tc.PaymentDays <= s.PaymentDays, nil
	case CategoryRule:
		return categoryEligible(s, tc), nil
	case PricingRule:
		return pricingRuleEligible(s, tc, engine)
	default:
		return false, fmt.Errorf("unsupported discount source %T", src)
	}
}

func promotionEligible(p Promotion, tc TransactionContext) bool {
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return false
	}
	code := strings.TrimSpace(tc.PromoCode)
	if code != "" && strings.EqualFold(code, p.Code) {
		return true
	}
	return p.AutoApply
}

func categoryEligible(c CategoryRule, tc TransactionContext) bool {
	if c.CategoryID == "" && c.ServiceID == "" {
		return true
	}
	if c.CategoryID != "" && c.CategoryID == tc.CategoryID {
		return true
	}
	return c.ServiceID != "" && c.ServiceID == tc.ServiceID
}

func pricingRuleEligible(r PricingRule, tc TransactionContext, engine RuleEngine) (bool, error) {
	if len(r.CustomerCategories) > 0 && !containsFold(r.CustomerCategories, tc.CustomerCategory) {
		return false, nil
	}
	if r.MinQuantity > 0 && tc.Quantity < r.MinQuantity {
		return false, nil
	}
	if r.MaxQuantity > 0 && tc.Quantity > r.MaxQuantity {
		return false, nil
	}
	if len(r.DaysOfWeek) > 0 && !containsWeekday(r.DaysOfWeek, tc.TransactionDate.Weekday()) {
		return false, nil
	}
	inWindow, err := withinTimeWindow(r.StartTime, r.EndTime, tc.TransactionDate)
	if err != nil {
		return false, fmt.Errorf("pricing rule %s: %w", r.ID, err)
	}
	if !inWindow {
		return false, nil
	}
	if !targetMatches(r.TargetType, r.TargetID, tc) {
		return false, nil
	}
	if strings.TrimSpace(r.Condition) == "" {
		return true, nil
	}
	if engine == nil {
		return false, fmt.Errorf("pricing rule %s has a condition but no rule engine is configured", r.ID)
	}
	ok, err := engine.Evaluate(r.Condition, NewFact(tc))
	if err != nil {
		return false, fmt.Errorf("pricing rule %s condition: %w", r.ID, err)
	}
	return ok, nil
}

func targetMatches(targetType, targetID string, tc TransactionContext) bool {
	if targetType == "" || targetID == "" {
		return true
	}
	switch strings.ToLower(targetType) {
	case "category":
		return targetID == tc.CategoryID
	case "service":
		return targetID == tc.ServiceID
	case "customer":
		return targetID == tc.CustomerID
	default:
		return false
	}
}

// withinTimeWindow 判断时刻是否落在 [start, end) 窗口内，end 早于 start 时视为跨零点。
func withinTimeWindow(start, end string, at time.Time) (bool, error) {
	if start == "" && end == "" {
		return true, nil
	}
	startMin, err := parseClock(start, 0)
	if err != nil {
		return false, err
	}
	endMin, err := parseClock(end, 24*60)
	if err != nil {
		return false, err
	}
	now := at.Hour()*60 + at.Minute()
	if startMin <= endMin {
		return now >= startMin && now < endMin, nil
	}
	return now >= startMin || now < endMin, nil
}

func parseClock(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	return h*60 + m, nil
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}
