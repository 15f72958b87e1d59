package domain

// Fact 是传递给规则引擎的事实数据，由交易上下文派生。
type Fact struct {
	Amount           float64 `json:"amount"`
	Quantity         int64   `json:"quantity"`
	CustomerID       string  `json:"customer_id"`
	CustomerCategory string  `json:"customer_category"`
	CategoryID       string  `json:"category_id"`
	ServiceID        string  `json:"service_id"`
	PromoCode        string  `json:"promo_code"`
	Weekday          int64   `json:"weekday"`
	Hour             int64   `json:"hour"`
}

// NewFact 从交易上下文构造规则引擎使用的事实。
func NewFact(tc TransactionContext) Fact {
	amount, _ := tc.Amount.Float64()
	return Fact{
		Amount:           amount,
		Quantity:         int64(tc.Quantity),
		CustomerID:       tc.CustomerID,
		CustomerCategory: tc.CustomerCategory,
		CategoryID:       tc.CategoryID,
		ServiceID:        tc.ServiceID,
		PromoCode:        tc.PromoCode,
		Weekday:          int64(tc.TransactionDate.Weekday()),
		Hour:             int64(tc.TransactionDate.Hour()),
	}
}

// RuleEngine 是定价规则条件表达式的求值器，由基础设施层实现。
type RuleEngine interface {
	Evaluate(expression string, fact Fact) (bool, error)
}
