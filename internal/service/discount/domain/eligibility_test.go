package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	result bool
	err    error
	seen   []Fact
}

func (s *stubEngine) Evaluate(_ string, fact Fact) (bool, error) {
	s.seen = append(s.seen, fact)
	return s.result, s.err
}

func TestEligiblePromotion(t *testing.T) {
	promo := Promotion{ID: "1", Code: "SPRING", Value: dec("10"), DiscountType: DiscountTypePercentage}

	cases := []struct {
		name  string
		promo Promotion
		code  string
		want  bool
	}{
		{"code matches case insensitively", promo, " spring ", true},
		{"code differs", promo, "WINTER", false},
		{"no code and not auto apply", promo, "", false},
		{"auto apply without code", Promotion{ID: "2", AutoApply: true}, "", true},
		{"global limit reached", Promotion{ID: "3", Code: "SPRING", UsageLimit: 5, UsageCount: 5}, "SPRING", false},
		{"global limit not reached", Promotion{ID: "4", Code: "SPRING", UsageLimit: 5, UsageCount: 4}, "SPRING", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := Eligible(tc.promo, TransactionContext{PromoCode: tc.code}, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestEligibleVolumeAndPayment(t *testing.T) {
	tier := VolumeTier{ID: "v", MinQuantity: 5, MaxQuantity: 10}

	ok, _ := Eligible(tier, TransactionContext{Quantity: 10}, nil)
	assert.True(t, ok)
	ok, _ = Eligible(tier, TransactionContext{Quantity: 11}, nil)
	assert.False(t, ok)

	term := EarlyPaymentTerm{ID: "e", PaymentDays: 10, DiscountPercent: dec("2")}
	ok, _ = Eligible(term, TransactionContext{PaymentDays: ptr(7)}, nil)
	assert.True(t, ok)
	ok, _ = Eligible(term, TransactionContext{PaymentDays: ptr(30)}, nil)
	assert.False(t, ok)
	ok, _ = Eligible(term, TransactionContext{}, nil)
	assert.False(t, ok, "unknown payment days requires a default term")

	term.IsDefault = true
	ok, _ = Eligible(term, TransactionContext{}, nil)
	assert.True(t, ok)
}

func TestEligibleCategory(t *testing.T) {
	tc := TransactionContext{CategoryID: "cat-1", ServiceID: "svc-9"}

	for name, want := range map[string]struct {
		rule CategoryRule
		ok   bool
	}{
		"untargeted":       {CategoryRule{ID: "a"}, true},
		"category match":   {CategoryRule{ID: "b", CategoryID: "cat-1"}, true},
		"service match":    {CategoryRule{ID: "c", ServiceID: "svc-9"}, true},
		"neither matches":  {CategoryRule{ID: "d", CategoryID: "cat-2", ServiceID: "svc-1"}, false},
		"category differs": {CategoryRule{ID: "e", CategoryID: "cat-2"}, false},
	} {
		t.Run(name, func(t *testing.T) {
			ok, err := Eligible(want.rule, tc, nil)
			require.NoError(t, err)
			assert.Equal(t, want.ok, ok)
		})
	}
}

func TestEligiblePricingRule(t *testing.T) {
	// Wednesday 14:30
	at := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)
	tc := TransactionContext{
		CustomerID:       "cust-1",
		CustomerCategory: "wholesale",
		Quantity:         8,
		CategoryID:       "cat-1",
		TransactionDate:  at,
		Amount:           dec("300"),
	}

	cases := []struct {
		name string
		rule PricingRule
		want bool
	}{
		{"no predicates", PricingRule{ID: "r"}, true},
		{"customer category fold", PricingRule{ID: "r", CustomerCategories: []string{"WHOLESALE"}}, true},
		{"customer category miss", PricingRule{ID: "r", CustomerCategories: []string{"retail"}}, false},
		{"quantity window", PricingRule{ID: "r", MinQuantity: 5, MaxQuantity: 8}, true},
		{"quantity below", PricingRule{ID: "r", MinQuantity: 9}, false},
		{"quantity above", PricingRule{ID: "r", MaxQuantity: 7}, false},
		{"weekday match", PricingRule{ID: "r", DaysOfWeek: []time.Weekday{time.Wednesday}}, true},
		{"weekday miss", PricingRule{ID: "r", DaysOfWeek: []time.Weekday{time.Saturday, time.Sunday}}, false},
		{"time window", PricingRule{ID: "r", StartTime: "09:00", EndTime: "17:00"}, true},
		{"time window end exclusive", PricingRule{ID: "r", StartTime: "09:00", EndTime: "14:30"}, false},
		{"overnight window", PricingRule{ID: "r", StartTime: "22:00", EndTime: "06:00"}, false},
		{"open ended start", PricingRule{ID: "r", StartTime: "14:00"}, true},
		{"target category", PricingRule{ID: "r", TargetType: "category", TargetID: "cat-1"}, true},
		{"target customer miss", PricingRule{ID: "r", TargetType: "customer", TargetID: "cust-2"}, false},
		{"unknown target type", PricingRule{ID: "r", TargetType: "region", TargetID: "eu"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, err := Eligible(c.rule, tc, nil)
			require.NoError(t, err)
			assert.Equal(t, c.want, ok)
		})
	}

	t.Run("malformed time window", func(t *testing.T) {
		_, err := Eligible(PricingRule{ID: "r", StartTime: "9am"}, tc, nil)
		require.Error(t, err)
	})

	t.Run("condition delegates to the engine", func(t *testing.T) {
		engine := &stubEngine{result: true}
		ok, err := Eligible(PricingRule{ID: "r", Condition: "amount > 100.0"}, tc, engine)
		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, engine.seen, 1)
		assert.Equal(t, 300.0, engine.seen[0].Amount)
		assert.Equal(t, int64(3), engine.seen[0].Weekday)
		assert.Equal(t, int64(14), engine.seen[0].Hour)
	})

	t.Run("condition error", func(t *testing.T) {
		engine := &stubEngine{err: errors.New("bad expression")}
		ok, err := Eligible(PricingRule{ID: "r", Condition: "amount >"}, tc, engine)
		require.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("condition without engine", func(t *testing.T) {
		_, err := Eligible(PricingRule{ID: "r", Condition: "true"}, tc, nil)
		require.Error(t, err)
	})
}

func TestNormalize(t *testing.T) {
	from := day(2025, 1, 1)
	promo := Promotion{ID: "7", Code: "VIP", Value: dec("12"), DiscountType: DiscountTypePercentage, Validity: Validity{ValidFrom: &from}}
	c := promo.Normalize()
	assert.Equal(t, "VIP", c.Name)
	assert.Equal(t, SourcePromotional, c.SourceType)
	assert.Equal(t, 40, c.Priority)
	assert.Equal(t, &from, c.ValidFrom)
	assert.Equal(t, "PROMOTIONAL:7", c.Key())

	term := EarlyPaymentTerm{ID: "e", DiscountPercent: dec("2")}.Normalize()
	assert.Equal(t, DiscountTypePercentage, term.DiscountType)
	assert.Equal(t, 10, term.Priority)

	tier := VolumeTier{ID: "v", MinQuantity: 5, MinAmount: dec("50")}.Normalize()
	assert.Equal(t, 5, tier.MinQuantity)
	assertMoney(t, "50", tier.MinPurchase)
}
