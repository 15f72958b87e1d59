package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	t.Run("single promotional percentage", func(t *testing.T) {
		res := Stack(dec("1000"), []DiscountCandidate{pct("p1", SourcePromotional, "10")})

		assertMoney(t, "100", res.TotalDiscount)
		assertMoney(t, "900", res.FinalAmount)
		require.Len(t, res.Applied, 1)
		assert.Equal(t, "p1", res.Applied[0].CandidateID)
		assertMoney(t, "10", res.Applied[0].Percentage)
	})

	t.Run("discounts are computed against the original amount", func(t *testing.T) {
		ordered := SortByPriority([]DiscountCandidate{
			pct("c1", SourceCategory, "5"),
			pct("v1", SourceVolume, "15"),
		})
		res := Stack(dec("1000"), ordered)

		require.Len(t, res.Applied, 2)
		assert.Equal(t, "v1", res.Applied[0].CandidateID)
		assertMoney(t, "150", res.Applied[0].Amount)
		assertMoney(t, "50", res.Applied[1].Amount)
		assertMoney(t, "200", res.TotalDiscount)
		assertMoney(t, "800", res.FinalAmount)
	})

	t.Run("no candidates", func(t *testing.T) {
		res := Stack(dec("250.50"), nil)
		assert.True(t, res.TotalDiscount.IsZero())
		assertMoney(t, "250.50", res.FinalAmount)
		assert.Empty(t, res.Applied)
	})

	t.Run("non positive original short circuits", func(t *testing.T) {
		for _, amount := range []string{"0", "-10"} {
			res := Stack(dec(amount), []DiscountCandidate{pct("p1", SourcePromotional, "50")})
			assert.True(t, res.TotalDiscount.IsZero(), amount)
			assert.Empty(t, res.Applied, amount)
			assertMoney(t, amount, res.FinalAmount)
		}
	})

	t.Run("fixed discount is capped at the amount", func(t *testing.T) {
		res := Stack(dec("40"), []DiscountCandidate{fixed("f1", SourceCategory, "75")})
		assertMoney(t, "40", res.TotalDiscount)
		assertMoney(t, "0", res.FinalAmount)
	})

	t.Run("half up rounding per discount", func(t *testing.T) {
		// 10.05 * 15% = 1.5075 -> 1.51
		res := Stack(dec("10.05"), []DiscountCandidate{pct("p1", SourcePromotional, "15")})
		assertMoney(t, "1.51", res.TotalDiscount)
		assertMoney(t, "8.54", res.FinalAmount)
	})
}

func TestStackNonNegativity(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		cands  []DiscountCandidate
	}{
		{"value above 100 percent", "99.99", []DiscountCandidate{pct("a", SourcePromotional, "150")}},
		{"two full discounts", "500", []DiscountCandidate{pct("a", SourceVolume, "100"), pct("b", SourceCategory, "100")}},
		{"mixed overflow", "30", []DiscountCandidate{
			pct("a", SourceEarlyPayment, "60"),
			fixed("b", SourceVolume, "25"),
			pct("c", SourcePricingRule, "33.333"),
		}},
		{"tiny amount", "0.01", []DiscountCandidate{pct("a", SourcePromotional, "49"), pct("b", SourceCategory, "51")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			original := dec(tc.amount)
			res := Stack(original, SortByPriority(tc.cands))

			assert.False(t, res.FinalAmount.IsNegative())
			assert.True(t, res.TotalDiscount.LessThanOrEqual(original))
			assert.True(t, res.FinalAmount.Add(res.TotalDiscount).Equal(original))

			sum := dec("0")
			for _, a := range res.Applied {
				assert.True(t, a.Amount.IsPositive())
				assert.True(t, a.Amount.Equal(RoundMinor(a.Amount)), "amount %s has sub-cent residue", a.Amount)
				sum = sum.Add(a.Amount)
			}
			assert.True(t, sum.Equal(res.TotalDiscount))
		})
	}
}

func TestStackDeterminism(t *testing.T) {
	cands := SortByPriority([]DiscountCandidate{
		pct("p1", SourcePromotional, "12.5"),
		fixed("c1", SourceCategory, "7.77"),
		pct("e1", SourceEarlyPayment, "2"),
	})
	first := Stack(dec("1234.56"), cands)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Stack(dec("1234.56"), cands))
	}
}
