package domain

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(amounts ...string) []LineItem {
	out := make([]LineItem, len(amounts))
	for i, a := range amounts {
		out[i] = LineItem{ID: fmt.Sprintf("line-%d", i+1), Type: "product", Amount: dec(a), Quantity: 1}
	}
	return out
}

func discounts(lines []AllocationLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.DiscountAmount.StringFixed(2)
	}
	return out
}

func sumDiscount(lines []AllocationLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.DiscountAmount)
	}
	return sum
}

func TestAllocateProRataAmount(t *testing.T) {
	t.Run("exact proportional split", func(t *testing.T) {
		lines, err := Allocate(items("100", "200", "300"), dec("60"), AllocationProRataAmount, AllocationOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"10.00", "20.00", "30.00"}, discounts(lines))
		assertMoney(t, "0.1", lines[0].Weight)
	})

	t.Run("reordered lines still reconcile", func(t *testing.T) {
		lines, err := Allocate(items("300", "200", "100"), dec("60"), AllocationProRataAmount, AllocationOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"30.00", "20.00", "10.00"}, discounts(lines))
		assert.Equal(t, "line-3", lines[2].LineRef)
	})

	t.Run("last line absorbs rounding drift", func(t *testing.T) {
		// 100 / 3 = 33.333... per line
		lines, err := Allocate(items("10", "10", "10"), dec("100"), AllocationProRataAmount, AllocationOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"33.33", "33.33", "33.34"}, discounts(lines))
	})

	t.Run("unit price times quantity", func(t *testing.T) {
		in := []LineItem{
			{ID: "a", Amount: dec("25"), Quantity: 4},
			{ID: "b", Amount: dec("100"), Quantity: 0},
		}
		lines, err := Allocate(in, dec("20"), AllocationProRataAmount, AllocationOptions{})
		require.NoError(t, err)
		assertMoney(t, "100", lines[0].LineAmount)
		assertMoney(t, "100", lines[1].LineAmount)
		assert.Equal(t, 1, lines[1].Quantity)
		assert.Equal(t, []string{"10.00", "10.00"}, discounts(lines))
	})

	t.Run("rounding never over-assigns earlier lines", func(t *testing.T) {
		// 0.02 / 4 = 0.005 每行，四舍五入为 0.01
		lines, err := Allocate(items("25", "25", "25", "25"), dec("0.02"), AllocationProRataAmount, AllocationOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"0.01", "0.01", "0.00", "0.00"}, discounts(lines))
	})

	t.Run("zero line amount has zero weight", func(t *testing.T) {
		lines, err := Allocate(items("0", "0"), dec("5"), AllocationProRataAmount, AllocationOptions{})
		require.NoError(t, err)
		assert.True(t, lines[0].Weight.IsZero())
		assertMoney(t, "5", sumDiscount(lines))
	})
}

func TestAllocateExactSum(t *testing.T) {
	lineSets := [][]LineItem{
		items("19.99", "5.01", "0.33", "1000"),
		items("0.01"),
		items("7", "7", "7", "7", "7", "7", "7"),
		{
			{ID: "a", Amount: dec("3.33"), Quantity: 3},
			{ID: "b", Amount: dec("12.10"), Quantity: 7},
			{ID: "c", Amount: dec("0.99"), Quantity: 11},
		},
	}
	totals := []string{"0", "0.01", "1", "33.33", "99.99", "123.45"}

	for i, set := range lineSets {
		weights := make([]decimal.Decimal, len(set))
		for j := range weights {
			weights[j] = decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(set)))).Round(4)
		}
		// 修正最后一个权重使总和精确为 1
		acc := decimal.Zero
		for j := 0; j < len(weights)-1; j++ {
			acc = acc.Add(weights[j])
		}
		weights[len(weights)-1] = decimal.NewFromInt(1).Sub(acc)

		for _, total := range totals {
			for _, method := range []AllocationMethod{AllocationProRataAmount, AllocationProRataQuantity, AllocationCustomWeights} {
				name := fmt.Sprintf("set%d/%s/%s", i, method, total)
				t.Run(name, func(t *testing.T) {
					lines, err := Allocate(set, dec(total), method, AllocationOptions{Weights: weights})
					require.NoError(t, err)
					require.Len(t, lines, len(set))
					assert.True(t, sumDiscount(lines).Equal(dec(total)), "sum %s != %s", sumDiscount(lines), total)
					assert.True(t, ValidateAllocationTotal(lines, dec(total)).Valid)
					for _, l := range lines {
						assert.False(t, l.DiscountAmount.IsNegative(), "line %s got %s", l.LineRef, l.DiscountAmount)
					}
				})
			}
		}
	}
}

func TestAllocateProRataQuantity(t *testing.T) {
	in := []LineItem{
		{ID: "a", Amount: dec("10"), Quantity: 1},
		{ID: "b", Amount: dec("10"), Quantity: 2},
		{ID: "c", Amount: dec("10"), Quantity: 3},
	}
	lines, err := Allocate(in, dec("10"), AllocationProRataQuantity, AllocationOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.67", "3.33", "5.00"}, discounts(lines))
}

func TestAllocateCustomWeights(t *testing.T) {
	t.Run("weights outside tolerance", func(t *testing.T) {
		w := []decimal.Decimal{dec("0.5"), dec("0.3"), dec("0.19")}
		lines, err := Allocate(items("1", "2", "3"), dec("100"), AllocationCustomWeights, AllocationOptions{Weights: w})
		require.ErrorIs(t, err, ErrInvalidWeights)
		assert.True(t, IsValidation(err))
		assert.Nil(t, lines)
	})

	t.Run("weights within tolerance", func(t *testing.T) {
		w := []decimal.Decimal{dec("0.5"), dec("0.3"), dec("0.1995")}
		lines, err := Allocate(items("1", "2", "3"), dec("100"), AllocationCustomWeights, AllocationOptions{Weights: w})
		require.NoError(t, err)
		assert.Equal(t, []string{"50.00", "30.00", "20.00"}, discounts(lines))
	})

	t.Run("weight count mismatch", func(t *testing.T) {
		_, err := Allocate(items("1", "2"), dec("10"), AllocationCustomWeights, AllocationOptions{Weights: []decimal.Decimal{dec("1")}})
		require.ErrorIs(t, err, ErrInvalidWeights)
	})

	t.Run("negative weight", func(t *testing.T) {
		require.ErrorIs(t, ValidateWeights([]decimal.Decimal{dec("1.2"), dec("-0.2")}, 2), ErrInvalidWeights)
	})
}

func TestAllocateFixedPercentage(t *testing.T) {
	lines, err := Allocate(items("100", "33.33"), dec("13.33"), AllocationFixedPercentage, AllocationOptions{Percentage: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.00", "3.33"}, discounts(lines))

	check := ValidateAllocationTotal(lines, dec("13.33"))
	assert.True(t, check.Valid)
	assert.True(t, check.Discrepancy.IsZero())

	check = ValidateAllocationTotal(lines, dec("13.40"))
	assert.False(t, check.Valid)
	assertMoney(t, "-0.07", check.Discrepancy)
}

func TestAllocateErrors(t *testing.T) {
	_, err := Allocate(nil, dec("1"), AllocationProRataAmount, AllocationOptions{})
	require.ErrorIs(t, err, ErrNoLineItems)

	_, err = Allocate(items("1"), dec("-1"), AllocationProRataAmount, AllocationOptions{})
	require.ErrorIs(t, err, ErrNegativeDiscount)

	_, err = Allocate(items("1"), dec("1"), AllocationMethod("RANDOM"), AllocationOptions{})
	require.ErrorIs(t, err, ErrUnknownAllocation)
}

func TestValidateAllocationTotal(t *testing.T) {
	lines := []AllocationLine{{DiscountAmount: dec("10")}, {DiscountAmount: dec("20.01")}}

	assert.True(t, ValidateAllocationTotal(lines, dec("30")).Valid, "one minor unit is tolerated")
	check := ValidateAllocationTotal(lines, dec("29.99"))
	assert.False(t, check.Valid)
	assertMoney(t, "0.02", check.Discrepancy)
}

func TestAllocationValidate(t *testing.T) {
	lines := []AllocationLine{{LineRef: "a", DiscountAmount: dec("5")}}

	a := &Allocation{TotalDiscountAmount: dec("5"), Lines: lines}
	require.ErrorIs(t, a.Validate(), ErrMissingDiscountRef)

	a.PromotionalDiscountID = "promo-1"
	require.NoError(t, a.Validate())

	a.TotalDiscountAmount = dec("6")
	require.ErrorIs(t, a.Validate(), ErrAllocationTotalMismatch)

	a.Lines = nil
	require.ErrorIs(t, a.Validate(), ErrNoLineItems)
}

func TestTransactionContext(t *testing.T) {
	tc := TransactionContext{BusinessID: "b", CustomerID: "c", Amount: dec("12.5"), PromoCode: " save10 ", Quantity: 4}
	assert.Equal(t, "b|c|12.50|SAVE10", tc.Fingerprint())

	other := tc
	other.Quantity = 9
	other.CategoryID = "cat"
	assert.Equal(t, tc.Fingerprint(), other.Fingerprint())

	synthetic := tc.AllocationItems()
	require.Len(t, synthetic, 1)
	assertMoney(t, "12.5", synthetic[0].LineAmount())
}
