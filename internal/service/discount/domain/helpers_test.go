package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, dec(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func pct(id string, st SourceType, value string) DiscountCandidate {
	return DiscountCandidate{
		ID:           id,
		SourceType:   st,
		DiscountType: DiscountTypePercentage,
		Value:        dec(value),
		Stackable:    true,
		Priority:     st.Priority(),
		Name:         id,
	}
}

func fixed(id string, st SourceType, value string) DiscountCandidate {
	c := pct(id, st, value)
	c.DiscountType = DiscountTypeFixed
	return c
}
