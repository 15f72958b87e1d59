package infrastructure

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"nexus-discount/internal/service/discount/domain"
)

func TestTranslateWriteError(t *testing.T) {
	dup := fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'DA-1' for key 'uk_allocation_number'"})
	err := translateWriteError(dup, "insert allocation")
	require.ErrorIs(t, err, domain.ErrAllocationNumberConflict)
	assert.True(t, domain.IsConflict(err))

	err = translateWriteError(gorm.ErrDuplicatedKey, "insert allocation")
	require.ErrorIs(t, err, domain.ErrAllocationNumberConflict)

	other := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	err = translateWriteError(other, "insert allocation")
	assert.False(t, domain.IsConflict(err))
	assert.Contains(t, err.Error(), "insert allocation")
	var myErr *mysql.MySQLError
	require.True(t, errors.As(err, &myErr))
	assert.Equal(t, uint16(1213), myErr.Number)
}

func TestPricingRuleMapping(t *testing.T) {
	rule := ToDomainPricingRule(&PricingRuleModel{
		ID:                 "r1",
		DiscountType:       "PERCENTAGE",
		Value:              decimal.NewFromInt(5),
		CustomerCategories: " vip, wholesale ,,",
		DaysOfWeek:         "1,5,x,9",
		StartTime:          "22:00",
		EndTime:            "02:00",
		Condition:          "amount > 100.0",
	})
	assert.Equal(t, []string{"vip", "wholesale"}, rule.CustomerCategories)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, rule.DaysOfWeek)
	assert.Equal(t, domain.DiscountTypePercentage, rule.DiscountType)
	assert.Equal(t, "amount > 100.0", rule.Condition)

	empty := ToDomainPricingRule(&PricingRuleModel{ID: "r2"})
	assert.Nil(t, empty.CustomerCategories)
	assert.Nil(t, empty.DaysOfWeek)
}

func TestAllocationMappingKeepsLineOrder(t *testing.T) {
	created := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	a := &domain.Allocation{
		ID:                    "alloc-1",
		Number:                "DA-biz-000001",
		BusinessID:            "biz",
		PromotionalDiscountID: "p1",
		TotalDiscountAmount:   decimal.NewFromInt(60),
		Method:                domain.AllocationProRataAmount,
		Status:                domain.AllocationStatusAllocated,
		CreatedAt:             created,
		Lines: []domain.AllocationLine{
			{LineRef: "A", LineType: "product", Quantity: 1, LineAmount: decimal.NewFromInt(100), DiscountAmount: decimal.NewFromInt(10)},
			{LineRef: "B", LineType: "product", Quantity: 2, LineAmount: decimal.NewFromInt(200), DiscountAmount: decimal.NewFromInt(50)},
		},
	}

	m := FromDomainAllocation(a)
	require.Len(t, m.Lines, 2)
	assert.Equal(t, 1, m.Lines[0].LineNo)
	assert.Equal(t, 2, m.Lines[1].LineNo)
	assert.Equal(t, "alloc-1", m.Lines[1].AllocationID)
	assert.Equal(t, "PRO_RATA_AMOUNT", m.Method)

	back := ToDomainAllocation(m)
	assert.Equal(t, a.Lines, back.Lines)
	assert.Equal(t, a.Number, back.Number)
	assert.Equal(t, a.Status, back.Status)
}

func TestDayWindow(t *testing.T) {
	start, end := dayWindow(time.Date(2025, 3, 12, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), end)

	// 与领域层的日期过滤使用同一个 UTC 日历日
	local := time.Date(2025, 10, 19, 3, 0, 0, 0, time.FixedZone("UTC+8", 8*60*60))
	start, _ = dayWindow(local)
	assert.Equal(t, time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC), start)
}

func TestAutoMigrateModelsHaveTableNames(t *testing.T) {
	type tabler interface{ TableName() string }
	seen := map[string]bool{}
	for _, m := range AutoMigrateModels() {
		tb, ok := m.(tabler)
		require.True(t, ok, "%T", m)
		assert.False(t, seen[tb.TableName()], tb.TableName())
		seen[tb.TableName()] = true
	}
	assert.Len(t, seen, 9)
}
