package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("defaults fill missing values", func(t *testing.T) {
		cfg, err := Parse([]byte("app:\n  port: 9000\n"))
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.App.Port)
		assert.Equal(t, "discount-service", cfg.App.Name)
		assert.Equal(t, 20.0, cfg.App.Discount.ApprovalThresholdPercent)
		assert.Equal(t, 2*time.Second, cfg.App.Discount.SourceTimeout)
		assert.Equal(t, 300, cfg.App.Discount.CacheTTLSeconds)
		assert.Equal(t, "PRO_RATA_AMOUNT", cfg.App.Discount.DefaultAllocationMethod)
		assert.Equal(t, "discount-usage", cfg.Infra.Kafka.AnalyticsTopic)
		assert.Equal(t, "discount-rule-changes", cfg.Infra.Kafka.RuleChangeTopic)
		assert.Equal(t, "discount-service", cfg.Infra.Kafka.ConsumerGroup)
	})

	t.Run("yaml values and durations", func(t *testing.T) {
		raw := []byte(`
app:
  discount:
    approval_threshold_percent: 35
    source_timeout: 750ms
infra:
  kafka:
    brokers: ["k1:9092", "k2:9092"]
`)
		cfg, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, 35.0, cfg.App.Discount.ApprovalThresholdPercent)
		assert.Equal(t, 750*time.Millisecond, cfg.App.Discount.SourceTimeout)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Infra.Kafka.Brokers)
	})

	t.Run("environment overrides addresses", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "a:1,b:2")
		t.Setenv("MYSQL_DSN", "user:pw@tcp(db:3306)/discounts")

		cfg, err := Parse([]byte("infra:\n  mysql:\n    dsn: ignored\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a:1", "b:2"}, cfg.Infra.Kafka.Brokers)
		assert.Equal(t, "user:pw@tcp(db:3306)/discounts", cfg.Infra.MySQL.DSN)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("app: [unclosed"))
		require.Error(t, err)
	})
}
