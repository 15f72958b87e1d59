package bootstrap

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/discount-service.yaml"

// Config 是服务的全部配置，App 为业务配置，Infra 为基础设施地址。
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	Name     string         `yaml:"name"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Discount DiscountConfig `yaml:"discount"`
}

// DiscountConfig 折扣引擎的运行参数
type DiscountConfig struct {
	ApprovalThresholdPercent float64       `yaml:"approval_threshold_percent"`
	SourceTimeout            time.Duration `yaml:"source_timeout"`
	CacheTTLSeconds          int           `yaml:"cache_ttl_seconds"`
	CacheSweepProbability    float64       `yaml:"cache_sweep_probability"`
	DefaultAllocationMethod  string        `yaml:"default_allocation_method"`
	AnalyticsTimeout         time.Duration `yaml:"analytics_timeout"`
	LedgerTimeout            time.Duration `yaml:"ledger_timeout"`
}

type InfraConfig struct {
	MySQL struct {
		DSN         string `yaml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate"`
	} `yaml:"mysql"`
	Redis struct {
		Addrs string `yaml:"addrs"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers         []string `yaml:"brokers"`
		AnalyticsTopic  string   `yaml:"analytics_topic"`
		RuleChangeTopic string   `yaml:"rule_change_topic"`
		ConsumerGroup   string   `yaml:"consumer_group"`
	} `yaml:"kafka"`
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Zookeeper struct {
		Servers        []string      `yaml:"servers"`
		SequencePath   string        `yaml:"sequence_path"`
		SessionTimeout time.Duration `yaml:"session_timeout"`
	} `yaml:"zookeeper"`
	Nacos struct {
		Enabled   bool   `yaml:"enabled"`
		Addrs     string `yaml:"addrs"`
		Namespace string `yaml:"namespace"`
		Group     string `yaml:"group"`
	} `yaml:"nacos"`
	Ledger struct {
		BaseURL     string `yaml:"base_url"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"ledger"`
}

var current atomic.Pointer[Config]

// Init 从 CONFIG_PATH 加载配置并设为当前配置，失败直接退出。
func Init() *Config {
	cfg, err := Load(getEnv("CONFIG_PATH", defaultConfigPath))
	if err != nil {
		panic(fmt.Sprintf("bootstrap: %v", err))
	}
	current.Store(cfg)
	return cfg
}

// GetCurrentConfig 返回最近一次加载的配置；未加载时返回默认值。
func GetCurrentConfig() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load 读取 YAML 配置文件，补齐默认值，再用环境变量覆盖地址类配置。
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "discount-service"
	}
	if c.App.Port == 0 {
		c.App.Port = 8090
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	d := &c.App.Discount
	if d.ApprovalThresholdPercent <= 0 {
		d.ApprovalThresholdPercent = 20
	}
	if d.SourceTimeout <= 0 {
		d.SourceTimeout = 2 * time.Second
	}
	if d.CacheTTLSeconds <= 0 {
		d.CacheTTLSeconds = 300
	}
	if d.CacheSweepProbability <= 0 {
		d.CacheSweepProbability = 0.01
	}
	if d.DefaultAllocationMethod == "" {
		d.DefaultAllocationMethod = "PRO_RATA_AMOUNT"
	}
	if d.AnalyticsTimeout <= 0 {
		d.AnalyticsTimeout = time.Second
	}
	if d.LedgerTimeout <= 0 {
		d.LedgerTimeout = 5 * time.Second
	}
	if c.Infra.Kafka.AnalyticsTopic == "" {
		c.Infra.Kafka.AnalyticsTopic = "discount-usage"
	}
	if c.Infra.Kafka.RuleChangeTopic == "" {
		c.Infra.Kafka.RuleChangeTopic = "discount-rule-changes"
	}
	if c.Infra.Kafka.ConsumerGroup == "" {
		c.Infra.Kafka.ConsumerGroup = c.App.Name
	}
	if c.Infra.Zookeeper.SequencePath == "" {
		c.Infra.Zookeeper.SequencePath = "/discount/allocation_numbers"
	}
	if c.Infra.Zookeeper.SessionTimeout <= 0 {
		c.Infra.Zookeeper.SessionTimeout = 5 * time.Second
	}
	if c.Infra.Nacos.Group == "" {
		c.Infra.Nacos.Group = "DEFAULT_GROUP"
	}
	if c.Infra.Ledger.ServiceName == "" {
		c.Infra.Ledger.ServiceName = "ledger-service"
	}
}

func (c *Config) applyEnv() {
	c.Infra.MySQL.DSN = getEnv("MYSQL_DSN", c.Infra.MySQL.DSN)
	c.Infra.Redis.Addrs = getEnv("REDIS_ADDRS", c.Infra.Redis.Addrs)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.Infra.Nacos.Addrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.Addrs)
	c.Infra.Ledger.BaseURL = getEnv("LEDGER_BASE_URL", c.Infra.Ledger.BaseURL)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getEnv("ZK_SERVERS", ""); v != "" {
		c.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
}

// getEnv 从环境变量中读取配置，没有时返回 fallback。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
