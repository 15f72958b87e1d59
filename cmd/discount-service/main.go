package main

import (
	"context"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"nexus-discount/internal/pkg/bootstrap"
	"nexus-discount/internal/pkg/clock"
	"nexus-discount/internal/pkg/httpclient"
	"nexus-discount/internal/pkg/logger"
	"nexus-discount/internal/pkg/mq"
	"nexus-discount/internal/pkg/redis"
	"nexus-discount/internal/service/discount/application"
	"nexus-discount/internal/service/discount/cache"
	"nexus-discount/internal/service/discount/domain"
	"nexus-discount/internal/service/discount/infrastructure"
	"nexus-discount/internal/service/discount/infrastructure/adapter"
	"nexus-discount/internal/service/discount/infrastructure/rule"
	"nexus-discount/internal/service/discount/interfaces"
	"nexus-discount/internal/zookeeper"
)

func main() {
	cfg := bootstrap.Init()
	logger.Init(cfg.App.Name, cfg.App.LogLevel)
	dc := cfg.App.Discount

	db, err := gorm.Open(mysql.Open(cfg.Infra.MySQL.DSN), &gorm.Config{})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect mysql")
	}
	if cfg.Infra.MySQL.AutoMigrate {
		if err := db.AutoMigrate(infrastructure.AutoMigrateModels()...); err != nil {
			zlog.Fatal().Err(err).Msg("failed to migrate discount tables")
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to get sql.DB")
	}

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect redis")
	}

	analyticsWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.AnalyticsTopic)

	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect zookeeper")
	}

	engine, err := rule.NewCELEvaluator()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to build rule engine")
	}

	clk := clock.NewRealClock()
	tracer := otel.Tracer(cfg.App.Name)
	resultCache := cache.New[*application.PricingResult](
		cache.WithClock(clk),
		cache.WithSweepProbability(dc.CacheSweepProbability),
	)
	usage := adapter.NewUsageRedisAdapter(redisClient)

	hub := adapter.NewApprovalHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	ruleChanges := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.RuleChangeTopic, cfg.Infra.Kafka.ConsumerGroup)
	var consumer *interfaces.RuleChangeConsumer

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.App.Name,
		Port:        cfg.App.Port,
		RegisterHandlers: func(app bootstrap.AppCtx) {
			var resolver adapter.InstanceResolver
			if app.Nacos != nil {
				resolver = app.Nacos
			}
			ledger := adapter.NewLedgerHTTPAdapter(
				httpclient.NewClient(tracer), cfg.Infra.Ledger.BaseURL, resolver, cfg.Infra.Ledger.ServiceName)

			svc := application.NewPricingService(application.Dependencies{
				Discovery:   application.NewDiscoveryService(infrastructure.NewGormSourceStore(db), usage, engine, dc.SourceTimeout, tracer),
				Settings:    infrastructure.NewGormSettingsStore(db),
				Allocations: infrastructure.NewGormAllocationRepository(db),
				Approvals:   infrastructure.NewGormApprovalRepository(db),
				Numbers:     adapter.NewAllocationNumberZKAdapter(zookeeper.NewSequence(zkConn, cfg.Infra.Zookeeper.SequencePath), clk),
				Ledger:      ledger,
				Analytics:   adapter.NewAnalyticsKafkaAdapter(analyticsWriter),
				Usage:       usage,
				Notifier:    hub,
				Cache:       resultCache,
				Clock:       clk,
				Tracer:      tracer,
				Config: application.Config{
					ApprovalThreshold: decimal.NewFromFloat(dc.ApprovalThresholdPercent),
					CacheTTL:          time.Duration(dc.CacheTTLSeconds) * time.Second,
					DefaultMethod:     domain.AllocationMethod(strings.ToUpper(dc.DefaultAllocationMethod)),
					AnalyticsTimeout:  dc.AnalyticsTimeout,
					LedgerTimeout:     dc.LedgerTimeout,
				},
			})
			interfaces.NewDiscountHandler(svc, hub.ServeWS).RegisterRoutes(app.Mux)

			consumer = interfaces.NewRuleChangeConsumer(ruleChanges, svc)
			consumer.Start(hubCtx)
		},
		OnShutdown: func(ctx context.Context) {
			if consumer != nil {
				if err := consumer.Stop(); err != nil {
					zlog.Error().Err(err).Msg("error closing rule change consumer")
				}
			}
			stopHub()
			if err := analyticsWriter.Close(); err != nil {
				zlog.Error().Err(err).Msg("error closing kafka writer")
			}
			if err := redisClient.Close(); err != nil {
				zlog.Error().Err(err).Msg("error closing redis client")
			}
			zkConn.Close()
			if err := sqlDB.Close(); err != nil {
				zlog.Error().Err(err).Msg("error closing mysql")
			}
		},
	})
}
