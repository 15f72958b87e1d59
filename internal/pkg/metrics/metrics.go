// Package metrics 定义折扣服务暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceLookups 按来源和结果（ok / error / timeout）统计规则源查询次数。
	SourceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discount",
		Name:      "source_lookups_total",
		Help:      "Discount source lookups by source and outcome.",
	}, []string{"source", "outcome"})

	// CacheRequests 统计结果缓存的命中与未命中。
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discount",
		Name:      "cache_requests_total",
		Help:      "Pricing result cache lookups by result.",
	}, []string{"result"})

	// Approvals 按状态统计审批单的创建与决定。
	Approvals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discount",
		Name:      "approvals_total",
		Help:      "Approval requests by status.",
	}, []string{"status"})

	// AllocationLines 统计写入的分摊明细行数。
	AllocationLines = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "discount",
		Name:      "allocation_lines_total",
		Help:      "Allocation lines committed.",
	})

	// SideEffectFailures 统计分摊后副作用（记账、统计、用量）的失败次数。
	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discount",
		Name:      "side_effect_failures_total",
		Help:      "Non-fatal post-allocation failures by kind.",
	}, []string{"kind"})

	// PricingDuration 记录一次完整定价调用的耗时。
	PricingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "discount",
		Name:      "pricing_duration_seconds",
		Help:      "Latency of pricing operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)
