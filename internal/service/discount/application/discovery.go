package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"nexus-discount/internal/pkg/logger"
	"nexus-discount/internal/pkg/metrics"
	"nexus-discount/internal/service/discount/domain"
	"nexus-discount/internal/service/discount/domain/port"
)

// SourceFailure 记录一个规则源在本次发现中失败的原因。
type SourceFailure struct {
	Source domain.SourceType
	Err    error
}

func (f SourceFailure) String() string {
	return fmt.Sprintf("discount source %s unavailable: %v", f.Source, f.Err)
}

// DiscoveryResult 是发现阶段的输出：已排序的候选和失败的规则源。
type DiscoveryResult struct {
	Candidates []domain.DiscountCandidate
	Failures   []SourceFailure
}

// DiscoveryService 并发查询五类规则源，单个规则源失败或超时只会让它贡献 0 个候选。
type DiscoveryService struct {
	store   domain.SourceStore
	usage   port.UsageCounter
	engine  domain.RuleEngine
	timeout time.Duration
	tracer  trace.Tracer
}

// NewDiscoveryService usage 和 engine 可以为 nil：
// 没有 usage 时不检查每客户上限，没有 engine 时带条件的定价规则不适用。
func NewDiscoveryService(store domain.SourceStore, usage port.UsageCounter, engine domain.RuleEngine, timeout time.Duration, tracer trace.Tracer) *DiscoveryService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DiscoveryService{
		store:   store,
		usage:   usage,
		engine:  engine,
		timeout: timeout,
		tracer:  tracer,
	}
}

type sourceOutcome struct {
	candidates []domain.DiscountCandidate
	err        error
}

// Discover 返回过滤并排序后的候选折扣，规则源错误不会返回给调用方。
func (d *DiscoveryService) Discover(ctx context.Context, tc domain.TransactionContext) DiscoveryResult {
	ctx, span := d.tracer.Start(ctx, "discovery.Discover")
	defer span.End()

	sources := domain.AllSourceTypes()
	outcomes := make([]sourceOutcome, len(sources))

	var g errgroup.Group
	for i, st := range sources {
		i, st := i, st
		g.Go(func() error {
			c, err := d.lookup(ctx, st, tc)
			outcomes[i] = sourceOutcome{candidates: c, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		all      []domain.DiscountCandidate
		failures []SourceFailure
	)
	for i, o := range outcomes {
		st := sources[i]
		if o.err != nil {
			outcome := "error"
			if errors.Is(o.err, context.DeadlineExceeded) {
				outcome = "timeout"
			}
			metrics.SourceLookups.WithLabelValues(string(st), outcome).Inc()
			logger.Ctx(ctx).Warn().Err(o.err).
				Str("business_id", tc.BusinessID).
				Str("source", string(st)).
				Msg("discount source lookup failed, continuing without it")
			span.AddEvent("source failed", trace.WithAttributes(attribute.String("source", string(st))))
			failures = append(failures, SourceFailure{Source: st, Err: o.err})
			continue
		}
		metrics.SourceLookups.WithLabelValues(string(st), "ok").Inc()
		all = append(all, o.candidates...)
	}

	candidates := domain.FilterExpired(all, tc.TransactionDate)
	candidates = domain.FilterByMinimum(candidates, tc)
	candidates = domain.SortByPriority(candidates)

	span.SetAttributes(
		attribute.Int("discount.candidates", len(candidates)),
		attribute.Int("discount.failed_sources", len(failures)),
	)
	return DiscoveryResult{Candidates: candidates, Failures: failures}
}

// lookup 给单个规则源加上独立超时；查询本身挂住时也会在超时后返回。
func (d *DiscoveryService) lookup(ctx context.Context, st domain.SourceType, tc domain.TransactionContext) ([]domain.DiscountCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan sourceOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sourceOutcome{err: fmt.Errorf("panic in %s lookup: %v", st, r)}
			}
		}()
		c, err := d.fetch(ctx, st, tc)
		done <- sourceOutcome{candidates: c, err: err}
	}()

	select {
	case o := <-done:
		return o.candidates, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s lookup: %w", st, ctx.Err())
	}
}

func (d *DiscoveryService) fetch(ctx context.Context, st domain.SourceType, tc domain.TransactionContext) ([]domain.DiscountCandidate, error) {
	var (
		rows []domain.Source
		err  error
	)
	switch st {
	case domain.SourcePromotional:
		var promos []domain.Promotion
		promos, err = d.store.FindPromotions(ctx, tc.BusinessID, tc.PromoCode, tc.TransactionDate)
		rows = asSources(promos)
	case domain.SourceVolume:
		var tiers []domain.VolumeTier
		tiers, err = d.store.FindVolumeTiers(ctx, tc.BusinessID, tc.Quantity)
		rows = asSources(tiers)
	case domain.SourceEarlyPayment:
		var terms []domain.EarlyPaymentTerm
		terms, err = d.store.FindPaymentTerms(ctx, tc.BusinessID, tc.CustomerID)
		rows = asSources(terms)
	case domain.SourceCategory:
		var rules []domain.CategoryRule
		rules, err = d.store.FindCategoryRules(ctx, tc.BusinessID, tc.CategoryID, tc.ServiceID)
		rows = asSources(rules)
	case domain.SourcePricingRule:
		var rules []domain.PricingRule
		rules, err = d.store.FindPricingRules(ctx, tc.BusinessID, tc.TransactionDate)
		rows = asSources(rules)
	default:
		return nil, fmt.Errorf("unknown discount source %s", st)
	}
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.DiscountCandidate, 0, len(rows))
	for _, src := range rows {
		ok, err := domain.Eligible(src, tc, d.engine)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("business_id", tc.BusinessID).
				Str("source", string(st)).
				Msg("discount rule skipped")
			continue
		}
		if !ok {
			continue
		}
		if promo, isPromo := src.(domain.Promotion); isPromo && !d.withinCustomerLimit(ctx, tc, promo) {
			continue
		}
		candidates = append(candidates, src.Normalize())
	}
	return candidates, nil
}

// withinCustomerLimit 检查客户是否已用完该促销的个人次数；计数读取失败时按不可用处理。
func (d *DiscoveryService) withinCustomerLimit(ctx context.Context, tc domain.TransactionContext, p domain.Promotion) bool {
	if p.PerCustomerLimit <= 0 || tc.CustomerID == "" || d.usage == nil {
		return true
	}
	used, err := d.usage.CustomerUsage(ctx, tc.BusinessID, p.ID, tc.CustomerID)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("business_id", tc.BusinessID).
			Str("promotion_id", p.ID).
			Msg("customer usage lookup failed, dropping promotion")
		return false
	}
	return used < p.PerCustomerLimit
}

func asSources[T domain.Source](rows []T) []domain.Source {
	out := make([]domain.Source, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}
