package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nexus-discount/internal/pkg/clock"
	"nexus-discount/internal/pkg/logger"
	"nexus-discount/internal/pkg/metrics"
	"nexus-discount/internal/service/discount/cache"
	"nexus-discount/internal/service/discount/domain"
	"nexus-discount/internal/service/discount/domain/port"
)

// Config 是定价服务的运行参数。
type Config struct {
	ApprovalThreshold decimal.Decimal
	CacheTTL          time.Duration
	DefaultMethod     domain.AllocationMethod
	AnalyticsTimeout  time.Duration
	LedgerTimeout     time.Duration
}

// Dependencies 汇总 PricingService 的协作者。Ledger / Analytics / Usage / Notifier / Settings 可以为 nil。
type Dependencies struct {
	Discovery   *DiscoveryService
	Settings    domain.SettingsStore
	Allocations domain.AllocationRepository
	Approvals   domain.ApprovalRepository
	Numbers     port.AllocationNumberGenerator
	Ledger      port.LedgerService
	Analytics   port.AnalyticsPublisher
	Usage       port.UsageCounter
	Notifier    port.ApprovalNotifier
	Cache       *cache.ResultCache[*PricingResult]
	Clock       clock.Clock
	Tracer      trace.Tracer
	Config      Config
}

// PricingService 串起 发现 → 叠加 → 审批闸门 → 分摊 → 记账/统计 的整条流水线。
type PricingService struct {
	discovery   *DiscoveryService
	settings    domain.SettingsStore
	allocations domain.AllocationRepository
	approvals   domain.ApprovalRepository
	numbers     port.AllocationNumberGenerator
	ledger      port.LedgerService
	analytics   port.AnalyticsPublisher
	usage       port.UsageCounter
	notifier    port.ApprovalNotifier
	cache       *cache.ResultCache[*PricingResult]
	clock       clock.Clock
	tracer      trace.Tracer
	cfg         Config
}

// NewPricingService 创建定价服务，未提供的可选项使用默认值。
func NewPricingService(d Dependencies) *PricingService {
	cfg := d.Config
	if !cfg.ApprovalThreshold.IsPositive() {
		cfg.ApprovalThreshold = domain.DefaultApprovalThresholdPercent
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if !cfg.DefaultMethod.Valid() {
		cfg.DefaultMethod = domain.AllocationProRataAmount
	}
	if cfg.AnalyticsTimeout <= 0 {
		cfg.AnalyticsTimeout = time.Second
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 5 * time.Second
	}
	if d.Clock == nil {
		d.Clock = clock.NewRealClock()
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer("discount-service")
	}
	if d.Cache == nil {
		d.Cache = cache.New[*PricingResult](cache.WithClock(d.Clock))
	}
	return &PricingService{
		discovery:   d.Discovery,
		settings:    d.Settings,
		allocations: d.Allocations,
		approvals:   d.Approvals,
		numbers:     d.Numbers,
		ledger:      d.Ledger,
		analytics:   d.Analytics,
		usage:       d.Usage,
		notifier:    d.Notifier,
		cache:       d.Cache,
		clock:       d.Clock,
		tracer:      d.Tracer,
		cfg:         cfg,
	}
}

// CalculateFinalPrice 是主流程。
// 校验错误、未找到和冲突错误直接返回；规则源失败和分摊后的副作用失败记录为 Warnings。
func (s *PricingService) CalculateFinalPrice(ctx context.Context, req *CalculateRequest) (*PricingResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.CalculateFinalPrice")
	defer span.End()
	timer := prometheus.NewTimer(metrics.PricingDuration.WithLabelValues("calculate"))
	defer timer.ObserveDuration()

	tc, err := s.buildContext(req)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(
		attribute.String("business.id", tc.BusinessID),
		attribute.String("customer.id", tc.CustomerID),
		attribute.String("transaction.amount", tc.Amount.StringFixed(domain.MinorUnitPlaces)),
		attribute.Bool("pricing.preview", req.PreviewMode),
		attribute.Bool("pricing.create_allocation", req.CreateAllocation),
	)

	cacheable := isCacheable(req)
	fingerprint := tc.Fingerprint()
	if cacheable {
		if cached, ok := s.cache.Get(fingerprint); ok {
			span.AddEvent("pricing result served from cache")
			out := *cached
			out.Cached = true
			return &out, nil
		}
	}

	discovered := s.discovery.Discover(ctx, tc)
	warnings := failureWarnings(discovered.Failures)

	candidates, err := selectCandidates(discovered.Candidates, req.DiscountIDs)
	if err != nil {
		return nil, fail(span, err)
	}
	conflicts := domain.DetectConflicts(candidates)
	if req.StrictStacking && len(conflicts) > 0 {
		return nil, fail(span, fmt.Errorf("%w: %s", domain.ErrStackingConflict, conflicts[0].Message))
	}
	stacked := domain.Stack(tc.Amount, candidates)

	threshold, warn := s.threshold(ctx, tc.BusinessID)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	prior, err := s.priorApproval(ctx, req, tc)
	if err != nil {
		return nil, fail(span, err)
	}

	gate := domain.EvaluateGate(tc.Amount, candidates, threshold, prior)
	span.SetAttributes(attribute.String("approval.gate", string(gate.State)))
	switch gate.State {
	case domain.GateRejected:
		return nil, fail(span, fmt.Errorf("%w: %s", domain.ErrApprovalRejected, req.ApprovalID))
	case domain.GatePending:
		res := &PricingResult{
			Success:           false,
			RequiresApproval:  true,
			OriginalAmount:    tc.Amount,
			TotalDiscount:     decimal.Zero,
			FinalAmount:       tc.Amount,
			AppliedDiscounts:  []AppliedDiscountDTO{},
			Conflicts:         toConflictDTOs(conflicts),
			Discounts:         toCandidateDTOs(candidates, tc.Amount),
			ApprovalThreshold: &threshold,
			ApprovalID:        req.ApprovalID,
			Warnings:          warnings,
		}
		if req.ApprovalID == "" && !req.PreviewMode {
			apr, err := s.openApproval(ctx, tc, req.RequestedBy, stacked)
			if err != nil {
				return nil, fail(span, err)
			}
			res.ApprovalID = apr.ID
		}
		span.AddEvent("pricing suspended pending approval")
		return res, nil
	}

	res := &PricingResult{
		Success:          true,
		OriginalAmount:   stacked.OriginalAmount,
		TotalDiscount:    stacked.TotalDiscount,
		FinalAmount:      stacked.FinalAmount,
		AppliedDiscounts: toAppliedDTOs(stacked.Applied),
		Conflicts:        toConflictDTOs(conflicts),
		Warnings:         warnings,
	}

	if req.CreateAllocation && !req.PreviewMode {
		if stacked.TotalDiscount.IsPositive() {
			if err := s.allocate(ctx, req, tc, stacked, res); err != nil {
				return nil, fail(span, err)
			}
		} else {
			res.Warnings = append(res.Warnings, "no discount applies, allocation skipped")
		}
	}

	// 有来源失败或阈值降级的结果不缓存，来源恢复后需要重新计算
	if cacheable && res.Allocation == nil && len(res.Warnings) == 0 {
		stored := *res
		s.cache.Put(tc.BusinessID, fingerprint, &stored, s.cfg.CacheTTL)
	}
	span.AddEvent("pricing calculated")
	return res, nil
}

// QuickCalculate 强制预览模式，不分摊、不记账。
func (s *PricingService) QuickCalculate(ctx context.Context, req *CalculateRequest) (*PricingResult, error) {
	quick := *req
	quick.PreviewMode = true
	quick.CreateAllocation = false
	quick.CreateJournalEntries = false
	return s.CalculateFinalPrice(ctx, &quick)
}

// PreviewDiscounts 返回所有可发现的候选，各自独立计算金额，不叠加。
func (s *PricingService) PreviewDiscounts(ctx context.Context, req *CalculateRequest) (*PreviewResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.PreviewDiscounts")
	defer span.End()
	timer := prometheus.NewTimer(metrics.PricingDuration.WithLabelValues("preview"))
	defer timer.ObserveDuration()

	tc, err := s.buildContext(req)
	if err != nil {
		return nil, fail(span, err)
	}
	discovered := s.discovery.Discover(ctx, tc)
	return &PreviewResult{
		OriginalAmount: tc.Amount,
		Discounts:      toCandidateDTOs(discovered.Candidates, tc.Amount),
		Conflicts:      toConflictDTOs(domain.DetectConflicts(discovered.Candidates)),
		Warnings:       failureWarnings(discovered.Failures),
	}, nil
}

// FindBestCombination 每类来源只保留独立折扣额最大的候选，然后叠加。
func (s *PricingService) FindBestCombination(ctx context.Context, req *CalculateRequest) (*BestCombinationResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.FindBestCombination")
	defer span.End()
	timer := prometheus.NewTimer(metrics.PricingDuration.WithLabelValues("best"))
	defer timer.ObserveDuration()

	tc, err := s.buildContext(req)
	if err != nil {
		return nil, fail(span, err)
	}
	discovered := s.discovery.Discover(ctx, tc)
	warnings := failureWarnings(discovered.Failures)

	best := bestPerSource(discovered.Candidates, tc.Amount)
	stacked := domain.Stack(tc.Amount, best)
	threshold, warn := s.threshold(ctx, tc.BusinessID)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	gate := domain.EvaluateGate(tc.Amount, best, threshold, "")

	return &BestCombinationResult{
		OriginalAmount:    stacked.OriginalAmount,
		TotalDiscount:     stacked.TotalDiscount,
		FinalAmount:       stacked.FinalAmount,
		AppliedDiscounts:  toAppliedDTOs(stacked.Applied),
		Selected:          toCandidateDTOs(best, tc.Amount),
		RequiresApproval:  !gate.Allowed(),
		ApprovalThreshold: threshold,
		Warnings:          warnings,
	}, nil
}

// SubmitForApproval 为当前交易的叠加结果创建一张待审批单，不论是否达到门槛。
func (s *PricingService) SubmitForApproval(ctx context.Context, req *CalculateRequest) (*ApprovalDTO, error) {
	ctx, span := s.tracer.Start(ctx, "service.SubmitForApproval")
	defer span.End()

	tc, err := s.buildContext(req)
	if err != nil {
		return nil, fail(span, err)
	}
	discovered := s.discovery.Discover(ctx, tc)
	candidates, err := selectCandidates(discovered.Candidates, req.DiscountIDs)
	if err != nil {
		return nil, fail(span, err)
	}
	stacked := domain.Stack(tc.Amount, candidates)
	if !stacked.TotalDiscount.IsPositive() {
		return nil, fail(span, domain.ErrNothingToApprove)
	}
	apr, err := s.openApproval(ctx, tc, req.RequestedBy, stacked)
	if err != nil {
		return nil, fail(span, err)
	}
	return toApprovalDTO(apr), nil
}

// ProcessApproval 对待审批单做出决定，每张审批单只能被决定一次。
func (s *PricingService) ProcessApproval(ctx context.Context, approvalID string, req *DecisionRequest) (*ApprovalDTO, error) {
	ctx, span := s.tracer.Start(ctx, "service.ProcessApproval")
	defer span.End()
	span.SetAttributes(
		attribute.String("approval.id", approvalID),
		attribute.String("approval.decision", string(req.Decision)),
	)

	if strings.TrimSpace(req.BusinessID) == "" {
		return nil, fail(span, domain.ErrMissingBusinessID)
	}
	apr, err := s.approvals.FindByID(ctx, req.BusinessID, approvalID)
	if err != nil {
		return nil, fail(span, err)
	}
	if err := apr.Decide(req.Decision, req.ApproverID, req.Reason, s.clock.Now()); err != nil {
		return nil, fail(span, err)
	}
	// 并发审批时只有一方能把 pending 改掉
	if err := s.approvals.SaveDecision(ctx, apr); err != nil {
		return nil, fail(span, err)
	}

	metrics.Approvals.WithLabelValues(string(apr.Status)).Inc()
	logger.Ctx(ctx).Info().
		Str("business_id", apr.BusinessID).
		Str("approval_id", apr.ID).
		Str("status", string(apr.Status)).
		Str("approver", apr.ApprovedBy).
		Msg("approval decided")
	s.notify(ctx, apr)
	span.AddEvent("approval decided")
	return toApprovalDTO(apr), nil
}

// GetApprovalStatus 按商户查询审批单。
func (s *PricingService) GetApprovalStatus(ctx context.Context, businessID, approvalID string) (*ApprovalDTO, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetApprovalStatus")
	defer span.End()

	if strings.TrimSpace(businessID) == "" {
		return nil, fail(span, domain.ErrMissingBusinessID)
	}
	apr, err := s.approvals.FindByID(ctx, businessID, approvalID)
	if err != nil {
		return nil, fail(span, err)
	}
	return toApprovalDTO(apr), nil
}

// GetAllocation 按商户查询分摊记录。
func (s *PricingService) GetAllocation(ctx context.Context, businessID, allocationID string) (*AllocationDTO, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetAllocation")
	defer span.End()

	if strings.TrimSpace(businessID) == "" {
		return nil, fail(span, domain.ErrMissingBusinessID)
	}
	a, err := s.allocations.FindByID(ctx, businessID, allocationID)
	if err != nil {
		return nil, fail(span, err)
	}
	return toAllocationDTO(a), nil
}

// ValidateAllocation 检查一组分摊行的合计是否与期望总额相差不超过一个最小货币单位。
func (s *PricingService) ValidateAllocation(ctx context.Context, req *ValidateAllocationRequest) (*AllocationCheckDTO, error) {
	_, span := s.tracer.Start(ctx, "service.ValidateAllocation")
	defer span.End()

	if len(req.Lines) == 0 {
		return nil, fail(span, domain.ErrNoLineItems)
	}
	check := domain.ValidateAllocationTotal(req.Lines, req.ExpectedTotal)
	span.SetAttributes(attribute.Bool("allocation.valid", check.Valid))
	return &AllocationCheckDTO{
		Valid:       check.Valid,
		Allocated:   check.Allocated,
		Expected:    check.Expected,
		Discrepancy: check.Discrepancy,
	}, nil
}

// InvalidateBusiness 清除该商户的全部缓存结果。
func (s *PricingService) InvalidateBusiness(businessID string) int {
	return s.cache.Invalidate(businessID)
}

// buildContext 做所有同步校验，之后才会开始发现工作。
func (s *PricingService) buildContext(req *CalculateRequest) (domain.TransactionContext, error) {
	if req == nil || strings.TrimSpace(req.BusinessID) == "" {
		return domain.TransactionContext{}, domain.ErrMissingBusinessID
	}
	amount := req.Amount
	if amount == nil {
		amount = req.Subtotal
	}
	if amount == nil {
		return domain.TransactionContext{}, domain.ErrMissingAmount
	}

	txDate := s.clock.Now()
	if req.TransactionDate != nil && !req.TransactionDate.IsZero() {
		txDate = *req.TransactionDate
	}
	quantity := req.Quantity
	if quantity <= 0 {
		for _, item := range req.Items {
			quantity += item.EffectiveQuantity()
		}
		if quantity == 0 {
			quantity = 1
		}
	}

	tc := domain.TransactionContext{
		BusinessID:       strings.TrimSpace(req.BusinessID),
		CustomerID:       req.CustomerID,
		CustomerCategory: req.CustomerCategory,
		Amount:           *amount,
		Quantity:         quantity,
		PromoCode:        strings.TrimSpace(req.PromoCode),
		CategoryID:       req.CategoryID,
		ServiceID:        req.ServiceID,
		PaymentDays:      req.PaymentDays,
		TransactionDate:  txDate,
		Items:            req.Items,
	}

	switch method := s.method(req); method {
	case domain.AllocationCustomWeights:
		if err := domain.ValidateWeights(req.AllocationWeights, len(tc.AllocationItems())); err != nil {
			return domain.TransactionContext{}, err
		}
	case domain.AllocationFixedPercentage:
		if req.AllocationPercentage == nil || req.AllocationPercentage.IsNegative() {
			return domain.TransactionContext{}, fmt.Errorf("%w: allocation percentage is required for %s", domain.ErrValidation, method)
		}
	case domain.AllocationProRataAmount, domain.AllocationProRataQuantity:
	default:
		return domain.TransactionContext{}, fmt.Errorf("%w: %s", domain.ErrUnknownAllocation, method)
	}
	return tc, nil
}

func (s *PricingService) method(req *CalculateRequest) domain.AllocationMethod {
	if req.AllocationMethod == "" {
		return s.cfg.DefaultMethod
	}
	return domain.AllocationMethod(strings.ToUpper(string(req.AllocationMethod)))
}

// threshold 返回商户的审批门槛，读取失败时退回默认值并给出提示。
func (s *PricingService) threshold(ctx context.Context, businessID string) (decimal.Decimal, string) {
	if s.settings == nil {
		return s.cfg.ApprovalThreshold, ""
	}
	t, ok, err := s.settings.ApprovalThreshold(ctx, businessID)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("business_id", businessID).Msg("approval threshold lookup failed, using default")
		return s.cfg.ApprovalThreshold, "approval threshold unavailable, default applied"
	}
	if !ok || !t.IsPositive() {
		return s.cfg.ApprovalThreshold, ""
	}
	return t, ""
}

// priorApproval 解析调用方携带的审批凭证。凭证必须属于同一商户、同一笔交易。
func (s *PricingService) priorApproval(ctx context.Context, req *CalculateRequest, tc domain.TransactionContext) (domain.ApprovalStatus, error) {
	if req.PreApproved {
		return domain.ApprovalApproved, nil
	}
	if req.ApprovalID == "" {
		return "", nil
	}
	apr, err := s.approvals.FindByID(ctx, tc.BusinessID, req.ApprovalID)
	if err != nil {
		return "", err
	}
	if apr.Fingerprint != tc.Fingerprint() {
		return "", fmt.Errorf("%w: %s", domain.ErrApprovalMismatch, req.ApprovalID)
	}
	return apr.Status, nil
}

func (s *PricingService) openApproval(ctx context.Context, tc domain.TransactionContext, requestedBy string, stacked domain.StackedDiscountResult) (*domain.ApprovalRequest, error) {
	apr := domain.NewApprovalRequest(uuid.NewString(), tc, requestedBy, stacked, s.clock.Now())
	if err := s.approvals.Create(ctx, apr); err != nil {
		return nil, fmt.Errorf("create approval request: %w", err)
	}
	metrics.Approvals.WithLabelValues(string(apr.Status)).Inc()
	logger.Ctx(ctx).Info().
		Str("business_id", apr.BusinessID).
		Str("approval_id", apr.ID).
		Str("discount_percentage", apr.DiscountPercentage.String()).
		Msg("discount requires approval")
	s.notify(ctx, apr)
	return apr, nil
}

func (s *PricingService) notify(ctx context.Context, apr *domain.ApprovalRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyApproval(ctx, apr); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("approval_id", apr.ID).Msg("approval notification failed")
	}
}

// allocate 在单个事务中持久化分摊记录，然后执行非致命的副作用。
func (s *PricingService) allocate(ctx context.Context, req *CalculateRequest, tc domain.TransactionContext, stacked domain.StackedDiscountResult, res *PricingResult) error {
	method := s.method(req)
	opts := domain.AllocationOptions{Weights: req.AllocationWeights}
	if req.AllocationPercentage != nil {
		opts.Percentage = *req.AllocationPercentage
	}
	lines, err := domain.Allocate(tc.AllocationItems(), stacked.TotalDiscount, method, opts)
	if err != nil {
		return err
	}

	alloc := &domain.Allocation{
		ID:                  uuid.NewString(),
		BusinessID:          tc.BusinessID,
		CustomerID:          tc.CustomerID,
		TotalDiscountAmount: stacked.TotalDiscount,
		Method:              method,
		Status:              domain.AllocationStatusAllocated,
		Lines:               lines,
		CreatedAt:           s.clock.Now(),
	}
	setDiscountReference(alloc, stacked.Applied)
	// 校验通过后再取号，避免编号出现空洞
	if err := alloc.Validate(); err != nil {
		return err
	}
	number, err := s.numbers.NextAllocationNumber(ctx, tc.BusinessID)
	if err != nil {
		return fmt.Errorf("allocation number: %w", err)
	}
	alloc.Number = number
	if err := s.allocations.Create(ctx, alloc); err != nil {
		return fmt.Errorf("persist allocation: %w", err)
	}
	metrics.AllocationLines.Add(float64(len(lines)))
	s.InvalidateBusiness(tc.BusinessID)

	res.Allocation = &AllocationSummary{ID: alloc.ID, Number: alloc.Number, Method: alloc.Method, Lines: alloc.Lines}
	res.Warnings = append(res.Warnings, s.afterAllocation(ctx, req, tc, stacked, alloc, res)...)
	return nil
}

// afterAllocation 记录用量、发送统计事件、按需过账；任何一步失败都只变成一条警告。
func (s *PricingService) afterAllocation(ctx context.Context, req *CalculateRequest, tc domain.TransactionContext, stacked domain.StackedDiscountResult, alloc *domain.Allocation, res *PricingResult) []string {
	var warnings []string
	warn := func(kind, msg string, err error) {
		metrics.SideEffectFailures.WithLabelValues(kind).Inc()
		logger.Ctx(ctx).Warn().Err(err).
			Str("business_id", tc.BusinessID).
			Str("allocation_id", alloc.ID).
			Msg(msg)
		warnings = append(warnings, msg)
	}

	if s.usage != nil && tc.CustomerID != "" {
		for _, a := range stacked.Applied {
			if a.SourceType != domain.SourcePromotional {
				continue
			}
			if err := s.usage.IncrementUsage(ctx, tc.BusinessID, a.CandidateID, tc.CustomerID); err != nil {
				warn("usage", fmt.Sprintf("usage counter for promotion %s not updated", a.CandidateID), err)
			}
		}
	}

	if s.analytics != nil {
		actx, cancel := context.WithTimeout(ctx, s.cfg.AnalyticsTimeout)
		keys := make([]string, len(res.AppliedDiscounts))
		for i, a := range res.AppliedDiscounts {
			keys[i] = a.Key
		}
		err := s.analytics.PublishDiscountUsage(actx, port.DiscountUsageEvent{
			BusinessID:     tc.BusinessID,
			CustomerID:     tc.CustomerID,
			AllocationID:   alloc.ID,
			DiscountKeys:   keys,
			OriginalAmount: stacked.OriginalAmount,
			TotalDiscount:  stacked.TotalDiscount,
			OccurredAt:     s.clock.Now(),
		})
		cancel()
		if err != nil {
			warn("analytics", "discount analytics update failed", err)
		}
	}

	if !req.CreateJournalEntries {
		return warnings
	}
	if s.ledger == nil {
		warn("ledger", "journal entries requested but no ledger is configured", nil)
		return warnings
	}
	lctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()
	ref, err := s.ledger.PostDiscountJournal(lctx, port.DiscountJournal{
		BusinessID:     tc.BusinessID,
		CustomerID:     tc.CustomerID,
		AllocationID:   alloc.ID,
		AllocationNo:   alloc.Number,
		OriginalAmount: stacked.OriginalAmount,
		TotalDiscount:  stacked.TotalDiscount,
		FinalAmount:    stacked.FinalAmount,
		Lines:          alloc.Lines,
	})
	if err != nil {
		warn("ledger", "journal entry posting failed", err)
		return warnings
	}
	res.Accounting = &AccountingSummary{JournalEntryID: ref.JournalEntryID, EntryNumber: ref.EntryNumber}
	if err := s.allocations.AttachJournalEntry(ctx, tc.BusinessID, alloc.ID, ref.JournalEntryID, ref.EntryNumber); err != nil {
		warn("ledger", "journal entry posted but not linked to the allocation", err)
	}
	return warnings
}

// setDiscountReference 优先引用第一个生效的促销，否则引用第一个生效的规则。
func setDiscountReference(a *domain.Allocation, applied []domain.AppliedDiscount) {
	for _, d := range applied {
		if d.SourceType == domain.SourcePromotional {
			a.PromotionalDiscountID = d.CandidateID
			return
		}
	}
	if len(applied) > 0 {
		a.DiscountRuleID = string(applied[0].SourceType) + ":" + applied[0].CandidateID
	}
}

// selectCandidates 按 "TYPE:ID" 限定候选，未知 key 返回未找到错误。
func selectCandidates(cands []domain.DiscountCandidate, keys []string) ([]domain.DiscountCandidate, error) {
	if len(keys) == 0 {
		return cands, nil
	}
	byKey := make(map[string]domain.DiscountCandidate, len(cands))
	for _, c := range cands {
		byKey[c.Key()] = c
	}
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := byKey[k]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, k)
		}
		wanted[k] = true
	}
	out := make([]domain.DiscountCandidate, 0, len(keys))
	for _, c := range cands {
		if wanted[c.Key()] {
			out = append(out, c)
		}
	}
	return out, nil
}

// bestPerSource 每类来源选独立折扣额最大的候选，保持优先级顺序。
func bestPerSource(cands []domain.DiscountCandidate, amount decimal.Decimal) []domain.DiscountCandidate {
	best := make(map[domain.SourceType]int)
	for i, c := range cands {
		j, ok := best[c.SourceType]
		if !ok || c.AmountAgainst(amount).GreaterThan(cands[j].AmountAgainst(amount)) {
			best[c.SourceType] = i
		}
	}
	out := make([]domain.DiscountCandidate, 0, len(best))
	for i, c := range cands {
		if best[c.SourceType] == i {
			out = append(out, c)
		}
	}
	return out
}

// isCacheable 只有不会产生财务副作用、且不依赖审批凭证或候选限定的请求才走缓存。
func isCacheable(req *CalculateRequest) bool {
	if !req.PreviewMode && req.CreateAllocation {
		return false
	}
	return !req.PreApproved && req.ApprovalID == "" && len(req.DiscountIDs) == 0 && !req.StrictStacking
}

func failureWarnings(failures []SourceFailure) []string {
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.String()
	}
	return out
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
