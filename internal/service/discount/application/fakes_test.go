package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"nexus-discount/internal/service/discount/domain"
	"nexus-discount/internal/service/discount/domain/port"
)

type fakeStore struct {
	promotions   []domain.Promotion
	tiers        []domain.VolumeTier
	terms        []domain.EarlyPaymentTerm
	categories   []domain.CategoryRule
	pricingRules []domain.PricingRule

	failing map[domain.SourceType]error
	// hang 中的来源会一直阻塞，直到 release 被关闭，不理会 ctx。
	hang    map[domain.SourceType]bool
	release chan struct{}

	calls atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		failing: map[domain.SourceType]error{},
		hang:    map[domain.SourceType]bool{},
		release: make(chan struct{}),
	}
}

func (f *fakeStore) enter(st domain.SourceType) error {
	f.calls.Add(1)
	if f.hang[st] {
		<-f.release
	}
	return f.failing[st]
}

func (f *fakeStore) FindPromotions(_ context.Context, _, _ string, _ time.Time) ([]domain.Promotion, error) {
	if err := f.enter(domain.SourcePromotional); err != nil {
		return nil, err
	}
	return f.promotions, nil
}

func (f *fakeStore) FindVolumeTiers(_ context.Context, _ string, _ int) ([]domain.VolumeTier, error) {
	if err := f.enter(domain.SourceVolume); err != nil {
		return nil, err
	}
	return f.tiers, nil
}

func (f *fakeStore) FindPaymentTerms(_ context.Context, _, _ string) ([]domain.EarlyPaymentTerm, error) {
	if err := f.enter(domain.SourceEarlyPayment); err != nil {
		return nil, err
	}
	return f.terms, nil
}

func (f *fakeStore) FindCategoryRules(_ context.Context, _, _, _ string) ([]domain.CategoryRule, error) {
	if err := f.enter(domain.SourceCategory); err != nil {
		return nil, err
	}
	return f.categories, nil
}

func (f *fakeStore) FindPricingRules(_ context.Context, _ string, _ time.Time) ([]domain.PricingRule, error) {
	if err := f.enter(domain.SourcePricingRule); err != nil {
		return nil, err
	}
	return f.pricingRules, nil
}

type fakeSettings struct {
	thresholds map[string]decimal.Decimal
	err        error
}

func (f *fakeSettings) ApprovalThreshold(_ context.Context, businessID string) (decimal.Decimal, bool, error) {
	if f.err != nil {
		return decimal.Zero, false, f.err
	}
	t, ok := f.thresholds[businessID]
	return t, ok, nil
}

type fakeApprovals struct {
	mu    sync.Mutex
	items map[string]domain.ApprovalRequest
}

func newFakeApprovals() *fakeApprovals {
	return &fakeApprovals{items: map[string]domain.ApprovalRequest{}}
}

func (f *fakeApprovals) Create(_ context.Context, req *domain.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[req.ID] = *req
	return nil
}

func (f *fakeApprovals) FindByID(_ context.Context, businessID, id string) (*domain.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok || r.BusinessID != businessID {
		return nil, domain.ErrApprovalNotFound
	}
	return &r, nil
}

func (f *fakeApprovals) SaveDecision(_ context.Context, req *domain.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[req.ID]
	if !ok || cur.BusinessID != req.BusinessID {
		return domain.ErrApprovalNotFound
	}
	if cur.Status != domain.ApprovalPending {
		return domain.ErrApprovalAlreadyDecided
	}
	f.items[req.ID] = *req
	return nil
}

func (f *fakeApprovals) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeAllocations struct {
	mu        sync.Mutex
	items     map[string]domain.Allocation
	createErr error
	attachErr error
}

func newFakeAllocations() *fakeAllocations {
	return &fakeAllocations{items: map[string]domain.Allocation{}}
}

func (f *fakeAllocations) Create(_ context.Context, a *domain.Allocation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[a.ID] = *a
	return nil
}

func (f *fakeAllocations) FindByID(_ context.Context, businessID, id string) (*domain.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.BusinessID != businessID {
		return nil, domain.ErrAllocationNotFound
	}
	return &a, nil
}

func (f *fakeAllocations) AttachJournalEntry(_ context.Context, businessID, id, journalEntryID, entryNumber string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.BusinessID != businessID {
		return domain.ErrAllocationNotFound
	}
	a.JournalEntryID = journalEntryID
	a.JournalEntryNumber = entryNumber
	a.Status = domain.AllocationStatusPosted
	f.items[id] = a
	return nil
}

type fakeNumbers struct {
	n atomic.Int64
}

func (f *fakeNumbers) NextAllocationNumber(_ context.Context, businessID string) (string, error) {
	return fmt.Sprintf("DA-%s-%06d", businessID, f.n.Add(1)), nil
}

type fakeLedger struct {
	posted []port.DiscountJournal
	err    error
}

func (f *fakeLedger) PostDiscountJournal(_ context.Context, j port.DiscountJournal) (*port.JournalReference, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.posted = append(f.posted, j)
	return &port.JournalReference{JournalEntryID: "je-1", EntryNumber: "JE-0001"}, nil
}

type fakeAnalytics struct {
	events []port.DiscountUsageEvent
	err    error
	// block 为 true 时一直等到 ctx 结束。
	block bool
}

func (f *fakeAnalytics) PublishDiscountUsage(ctx context.Context, e port.DiscountUsageEvent) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

type fakeUsage struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{counts: map[string]int{}}
}

func usageKey(businessID, promotionID, customerID string) string {
	return businessID + "/" + promotionID + "/" + customerID
}

func (f *fakeUsage) CustomerUsage(_ context.Context, businessID, promotionID, customerID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[usageKey(businessID, promotionID, customerID)], nil
}

func (f *fakeUsage) IncrementUsage(_ context.Context, businessID, promotionID, customerID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[usageKey(businessID, promotionID, customerID)]++
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.ApprovalStatus
}

func (f *fakeNotifier) NotifyApproval(_ context.Context, req *domain.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, req.Status)
	return errors.New("no approvers connected")
}
