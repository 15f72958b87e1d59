package application

import (
	"time"

	"github.com/shopspring/decimal"

	"nexus-discount/internal/service/discount/domain"
)

// CalculateRequest 是定价接口的输入。Amount 与 Subtotal 二选一，Amount 优先。
type CalculateRequest struct {
	BusinessID       string            `json:"businessId"`
	CustomerID       string            `json:"customerId,omitempty"`
	CustomerCategory string            `json:"customerCategory,omitempty"`
	Amount           *decimal.Decimal  `json:"amount,omitempty"`
	Subtotal         *decimal.Decimal  `json:"subtotal,omitempty"`
	Quantity         int               `json:"quantity,omitempty"`
	PromoCode        string            `json:"promoCode,omitempty"`
	CategoryID       string            `json:"categoryId,omitempty"`
	ServiceID        string            `json:"serviceId,omitempty"`
	PaymentDays      *int              `json:"paymentDays,omitempty"`
	TransactionDate  *time.Time        `json:"transactionDate,omitempty"`
	Items            []domain.LineItem `json:"items,omitempty"`
	RequestedBy      string            `json:"requestedBy,omitempty"`

	PreApproved          bool   `json:"preApproved,omitempty"`
	ApprovalID           string `json:"approvalId,omitempty"`
	PreviewMode          bool   `json:"previewMode,omitempty"`
	CreateAllocation     bool   `json:"createAllocation,omitempty"`
	CreateJournalEntries bool   `json:"createJournalEntries,omitempty"`
	StrictStacking       bool   `json:"strictStacking,omitempty"`
	// DiscountIDs 限定只使用这些候选（"TYPE:ID"），为空表示全部。
	DiscountIDs []string `json:"discountIds,omitempty"`

	AllocationMethod     domain.AllocationMethod `json:"allocationMethod,omitempty"`
	AllocationWeights    []decimal.Decimal       `json:"allocationWeights,omitempty"`
	AllocationPercentage *decimal.Decimal        `json:"allocationPercentage,omitempty"`
}

// AppliedDiscountDTO 是一条已生效的折扣。
type AppliedDiscountDTO struct {
	ID         string              `json:"id"`
	Key        string              `json:"key"`
	Type       domain.SourceType   `json:"type"`
	Kind       domain.DiscountType `json:"discountType"`
	Name       string              `json:"name"`
	Amount     decimal.Decimal     `json:"amount"`
	Percentage decimal.Decimal     `json:"percentage"`
}

// CandidateDTO 是一条候选折扣及其独立（未叠加）的折扣额。
type CandidateDTO struct {
	ID          string              `json:"id"`
	Key         string              `json:"key"`
	Type        domain.SourceType   `json:"type"`
	Kind        domain.DiscountType `json:"discountType"`
	Name        string              `json:"name"`
	Value       decimal.Decimal     `json:"value"`
	Amount      decimal.Decimal     `json:"amount"`
	Percentage  decimal.Decimal     `json:"percentage"`
	Stackable   bool                `json:"stackable"`
	Priority    int                 `json:"priority"`
	ValidFrom   *time.Time          `json:"validFrom,omitempty"`
	ValidTo     *time.Time          `json:"validTo,omitempty"`
	MinPurchase decimal.Decimal     `json:"minPurchase"`
	MinQuantity int                 `json:"minQuantity,omitempty"`
}

type ConflictDTO struct {
	Kind         domain.ConflictKind `json:"kind"`
	SourceType   domain.SourceType   `json:"sourceType"`
	CandidateIDs []string            `json:"candidateIds"`
	Message      string              `json:"message"`
}

type AllocationSummary struct {
	ID     string                  `json:"id"`
	Number string                  `json:"number"`
	Method domain.AllocationMethod `json:"method"`
	Lines  []domain.AllocationLine `json:"lines,omitempty"`
}

type AccountingSummary struct {
	JournalEntryID string `json:"journalEntryId"`
	EntryNumber    string `json:"entryNumber"`
}

// PricingResult 是 CalculateFinalPrice 的输出。
// 需要审批时 Success 为 false、RequiresApproval 为 true，并带上候选和审批门槛。
type PricingResult struct {
	Success           bool                 `json:"success"`
	RequiresApproval  bool                 `json:"requiresApproval,omitempty"`
	OriginalAmount    decimal.Decimal      `json:"originalAmount"`
	TotalDiscount     decimal.Decimal      `json:"totalDiscount"`
	FinalAmount       decimal.Decimal      `json:"finalAmount"`
	AppliedDiscounts  []AppliedDiscountDTO `json:"appliedDiscounts"`
	Conflicts         []ConflictDTO        `json:"conflicts,omitempty"`
	Allocation        *AllocationSummary   `json:"allocation,omitempty"`
	Accounting        *AccountingSummary   `json:"accounting,omitempty"`
	Discounts         []CandidateDTO       `json:"discounts,omitempty"`
	ApprovalThreshold *decimal.Decimal     `json:"approvalThreshold,omitempty"`
	ApprovalID        string               `json:"approvalId,omitempty"`
	Warnings          []string             `json:"warnings,omitempty"`
	Cached            bool                 `json:"cached,omitempty"`
}

// PreviewResult 列出所有可发现的候选，每条的金额都是独立计算的。
type PreviewResult struct {
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	Discounts      []CandidateDTO  `json:"discounts"`
	Conflicts      []ConflictDTO   `json:"conflicts,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// BestCombinationResult 是每类来源选一个最优候选后的叠加结果。
type BestCombinationResult struct {
	OriginalAmount    decimal.Decimal      `json:"originalAmount"`
	TotalDiscount     decimal.Decimal      `json:"totalDiscount"`
	FinalAmount       decimal.Decimal      `json:"finalAmount"`
	AppliedDiscounts  []AppliedDiscountDTO `json:"appliedDiscounts"`
	Selected          []CandidateDTO       `json:"selected"`
	RequiresApproval  bool                 `json:"requiresApproval"`
	ApprovalThreshold decimal.Decimal      `json:"approvalThreshold"`
	Warnings          []string             `json:"warnings,omitempty"`
}

type DecisionRequest struct {
	BusinessID string          `json:"businessId"`
	Decision   domain.Decision `json:"decision"`
	ApproverID string          `json:"approverId"`
	Reason     string          `json:"reason,omitempty"`
}

type ApprovalDTO struct {
	ID                 string                `json:"id"`
	BusinessID         string                `json:"businessId"`
	CustomerID         string                `json:"customerId,omitempty"`
	RequestedBy        string                `json:"requestedBy,omitempty"`
	OriginalAmount     decimal.Decimal       `json:"originalAmount"`
	DiscountAmount     decimal.Decimal       `json:"discountAmount"`
	DiscountPercentage decimal.Decimal       `json:"discountPercentage"`
	Status             domain.ApprovalStatus `json:"status"`
	Reason             string                `json:"reason,omitempty"`
	ApprovedBy         string                `json:"approvedBy,omitempty"`
	DecidedAt          *time.Time            `json:"decidedAt,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
}

type ValidateAllocationRequest struct {
	ExpectedTotal decimal.Decimal         `json:"expectedTotal"`
	Lines         []domain.AllocationLine `json:"lines"`
}

type AllocationCheckDTO struct {
	Valid       bool            `json:"valid"`
	Allocated   decimal.Decimal `json:"allocated"`
	Expected    decimal.Decimal `json:"expected"`
	Discrepancy decimal.Decimal `json:"discrepancy"`
}

type AllocationDTO struct {
	ID                    string                  `json:"id"`
	Number                string                  `json:"number"`
	BusinessID            string                  `json:"businessId"`
	CustomerID            string                  `json:"customerId,omitempty"`
	DiscountRuleID        string                  `json:"discountRuleId,omitempty"`
	PromotionalDiscountID string                  `json:"promotionalDiscountId,omitempty"`
	TotalDiscountAmount   decimal.Decimal         `json:"totalDiscountAmount"`
	Method                domain.AllocationMethod `json:"method"`
	Status                domain.AllocationStatus `json:"status"`
	Lines                 []domain.AllocationLine `json:"lines"`
	JournalEntryID        string                  `json:"journalEntryId,omitempty"`
	JournalEntryNumber    string                  `json:"journalEntryNumber,omitempty"`
	CreatedAt             time.Time               `json:"createdAt"`
}

func toAppliedDTOs(applied []domain.AppliedDiscount) []AppliedDiscountDTO {
	out := make([]AppliedDiscountDTO, len(applied))
	for i, a := range applied {
		out[i] = AppliedDiscountDTO{
			ID:         a.CandidateID,
			Key:        domain.DiscountCandidate{ID: a.CandidateID, SourceType: a.SourceType}.Key(),
			Type:       a.SourceType,
			Kind:       a.DiscountType,
			Name:       a.Name,
			Amount:     a.Amount,
			Percentage: a.Percentage,
		}
	}
	return out
}

func toCandidateDTOs(cands []domain.DiscountCandidate, amount decimal.Decimal) []CandidateDTO {
	out := make([]CandidateDTO, len(cands))
	for i, c := range cands {
		independent := c.AmountAgainst(amount)
		out[i] = CandidateDTO{
			ID:          c.ID,
			Key:         c.Key(),
			Type:        c.SourceType,
			Kind:        c.DiscountType,
			Name:        c.Name,
			Value:       c.Value,
			Amount:      independent,
			Percentage:  domain.RatioPercent(independent, amount).Round(2),
			Stackable:   c.Stackable,
			Priority:    c.Priority,
			ValidFrom:   c.ValidFrom,
			ValidTo:     c.ValidTo,
			MinPurchase: c.MinPurchase,
			MinQuantity: c.MinQuantity,
		}
	}
	return out
}

func toConflictDTOs(conflicts []domain.Conflict) []ConflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]ConflictDTO, len(conflicts))
	for i, c := range conflicts {
		out[i] = ConflictDTO{Kind: c.Kind, SourceType: c.SourceType, CandidateIDs: c.CandidateIDs, Message: c.Message}
	}
	return out
}

func toApprovalDTO(r *domain.ApprovalRequest) *ApprovalDTO {
	return &ApprovalDTO{
		ID:                 r.ID,
		BusinessID:         r.BusinessID,
		CustomerID:         r.CustomerID,
		RequestedBy:        r.RequestedBy,
		OriginalAmount:     r.OriginalAmount,
		DiscountAmount:     r.DiscountAmount,
		DiscountPercentage: r.DiscountPercentage,
		Status:             r.Status,
		Reason:             r.Reason,
		ApprovedBy:         r.ApprovedBy,
		DecidedAt:          r.DecidedAt,
		CreatedAt:          r.CreatedAt,
	}
}

func toAllocationDTO(a *domain.Allocation) *AllocationDTO {
	return &AllocationDTO{
		ID:                    a.ID,
		Number:                a.Number,
		BusinessID:            a.BusinessID,
		CustomerID:            a.CustomerID,
		DiscountRuleID:        a.DiscountRuleID,
		PromotionalDiscountID: a.PromotionalDiscountID,
		TotalDiscountAmount:   a.TotalDiscountAmount,
		Method:                a.Method,
		Status:                a.Status,
		Lines:                 a.Lines,
		JournalEntryID:        a.JournalEntryID,
		JournalEntryNumber:    a.JournalEntryNumber,
		CreatedAt:             a.CreatedAt,
	}
}
