package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultApprovalThresholdPercent 是商户未配置时的审批门槛（折扣率百分比）。
var DefaultApprovalThresholdPercent = decimal.NewFromInt(20)

// ApprovalStatus 是审批单的状态，approved / rejected 为终态。
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Decision 是审批人的决定。
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ApprovalRequest 是一张折扣审批单。只能从 pending 被决定一次，之后不可重开。
type ApprovalRequest struct {
	ID                 string
	BusinessID         string
	CustomerID         string
	RequestedBy        string
	OriginalAmount     decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	// Fingerprint 绑定审批单与具体交易，复用审批时必须一致。
	Fingerprint string
	Status      ApprovalStatus
	Reason      string
	ApprovedBy  string
	DecidedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewApprovalRequest 根据叠加结果创建一张待审批的审批单。
func NewApprovalRequest(id string, tc TransactionContext, requestedBy string, stacked StackedDiscountResult, now time.Time) *ApprovalRequest {
	return &ApprovalRequest{
		ID:                 id,
		BusinessID:         tc.BusinessID,
		CustomerID:         tc.CustomerID,
		RequestedBy:        requestedBy,
		OriginalAmount:     stacked.OriginalAmount,
		DiscountAmount:     stacked.TotalDiscount,
		DiscountPercentage: RatioPercent(stacked.TotalDiscount, stacked.OriginalAmount).Round(2),
		Fingerprint:        tc.Fingerprint(),
		Status:             ApprovalPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsTerminal 判断审批单是否已被决定。
func (r *ApprovalRequest) IsTerminal() bool {
	return r.Status == ApprovalApproved || r.Status == ApprovalRejected
}

// Decide 执行审批决定，非 pending 状态下返回冲突错误且不修改任何字段。
func (r *ApprovalRequest) Decide(decision Decision, approverID, reason string, at time.Time) error {
	var next ApprovalStatus
	switch decision {
	case DecisionApprove:
		next = ApprovalApproved
	case DecisionReject:
		next = ApprovalRejected
	default:
		return ErrInvalidDecision
	}
	if approverID == "" {
		return ErrMissingApprover
	}
	if r.Status != ApprovalPending {
		return ErrApprovalAlreadyDecided
	}
	r.Status = next
	r.ApprovedBy = approverID
	r.Reason = reason
	r.DecidedAt = &at
	r.UpdatedAt = at
	return nil
}

// GateState 是审批闸门的判定结果。
type GateState string

const (
	GateNotRequired GateState = "NOT_REQUIRED"
	GatePending     GateState = "PENDING"
	GateApproved    GateState = "APPROVED"
	GateRejected    GateState = "REJECTED"
)

// GateResult 记录闸门判定及触发它的候选。
type GateResult struct {
	State         GateState
	Threshold     decimal.Decimal
	MaxPercentage decimal.Decimal
	Triggering    []string
}

// Allowed 表示流水线是否可以继续进入分摊阶段。
func (g GateResult) Allowed() bool {
	return g.State == GateNotRequired || g.State == GateApproved
}

// EvaluateGate 逐个候选计算折扣占交易金额的百分比，任意一个达到门槛即需要审批。
// prior 是调用方已持有的审批结果（空字符串表示没有），pending 视同没有。
func EvaluateGate(amount decimal.Decimal, candidates []DiscountCandidate, threshold decimal.Decimal, prior ApprovalStatus) GateResult {
	res := GateResult{State: GateNotRequired, Threshold: threshold, MaxPercentage: decimal.Zero}
	for _, c := range candidates {
		pct := c.PercentageOf(amount)
		if pct.GreaterThan(res.MaxPercentage) {
			res.MaxPercentage = pct
		}
		if pct.GreaterThanOrEqual(threshold) {
			res.Triggering = append(res.Triggering, c.Key())
		}
	}
	if len(res.Triggering) == 0 {
		return res
	}
	switch prior {
	case ApprovalApproved:
		res.State = GateApproved
	case ApprovalRejected:
		res.State = GateRejected
	default:
		res.State = GatePending
	}
	return res
}
