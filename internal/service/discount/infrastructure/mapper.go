package infrastructure

import (
	"strconv"
	"strings"
	"time"

	"nexus-discount/internal/service/discount/domain"
)

// ToDomainPromotion 将数据库模型转换为领域模型
func ToDomainPromotion(m *PromotionModel) domain.Promotion {
	return domain.Promotion{
		ID:               m.ID,
		Name:             m.Name,
		Code:             m.Code,
		AutoApply:        m.AutoApply,
		DiscountType:     domain.DiscountType(m.DiscountType),
		Value:            m.Value,
		MinPurchase:      m.MinPurchase,
		PerCustomerLimit: m.PerCustomerLimit,
		UsageLimit:       m.UsageLimit,
		UsageCount:       m.UsageCount,
		Stackable:        m.Stackable,
		Validity:         domain.Validity{ValidFrom: m.ValidFrom, ValidTo: m.ValidTo},
	}
}

func ToDomainVolumeTier(m *VolumeTierModel) domain.VolumeTier {
	return domain.VolumeTier{
		ID:           m.ID,
		Name:         m.Name,
		MinQuantity:  m.MinQuantity,
		MaxQuantity:  m.MaxQuantity,
		MinAmount:    m.MinAmount,
		DiscountType: domain.DiscountType(m.DiscountType),
		Value:        m.Value,
		Stackable:    m.Stackable,
		Validity:     domain.Validity{ValidFrom: m.ValidFrom, ValidTo: m.ValidTo},
	}
}

func ToDomainPaymentTerm(m *PaymentTermModel) domain.EarlyPaymentTerm {
	return domain.EarlyPaymentTerm{
		ID:              m.ID,
		Name:            m.Name,
		PaymentDays:     m.PaymentDays,
		DiscountPercent: m.DiscountPercent,
		IsDefault:       m.IsDefault,
		Stackable:       m.Stackable,
		Validity:        domain.Validity{ValidFrom: m.ValidFrom, ValidTo: m.ValidTo},
	}
}

func ToDomainCategoryRule(m *CategoryRuleModel) domain.CategoryRule {
	return domain.CategoryRule{
		ID:           m.ID,
		Name:         m.Name,
		CategoryID:   m.CategoryID,
		ServiceID:    m.ServiceID,
		DiscountType: domain.DiscountType(m.DiscountType),
		Value:        m.Value,
		MinPurchase:  m.MinPurchase,
		MinQuantity:  m.MinQuantity,
		Stackable:    m.Stackable,
		Validity:     domain.Validity{ValidFrom: m.ValidFrom, ValidTo: m.ValidTo},
	}
}

// ToDomainPricingRule 展开逗号分隔的客户分类和星期，无法解析的星期会被忽略。
func ToDomainPricingRule(m *PricingRuleModel) domain.PricingRule {
	return domain.PricingRule{
		ID:                 m.ID,
		Name:               m.Name,
		DiscountType:       domain.DiscountType(m.DiscountType),
		Value:              m.Value,
		CustomerCategories: splitList(m.CustomerCategories),
		MinQuantity:        m.MinQuantity,
		MaxQuantity:        m.MaxQuantity,
		StartTime:          m.StartTime,
		EndTime:            m.EndTime,
		DaysOfWeek:         parseWeekdays(m.DaysOfWeek),
		TargetType:         m.TargetType,
		TargetID:           m.TargetID,
		Condition:          m.Condition,
		MinPurchase:        m.MinPurchase,
		Stackable:          m.Stackable,
		Validity:           domain.Validity{ValidFrom: m.ValidFrom, ValidTo: m.ValidTo},
	}
}

// FromDomainAllocation 生成分摊头和明细行，LineNo 保留输入顺序。
func FromDomainAllocation(a *domain.Allocation) *AllocationModel {
	lines := make([]AllocationLineModel, len(a.Lines))
	for i, l := range a.Lines {
		lines[i] = AllocationLineModel{
			AllocationID:   a.ID,
			LineNo:         i + 1,
			LineRef:        l.LineRef,
			LineType:       l.LineType,
			Quantity:       l.Quantity,
			LineAmount:     l.LineAmount,
			DiscountAmount: l.DiscountAmount,
			Weight:         l.Weight,
		}
	}
	return &AllocationModel{
		ID:                    a.ID,
		Number:                a.Number,
		BusinessID:            a.BusinessID,
		CustomerID:            a.CustomerID,
		DiscountRuleID:        a.DiscountRuleID,
		PromotionalDiscountID: a.PromotionalDiscountID,
		TotalDiscountAmount:   a.TotalDiscountAmount,
		Method:                string(a.Method),
		Status:                string(a.Status),
		JournalEntryID:        a.JournalEntryID,
		JournalEntryNumber:    a.JournalEntryNumber,
		Lines:                 lines,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.CreatedAt,
	}
}

func ToDomainAllocation(m *AllocationModel) *domain.Allocation {
	lines := make([]domain.AllocationLine, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = domain.AllocationLine{
			LineRef:        l.LineRef,
			LineType:       l.LineType,
			Quantity:       l.Quantity,
			LineAmount:     l.LineAmount,
			DiscountAmount: l.DiscountAmount,
			Weight:         l.Weight,
		}
	}
	return &domain.Allocation{
		ID:                    m.ID,
		Number:                m.Number,
		BusinessID:            m.BusinessID,
		CustomerID:            m.CustomerID,
		DiscountRuleID:        m.DiscountRuleID,
		PromotionalDiscountID: m.PromotionalDiscountID,
		TotalDiscountAmount:   m.TotalDiscountAmount,
		Method:                domain.AllocationMethod(m.Method),
		Status:                domain.AllocationStatus(m.Status),
		Lines:                 lines,
		JournalEntryID:        m.JournalEntryID,
		JournalEntryNumber:    m.JournalEntryNumber,
		CreatedAt:             m.CreatedAt,
	}
}

func FromDomainApproval(r *domain.ApprovalRequest) *ApprovalModel {
	return &ApprovalModel{
		ID:                 r.ID,
		BusinessID:         r.BusinessID,
		CustomerID:         r.CustomerID,
		RequestedBy:        r.RequestedBy,
		OriginalAmount:     r.OriginalAmount,
		DiscountAmount:     r.DiscountAmount,
		DiscountPercentage: r.DiscountPercentage,
		Fingerprint:        r.Fingerprint,
		Status:             string(r.Status),
		Reason:             r.Reason,
		ApprovedBy:         r.ApprovedBy,
		DecidedAt:          r.DecidedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func ToDomainApproval(m *ApprovalModel) *domain.ApprovalRequest {
	return &domain.ApprovalRequest{
		ID:                 m.ID,
		BusinessID:         m.BusinessID,
		CustomerID:         m.CustomerID,
		RequestedBy:        m.RequestedBy,
		OriginalAmount:     m.OriginalAmount,
		DiscountAmount:     m.DiscountAmount,
		DiscountPercentage: m.DiscountPercentage,
		Fingerprint:        m.Fingerprint,
		Status:             domain.ApprovalStatus(m.Status),
		Reason:             m.Reason,
		ApprovedBy:         m.ApprovedBy,
		DecidedAt:          m.DecidedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseWeekdays(s string) []time.Weekday {
	var out []time.Weekday
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			continue
		}
		out = append(out, time.Weekday(n))
	}
	return out
}
