package port

import (
	"context"

	"github.com/shopspring/decimal"

	"nexus-discount/internal/service/discount/domain"
)

// JournalReference 是记账服务返回的凭证引用。
type JournalReference struct {
	JournalEntryID string `json:"journalEntryId"`
	EntryNumber    string `json:"entryNumber"`
}

// DiscountJournal 是过账所需的折扣信息。
type DiscountJournal struct {
	BusinessID     string                  `json:"businessId"`
	CustomerID     string                  `json:"customerId,omitempty"`
	AllocationID   string                  `json:"allocationId"`
	AllocationNo   string                  `json:"allocationNumber"`
	OriginalAmount decimal.Decimal         `json:"originalAmount"`
	TotalDiscount  decimal.Decimal         `json:"totalDiscount"`
	FinalAmount    decimal.Decimal         `json:"finalAmount"`
	Lines          []domain.AllocationLine `json:"lines"`
}

// LedgerService 是记账服务的出站端口，只在分摊已提交后调用。
type LedgerService interface {
	PostDiscountJournal(ctx context.Context, journal DiscountJournal) (*JournalReference, error)
}
