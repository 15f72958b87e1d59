package port

import "context"

// AllocationNumberGenerator 为分摊记录生成商户内唯一的编号。
type AllocationNumberGenerator interface {
	NextAllocationNumber(ctx context.Context, businessID string) (string, error)
}
