package adapter

import (
	"context"
	"fmt"
	"net/url"

	"nexus-discount/internal/pkg/clock"
)

// Sequencer 为每个名字提供单调递增的序号，*zookeeper.Sequence 满足该接口。
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// AllocationNumberZKAdapter 实现了 port.AllocationNumberGenerator。
// 编号形如 DA-20250312-000042，序号按商户独立递增。
type AllocationNumberZKAdapter struct {
	seq   Sequencer
	clock clock.Clock
}

func NewAllocationNumberZKAdapter(seq Sequencer, clk clock.Clock) *AllocationNumberZKAdapter {
	return &AllocationNumberZKAdapter{seq: seq, clock: clk}
}

func (a *AllocationNumberZKAdapter) NextAllocationNumber(ctx context.Context, businessID string) (string, error) {
	n, err := a.seq.Next(ctx, url.PathEscape(businessID))
	if err != nil {
		return "", fmt.Errorf("allocation number for %s: %w", businessID, err)
	}
	return fmt.Sprintf("DA-%s-%06d", a.clock.Now().UTC().Format("20060102"), n), nil
}
