package port

import (
	"context"

	"nexus-discount/internal/service/discount/domain"
)

// ApprovalNotifier 把审批单的变化推送给在线的审批人，失败只记录日志。
type ApprovalNotifier interface {
	NotifyApproval(ctx context.Context, req *domain.ApprovalRequest) error
}
