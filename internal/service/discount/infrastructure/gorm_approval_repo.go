package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"nexus-discount/internal/service/discount/domain"
)

// GormApprovalRepository 是 ApprovalRepository 的 GORM 实现。
type GormApprovalRepository struct {
	db *gorm.DB
}

func NewGormApprovalRepository(db *gorm.DB) *GormApprovalRepository {
	return &GormApprovalRepository{db: db}
}

func (r *GormApprovalRepository) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	if err := r.db.WithContext(ctx).Create(FromDomainApproval(req)).Error; err != nil {
		return errors.Wrap(err, "insert approval request")
	}
	return nil
}

func (r *GormApprovalRepository) FindByID(ctx context.Context, businessID, id string) (*domain.ApprovalRequest, error) {
	var model ApprovalModel
	err := r.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrApprovalNotFound
		}
		return nil, errors.Wrap(err, "query approval request")
	}
	return ToDomainApproval(&model), nil
}

// SaveDecision 用 status = pending 作为更新条件，并发决定时只有第一个能成功。
func (r *GormApprovalRepository) SaveDecision(ctx context.Context, req *domain.ApprovalRequest) error {
	res := r.db.WithContext(ctx).Model(&ApprovalModel{}).
		Where("id = ? AND business_id = ? AND status = ?", req.ID, req.BusinessID, string(domain.ApprovalPending)).
		Updates(map[string]interface{}{
			"status":      string(req.Status),
			"reason":      req.Reason,
			"approved_by": req.ApprovedBy,
			"decided_at":  req.DecidedAt,
			"updated_at":  req.UpdatedAt,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "save approval decision")
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.FindByID(ctx, req.BusinessID, req.ID); err != nil {
		return err
	}
	return domain.ErrApprovalAlreadyDecided
}
