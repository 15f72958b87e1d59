package infrastructure

import (
	"context"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"nexus-discount/internal/service/discount/domain"
)

// mysqlDuplicateEntry 是 MySQL 唯一键冲突的错误码。
const mysqlDuplicateEntry = 1062

// GormAllocationRepository 是 AllocationRepository 的 GORM 实现。
type GormAllocationRepository struct {
	db *gorm.DB
}

func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Create 在一个事务里写入分摊头和全部明细行，任何一步失败都整体回滚。
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *domain.Allocation) error {
	model := FromDomainAllocation(allocation)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return translateWriteError(err, "insert allocation")
		}
		if len(model.Lines) == 0 {
			return nil
		}
		if err := tx.Create(&model.Lines).Error; err != nil {
			return errors.Wrap(err, "insert allocation lines")
		}
		return nil
	})
}

func (r *GormAllocationRepository) FindByID(ctx context.Context, businessID, id string) (*domain.Allocation, error) {
	var model AllocationModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAllocationNotFound
		}
		return nil, errors.Wrap(err, "query allocation")
	}
	return ToDomainAllocation(&model), nil
}

// AttachJournalEntry 记录过账凭证并把状态改为 posted。
func (r *GormAllocationRepository) AttachJournalEntry(ctx context.Context, businessID, id, journalEntryID, entryNumber string) error {
	res := r.db.WithContext(ctx).Model(&AllocationModel{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(map[string]interface{}{
			"journal_entry_id":     journalEntryID,
			"journal_entry_number": entryNumber,
			"status":               string(domain.AllocationStatusPosted),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "attach journal entry")
	}
	if res.RowsAffected == 0 {
		return domain.ErrAllocationNotFound
	}
	return nil
}

// translateWriteError 把唯一键冲突转换为领域冲突错误，其余错误附加上下文。
func translateWriteError(err error, op string) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return errors.Wrap(domain.ErrAllocationNumberConflict, myErr.Message)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(domain.ErrAllocationNumberConflict, op)
	}
	return errors.Wrap(err, op)
}
