package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nexus-discount/internal/service/discount/domain"
)

// GormSourceStore 是 SourceStore 的 GORM 实现，只做按商户和日期窗口的粗过滤。
type GormSourceStore struct {
	db *gorm.DB
}

func NewGormSourceStore(db *gorm.DB) *GormSourceStore {
	return &GormSourceStore{db: db}
}

// activeAt 限定商户、启用状态和有效期。有效期按整天比较，所以窗口取交易日的起止。
func (s *GormSourceStore) activeAt(ctx context.Context, businessID string, at time.Time) *gorm.DB {
	dayStart, dayEnd := dayWindow(at)
	return s.db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Where("(valid_from IS NULL OR valid_from < ?)", dayEnd).
		Where("(valid_to IS NULL OR valid_to >= ?)", dayStart)
}

func (s *GormSourceStore) FindPromotions(ctx context.Context, businessID, promoCode string, at time.Time) ([]domain.Promotion, error) {
	var models []PromotionModel
	q := s.activeAt(ctx, businessID, at)
	if code := strings.ToUpper(strings.TrimSpace(promoCode)); code != "" {
		q = q.Where("(auto_apply = ? OR UPPER(code) = ?)", true, code)
	} else {
		q = q.Where("auto_apply = ?", true)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "query promotions")
	}
	out := make([]domain.Promotion, len(models))
	for i := range models {
		out[i] = ToDomainPromotion(&models[i])
	}
	return out, nil
}

func (s *GormSourceStore) FindVolumeTiers(ctx context.Context, businessID string, quantity int) ([]domain.VolumeTier, error) {
	var models []VolumeTierModel
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Where("min_quantity <= ?", quantity).
		Order("min_quantity DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "query volume tiers")
	}
	out := make([]domain.VolumeTier, len(models))
	for i := range models {
		out[i] = ToDomainVolumeTier(&models[i])
	}
	return out, nil
}

func (s *GormSourceStore) FindPaymentTerms(ctx context.Context, businessID, customerID string) ([]domain.EarlyPaymentTerm, error) {
	var models []PaymentTermModel
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Where("(customer_id = '' OR customer_id = ?)", customerID).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "query payment terms")
	}
	out := make([]domain.EarlyPaymentTerm, len(models))
	for i := range models {
		out[i] = ToDomainPaymentTerm(&models[i])
	}
	return out, nil
}

func (s *GormSourceStore) FindCategoryRules(ctx context.Context, businessID, categoryID, serviceID string) ([]domain.CategoryRule, error) {
	var models []CategoryRuleModel
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Where("((category_id = '' AND service_id = '') OR (category_id <> '' AND category_id = ?) OR (service_id <> '' AND service_id = ?))",
			categoryID, serviceID).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "query category rules")
	}
	out := make([]domain.CategoryRule, len(models))
	for i := range models {
		out[i] = ToDomainCategoryRule(&models[i])
	}
	return out, nil
}

func (s *GormSourceStore) FindPricingRules(ctx context.Context, businessID string, at time.Time) ([]domain.PricingRule, error) {
	var models []PricingRuleModel
	if err := s.activeAt(ctx, businessID, at).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "query pricing rules")
	}
	out := make([]domain.PricingRule, len(models))
	for i := range models {
		out[i] = ToDomainPricingRule(&models[i])
	}
	return out, nil
}

// dayWindow 返回 at 所在日（UTC）的 [start, end)。
func dayWindow(at time.Time) (time.Time, time.Time) {
	y, m, d := at.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// GormSettingsStore 读取商户级折扣配置。
type GormSettingsStore struct {
	db *gorm.DB
}

func NewGormSettingsStore(db *gorm.DB) *GormSettingsStore {
	return &GormSettingsStore{db: db}
}

func (s *GormSettingsStore) ApprovalThreshold(ctx context.Context, businessID string) (threshold decimal.Decimal, ok bool, err error) {
	var m BusinessSettingsModel
	err = s.db.WithContext(ctx).Where("business_id = ?", businessID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return threshold, false, nil
	}
	if err != nil {
		return threshold, false, errors.Wrap(err, "query business settings")
	}
	if m.ApprovalThresholdPercent == nil {
		return threshold, false, nil
	}
	return *m.ApprovalThresholdPercent, true, nil
}
