package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// PromoCodeRepository 优惠码仓储
type PromoCodeRepository struct {
	db *gorm.DB
}

// NewPromoCodeRepository 创建优惠码仓储
func NewPromoCodeRepository(db *gorm.DB) *PromoCodeRepository {
	return &PromoCodeRepository{db: db}
}

// Create 创建优惠码
func (r *PromoCodeRepository) Create(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

// GetByID 根据 ID 获取优惠码
func (r *PromoCodeRepository) GetByID(ctx context.Context, id int64) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).First(&promo, id).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// GetByCode 根据优惠码文本获取
func (r *PromoCodeRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// Update 更新优惠码
func (r *PromoCodeRepository) Update(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Save(promo).Error
}

// Delete 删除优惠码，引用它的账单 promo_code_id 置空
func (r *PromoCodeRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.PromoCode{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 分页获取优惠码列表
func (r *PromoCodeRepository) List(ctx context.Context, offset, limit int, enabled *bool) ([]*models.PromoCode, int64, error) {
	var promos []*models.PromoCode
	var total int64

	query := r.db.WithContext(ctx).Model(&models.PromoCode{})
	if enabled != nil {
		query = query.Where("enabled = ?", *enabled)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&promos).Error; err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

// ExistsByCode 检查优惠码文本是否已存在
func (r *PromoCodeRepository) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PromoCode{}).Where("code = ?", code)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}
