package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// BillRepository 账单仓储
type BillRepository struct {
	db *gorm.DB
}

// NewBillRepository 创建账单仓储
func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{db: db}
}

// Create 创建账单
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	return r.db.WithContext(ctx).Omit("PromoCode").Create(bill).Error
}

// Update 更新账单
func (r *BillRepository) Update(ctx context.Context, bill *models.Bill) error {
	return r.db.WithContext(ctx).Omit("PromoCode").Save(bill).Error
}

// GetByReservationID 获取预订对应的账单
func (r *BillRepository) GetByReservationID(ctx context.Context, reservationID int64) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.WithContext(ctx).
		Preload("PromoCode").
		Where("reservation_id = ?", reservationID).
		First(&bill).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// CountByPromoCode 统计使用该优惠码的账单数，excludeBillID 为 0 时不排除
func (r *BillRepository) CountByPromoCode(ctx context.Context, promoCodeID, excludeBillID int64) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Bill{}).Where("promo_code_id = ?", promoCodeID)
	if excludeBillID > 0 {
		query = query.Where("id <> ?", excludeBillID)
	}
	err := query.Count(&count).Error
	return count, err
}

// MarkPaid 标记账单已支付
func (r *BillRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Bill{}).
		Where("id = ? AND paid = ?", id, false).
		Updates(map[string]interface{}{
			"paid":    true,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
