package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// ReservationRepository 预订仓储
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预订仓储
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ReservationFilter 预订列表过滤条件
type ReservationFilter struct {
	HouseID   int64
	ClientID  int64
	Cancelled *bool
	Paid      *bool
	From      *time.Time
	To        *time.Time
}

// Create 创建预订
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Omit("House", "Client", "Bill").Create(reservation).Error
}

// GetByID 根据 ID 获取预订（包含房屋、客户与账单）
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.withDetails(ctx).First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetBySlug 根据访问码获取预订（包含房屋、客户与账单）
func (r *ReservationRepository) GetBySlug(ctx context.Context, slug string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.withDetails(ctx).Where("slug = ?", slug).First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *ReservationRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("House").
		Preload("Client").
		Preload("Bill").
		Preload("Bill.PromoCode")
}

// SlugExists 检查访问码是否已被使用
func (r *ReservationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// Update 更新预订字段，不级联关联
func (r *ReservationRepository) Update(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Omit("House", "Client", "Bill").Save(reservation).Error
}

// Cancel 取消预订
func (r *ReservationRepository) Cancel(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ?", id).
		Update("cancelled", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExistsOverlapping 检查房屋在 [from, to) 内是否存在未取消的预订，excludeID 为 0 时不排除
func (r *ReservationRepository) ExistsOverlapping(ctx context.Context, houseID int64, from, to time.Time, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("house_id = ?", houseID).
		Where("cancelled = ?", false).
		Where("check_in_at < ? AND check_out_at > ?", to.UTC(), from.UTC())
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// ListOverlapping 获取给定房屋在 [from, to) 内的未取消预订
func (r *ReservationRepository) ListOverlapping(ctx context.Context, houseIDs []int64, from, to time.Time) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if len(houseIDs) == 0 {
		return reservations, nil
	}
	err := r.db.WithContext(ctx).
		Where("house_id IN ?", houseIDs).
		Where("cancelled = ?", false).
		Where("check_in_at < ? AND check_out_at > ?", to.UTC(), from.UTC()).
		Order("check_in_at ASC").
		Find(&reservations).Error
	return reservations, err
}

// List 分页获取预订列表
func (r *ReservationRepository) List(ctx context.Context, offset, limit int, filter ReservationFilter) ([]*models.Reservation, int64, error) {
	var reservations []*models.Reservation
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Reservation{})
	if filter.HouseID > 0 {
		query = query.Where("house_id = ?", filter.HouseID)
	}
	if filter.ClientID > 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Cancelled != nil {
		query = query.Where("cancelled = ?", *filter.Cancelled)
	}
	if filter.Paid != nil {
		query = query.Where("id IN (?)",
			r.db.Model(&models.Bill{}).Select("reservation_id").Where("paid = ?", *filter.Paid))
	}
	if filter.From != nil {
		query = query.Where("check_out_at > ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("check_in_at < ?", filter.To.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.
		Preload("House").
		Preload("Client").
		Preload("Bill").
		Order("check_in_at DESC").
		Offset(offset).Limit(limit).
		Find(&reservations).Error; err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// ListUnpaidUpcoming 获取入住时间在 [from, to) 内、未取消、账单未支付且尚未提醒过的预订
func (r *ReservationRepository) ListUnpaidUpcoming(ctx context.Context, from, to time.Time, limit int) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Joins("JOIN bills ON bills.reservation_id = reservations.id").
		Where("reservations.cancelled = ?", false).
		Where("bills.paid = ?", false).
		Where("reservations.reminded_at IS NULL").
		Where("reservations.check_in_at >= ? AND reservations.check_in_at < ?", from.UTC(), to.UTC()).
		Preload("House").
		Preload("Client").
		Preload("Bill").
		Order("reservations.check_in_at ASC").
		Limit(limit).
		Find(&reservations).Error
	return reservations, err
}

// MarkReminded 记录提醒发送时间
func (r *ReservationRepository) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ?", id).
		UpdateColumn("reminded_at", at.UTC()).Error
}
