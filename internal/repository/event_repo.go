package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// EventRepository 价格活动仓储
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建价格活动仓储
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create 创建活动
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetByID 根据 ID 获取活动
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Update 更新活动
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// Delete 删除活动
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Event{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 分页获取活动列表，按开始日期倒序
func (r *EventRepository) List(ctx context.Context, offset, limit int) ([]*models.Event, int64, error) {
	var events []*models.Event
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Event{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("start_date DESC, id DESC").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListOverlapping 获取与 [from, to] 日期区间相交的活动
func (r *EventRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", datatypes.Date(to), datatypes.Date(from)).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
