// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// HouseRepository 房屋仓储
type HouseRepository struct {
	db *gorm.DB
}

// NewHouseRepository 创建房屋仓储
func NewHouseRepository(db *gorm.DB) *HouseRepository {
	return &HouseRepository{db: db}
}

// Create 创建房屋
func (r *HouseRepository) Create(ctx context.Context, house *models.House) error {
	return r.db.WithContext(ctx).Create(house).Error
}

// GetByID 根据 ID 获取房屋
func (r *HouseRepository) GetByID(ctx context.Context, id int64) (*models.House, error) {
	var house models.House
	err := r.db.WithContext(ctx).First(&house, id).Error
	if err != nil {
		return nil, err
	}
	return &house, nil
}

// Update 更新房屋
func (r *HouseRepository) Update(ctx context.Context, house *models.House) error {
	return r.db.WithContext(ctx).Save(house).Error
}

// Delete 删除房屋，关联预订的 house_id 置空
func (r *HouseRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.House{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 分页获取房屋列表
func (r *HouseRepository) List(ctx context.Context, offset, limit int, active *bool) ([]*models.House, int64, error) {
	var houses []*models.House
	var total int64

	query := r.db.WithContext(ctx).Model(&models.House{})
	if active != nil {
		query = query.Where("active = ?", *active)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&houses).Error; err != nil {
		return nil, 0, err
	}
	return houses, total, nil
}

// ListActive 获取可接待 minPersons 人的启用房屋；ids 为空时不按 ID 过滤
func (r *HouseRepository) ListActive(ctx context.Context, ids []int64, minPersons int) ([]*models.House, error) {
	var houses []*models.House
	query := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("max_persons_amount >= ?", minPersons)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	err := query.Order("id ASC").Find(&houses).Error
	return houses, err
}

// ExistsByName 检查名称是否被其他房屋占用
func (r *HouseRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.House{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}
