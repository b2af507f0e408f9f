package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// ClientRepository 客户仓储
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository 创建客户仓储
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// GetByID 根据 ID 获取客户
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).First(&client, id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetByEmail 根据邮箱获取客户
func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// UpsertByEmail 按邮箱查找客户，存在时更新姓名，不存在时创建
func (r *ClientRepository) UpsertByEmail(ctx context.Context, email, firstName, lastName string) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where(models.Client{Email: email}).
		Assign(models.Client{FirstName: firstName, LastName: lastName}).
		FirstOrCreate(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}
