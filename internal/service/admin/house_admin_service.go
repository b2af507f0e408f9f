// Package admin 提供运营后台服务
package admin

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/utils"
	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	"github.com/dumeirei/house-booking-backend/internal/service/pricing"
)

// PriceInvalidator 房屋或活动变更后使日价格缓存失效
type PriceInvalidator interface {
	Invalidate(ctx context.Context) error
}

// HouseAdminService 房屋管理服务
type HouseAdminService struct {
	houseRepo   *repository.HouseRepository
	tariff      *pricing.Tariff
	defaults    config.HouseDefaultsConfig
	invalidator PriceInvalidator
}

// NewHouseAdminService 创建房屋管理服务
func NewHouseAdminService(
	houseRepo *repository.HouseRepository,
	tariff *pricing.Tariff,
	defaults config.HouseDefaultsConfig,
	invalidator PriceInvalidator,
) *HouseAdminService {
	return &HouseAdminService{
		houseRepo:   houseRepo,
		tariff:      tariff,
		defaults:    defaults,
		invalidator: invalidator,
	}
}

// CreateHouseRequest 创建房屋请求，省略的字段取配置默认值
type CreateHouseRequest struct {
	Name                string   `json:"name" binding:"required,max=100"`
	BasePrice           *int64   `json:"base_price"`
	HolidaysMultiplier  *float64 `json:"holidays_multiplier"`
	BasePersonsAmount   *int     `json:"base_persons_amount"`
	MaxPersonsAmount    *int     `json:"max_persons_amount"`
	PricePerExtraPerson *int64   `json:"price_per_extra_person"`
}

// UpdateHouseRequest 更新房屋请求
type UpdateHouseRequest struct {
	Name                *string  `json:"name" binding:"omitempty,max=100"`
	BasePrice           *int64   `json:"base_price"`
	HolidaysMultiplier  *float64 `json:"holidays_multiplier"`
	BasePersonsAmount   *int     `json:"base_persons_amount"`
	MaxPersonsAmount    *int     `json:"max_persons_amount"`
	PricePerExtraPerson *int64   `json:"price_per_extra_person"`
	Active              *bool    `json:"active"`
}

// CreateHouse 创建房屋
func (s *HouseAdminService) CreateHouse(ctx context.Context, req *CreateHouseRequest) (*models.House, error) {
	house := &models.House{
		Name:                strings.TrimSpace(req.Name),
		BasePrice:           s.defaults.BasePrice,
		HolidaysMultiplier:  s.defaults.HolidaysMultiplier,
		BasePersonsAmount:   s.defaults.BasePersonsAmount,
		MaxPersonsAmount:    s.defaults.MaxPersonsAmount,
		PricePerExtraPerson: s.defaults.PricePerExtraPerson,
		Active:              true,
	}
	if req.BasePrice != nil {
		house.BasePrice = *req.BasePrice
	}
	if req.HolidaysMultiplier != nil {
		house.HolidaysMultiplier = *req.HolidaysMultiplier
	}
	if req.BasePersonsAmount != nil {
		house.BasePersonsAmount = *req.BasePersonsAmount
	}
	if req.MaxPersonsAmount != nil {
		house.MaxPersonsAmount = *req.MaxPersonsAmount
	}
	if req.PricePerExtraPerson != nil {
		house.PricePerExtraPerson = *req.PricePerExtraPerson
	}

	if err := s.validateHouse(house); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, house.Name, 0); err != nil {
		return nil, err
	}

	if err := s.houseRepo.Create(ctx, house); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.invalidate(ctx)
	return house, nil
}

// UpdateHouse 更新房屋
func (s *HouseAdminService) UpdateHouse(ctx context.Context, id int64, req *UpdateHouseRequest) (*models.House, error) {
	house, err := s.GetHouse(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		house.Name = strings.TrimSpace(*req.Name)
	}
	if req.BasePrice != nil {
		house.BasePrice = *req.BasePrice
	}
	if req.HolidaysMultiplier != nil {
		house.HolidaysMultiplier = *req.HolidaysMultiplier
	}
	if req.BasePersonsAmount != nil {
		house.BasePersonsAmount = *req.BasePersonsAmount
	}
	if req.MaxPersonsAmount != nil {
		house.MaxPersonsAmount = *req.MaxPersonsAmount
	}
	if req.PricePerExtraPerson != nil {
		house.PricePerExtraPerson = *req.PricePerExtraPerson
	}
	if req.Active != nil {
		house.Active = *req.Active
	}

	if err := s.validateHouse(house); err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := s.checkNameFree(ctx, house.Name, house.ID); err != nil {
			return nil, err
		}
	}

	if err := s.houseRepo.Update(ctx, house); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.invalidate(ctx)
	return house, nil
}

// DeactivateHouse 停用房屋。已有预订保留，停用后不再出现在日历中，也不能新建预订
func (s *HouseAdminService) DeactivateHouse(ctx context.Context, id int64) error {
	active := false
	_, err := s.UpdateHouse(ctx, id, &UpdateHouseRequest{Active: &active})
	return err
}

// GetHouse 获取房屋
func (s *HouseAdminService) GetHouse(ctx context.Context, id int64) (*models.House, error) {
	house, err := s.houseRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrHouseNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return house, nil
}

// ListHouses 分页获取房屋
func (s *HouseAdminService) ListHouses(ctx context.Context, page utils.Pagination, active *bool) ([]*models.House, int64, error) {
	page.Normalize()
	houses, total, err := s.houseRepo.List(ctx, page.GetOffset(), page.GetLimit(), active)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return houses, total, nil
}

func (s *HouseAdminService) validateHouse(h *models.House) error {
	switch {
	case h.Name == "":
		return errors.ErrInvalidHouse.WithMessage("房屋名称不能为空")
	case h.BasePrice < s.tariff.MinHouseBasePrice:
		return errors.ErrInvalidHouse.WithMessagef("基础价格不能低于 %d", s.tariff.MinHouseBasePrice)
	case h.HolidaysMultiplier < s.tariff.MinHolidaysMultiplier:
		return errors.ErrInvalidHouse.WithMessagef("节假日倍率不能低于 %v", s.tariff.MinHolidaysMultiplier)
	case h.BasePersonsAmount < 1:
		return errors.ErrInvalidHouse.WithMessage("基础人数至少为 1")
	case h.MaxPersonsAmount < h.BasePersonsAmount:
		return errors.ErrInvalidHouse.WithMessage("最大人数不能小于基础人数")
	case h.PricePerExtraPerson < 0:
		return errors.ErrInvalidHouse.WithMessage("加人费用不能为负")
	}
	return nil
}

func (s *HouseAdminService) checkNameFree(ctx context.Context, name string, excludeID int64) error {
	exists, err := s.houseRepo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return errors.ErrHouseExists
	}
	return nil
}

func (s *HouseAdminService) invalidate(ctx context.Context) {
	invalidatePrices(ctx, s.invalidator)
}

// invalidatePrices 缓存失效失败只记录日志，过期后自然恢复
func invalidatePrices(ctx context.Context, invalidator PriceInvalidator) {
	if invalidator == nil {
		return
	}
	if err := invalidator.Invalidate(ctx); err != nil {
		logger.WithContext(ctx).Warn("日价格缓存失效失败", logger.Err(err))
	}
}
