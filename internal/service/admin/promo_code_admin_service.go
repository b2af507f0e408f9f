package admin

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/utils"
	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
)

// PromoCodeAdminService 优惠码管理服务
type PromoCodeAdminService struct {
	promoRepo  *repository.PromoCodeRepository
	clientRepo *repository.ClientRepository
}

// NewPromoCodeAdminService 创建优惠码管理服务
func NewPromoCodeAdminService(promoRepo *repository.PromoCodeRepository, clientRepo *repository.ClientRepository) *PromoCodeAdminService {
	return &PromoCodeAdminService{promoRepo: promoRepo, clientRepo: clientRepo}
}

// PromoCodeRequest 创建或更新优惠码请求
type PromoCodeRequest struct {
	Code             string     `json:"code" binding:"required,max=64"`
	Enabled          bool       `json:"enabled"`
	DiscountType     string     `json:"discount_type" binding:"required,oneof=fixed percentage"`
	DiscountValue    int64      `json:"discount_value" binding:"min=0"`
	ClientID         *int64     `json:"client_id"`
	MaxUseTimes      int64      `json:"max_use_times" binding:"min=0"`
	MinimalBillValue int64      `json:"minimal_bill_value" binding:"min=0"`
	IssuanceAt       *time.Time `json:"issuance_at"`
	ExpirationAt     *time.Time `json:"expiration_at"`
}

// CreatePromoCode 创建优惠码
func (s *PromoCodeAdminService) CreatePromoCode(ctx context.Context, req *PromoCodeRequest) (*models.PromoCode, error) {
	promo := &models.PromoCode{}
	if err := s.apply(ctx, promo, req); err != nil {
		return nil, err
	}
	if err := s.promoRepo.Create(ctx, promo); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return promo, nil
}

// UpdatePromoCode 更新优惠码
func (s *PromoCodeAdminService) UpdatePromoCode(ctx context.Context, id int64, req *PromoCodeRequest) (*models.PromoCode, error) {
	promo, err := s.GetPromoCode(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, promo, req); err != nil {
		return nil, err
	}
	promo.Client = nil
	if err := s.promoRepo.Update(ctx, promo); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return promo, nil
}

// GetPromoCode 获取优惠码
func (s *PromoCodeAdminService) GetPromoCode(ctx context.Context, id int64) (*models.PromoCode, error) {
	promo, err := s.promoRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPromoCodeNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return promo, nil
}

// ListPromoCodes 分页获取优惠码
func (s *PromoCodeAdminService) ListPromoCodes(ctx context.Context, page utils.Pagination, enabled *bool) ([]*models.PromoCode, int64, error) {
	page.Normalize()
	promos, total, err := s.promoRepo.List(ctx, page.GetOffset(), page.GetLimit(), enabled)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return promos, total, nil
}

func (s *PromoCodeAdminService) apply(ctx context.Context, promo *models.PromoCode, req *PromoCodeRequest) error {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return errors.ErrInvalidPromoCode.WithMessage("优惠码不能为空")
	}

	switch req.DiscountType {
	case models.DiscountTypeFixed:
		if req.DiscountValue < 0 {
			return errors.ErrInvalidPromoCode.WithMessage("优惠金额不能为负")
		}
	case models.DiscountTypePercentage:
		if req.DiscountValue < 0 || req.DiscountValue > 100 {
			return errors.ErrInvalidPromoCode.WithMessage("折扣百分比应在 0 到 100 之间")
		}
	default:
		return errors.ErrInvalidPromoCode.WithMessagef("未知的优惠类型 %s", req.DiscountType)
	}

	if req.MaxUseTimes < 0 || req.MinimalBillValue < 0 {
		return errors.ErrInvalidPromoCode.WithMessage("使用次数与最低金额不能为负")
	}
	if req.IssuanceAt != nil && req.ExpirationAt != nil && !req.IssuanceAt.Before(*req.ExpirationAt) {
		return errors.ErrInvalidPromoCode.WithMessage("生效时间必须早于过期时间")
	}

	if req.ClientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *req.ClientID); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrInvalidPromoCode.WithMessage("指定的客户不存在")
			}
			return errors.ErrDatabaseError.WithError(err)
		}
	}

	exists, err := s.promoRepo.ExistsByCode(ctx, code, promo.ID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return errors.ErrPromoCodeExists
	}

	promo.Code = code
	promo.Enabled = req.Enabled
	promo.DiscountType = req.DiscountType
	promo.DiscountValue = req.DiscountValue
	promo.ClientID = req.ClientID
	promo.MaxUseTimes = req.MaxUseTimes
	promo.MinimalBillValue = req.MinimalBillValue
	promo.IssuanceAt = req.IssuanceAt
	promo.ExpirationAt = req.ExpirationAt
	return nil
}
