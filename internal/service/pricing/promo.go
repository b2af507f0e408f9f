package pricing

import (
	"context"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/models"
)

// PromoUsageCounter 统计引用优惠码的账单数
type PromoUsageCounter interface {
	// CountByPromoCode 排除 excludeBillID 对应的账单（0 表示不排除）
	CountByPromoCode(ctx context.Context, promoCodeID, excludeBillID int64) (int64, error)
}

// PromoValidator 校验优惠码是否可用于某张账单
type PromoValidator struct {
	usage PromoUsageCounter
	loc   *time.Location
	now   func() time.Time
}

// NewPromoValidator 创建优惠码校验器
func NewPromoValidator(usage PromoUsageCounter, loc *time.Location, now func() time.Time) *PromoValidator {
	if now == nil {
		now = time.Now
	}
	return &PromoValidator{usage: usage, loc: loc, now: now}
}

// WithUsage 返回使用另一个计数来源的副本（如事务内的仓储）
func (v *PromoValidator) WithUsage(usage PromoUsageCounter) *PromoValidator {
	cp := *v
	cp.usage = usage
	return &cp
}

// CheckAvailability 校验优惠码。
// billID 为正在保存的账单，0 表示新账单；clientID 为 nil 时跳过客户绑定校验
func (v *PromoValidator) CheckAvailability(ctx context.Context, promo *models.PromoCode, billID int64, clientID *int64, value int64) error {
	now := v.now()

	if !promo.Enabled {
		return errors.ErrPromoCodeInvalid.WithMessagef("优惠码 %s 已停用", promo.Code)
	}
	if promo.IssuanceAt != nil && now.Before(*promo.IssuanceAt) {
		return errors.ErrPromoCodeInvalid.WithMessagef("优惠码自 %s 起生效",
			promo.IssuanceAt.In(v.loc).Format("02-01-2006 15:04"))
	}
	if promo.ExpirationAt != nil && now.After(*promo.ExpirationAt) {
		return errors.ErrPromoCodeInvalid.WithMessagef("优惠码 %s 已过期", promo.Code)
	}
	if promo.ClientID != nil && clientID != nil && *promo.ClientID != *clientID {
		return errors.ErrPromoCodeInvalid.WithMessage("该优惠码仅限指定客户使用")
	}

	used, err := v.usage.CountByPromoCode(ctx, promo.ID, billID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if used >= promo.MaxUseTimes {
		return errors.ErrPromoCodeInvalid.WithMessagef("优惠码 %s 使用次数已达上限", promo.Code)
	}

	if value < promo.MinimalBillValue {
		return errors.ErrPromoCodeInvalid.WithMessagef("订单金额需不低于 %d 才能使用该优惠码", promo.MinimalBillValue)
	}
	return nil
}

// ApplyPromoCode 计算折后金额，结果不低于 floor
func ApplyPromoCode(promo *models.PromoCode, value, floor int64) (int64, error) {
	var discounted int64
	switch promo.DiscountType {
	case models.DiscountTypeFixed:
		discounted = value - promo.DiscountValue
	case models.DiscountTypePercentage:
		discounted = roundRatioHundreds(value*(100-promo.DiscountValue), 100)
	default:
		return 0, errors.ErrPromoCodeUnexpectedType.WithMessagef("未知的优惠类型: %s", promo.DiscountType)
	}
	if discounted < floor {
		discounted = floor
	}
	return discounted, nil
}
