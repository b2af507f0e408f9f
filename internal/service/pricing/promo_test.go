package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/models"
)

func fixedNow() time.Time {
	return at(2030, 6, 1, 10, 0)
}

func testPromo() *models.PromoCode {
	return &models.PromoCode{
		ID:            7,
		Code:          "SUMMER",
		Enabled:       true,
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: 1000,
		MaxUseTimes:   2,
	}
}

func TestPromoValidator_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	past := at(2030, 5, 1, 0, 0)
	future := at(2030, 7, 1, 0, 0)
	clientA, clientB := int64(1), int64(2)

	tests := []struct {
		name     string
		mutate   func(p *models.PromoCode)
		usage    billUsage
		billID   int64
		clientID *int64
		value    int64
		wantErr  bool
	}{
		{name: "可用", value: 7500},
		{name: "已停用", mutate: func(p *models.PromoCode) { p.Enabled = false }, value: 7500, wantErr: true},
		{name: "尚未生效", mutate: func(p *models.PromoCode) { p.IssuanceAt = &future }, value: 7500, wantErr: true},
		{name: "已过期", mutate: func(p *models.PromoCode) { p.ExpirationAt = &past }, value: 7500, wantErr: true},
		{name: "在有效期内", mutate: func(p *models.PromoCode) {
			p.IssuanceAt = &past
			p.ExpirationAt = &future
		}, value: 7500},
		{name: "其他客户的个人优惠码", mutate: func(p *models.PromoCode) { p.ClientID = &clientA },
			clientID: &clientB, value: 7500, wantErr: true},
		{name: "本人的个人优惠码", mutate: func(p *models.PromoCode) { p.ClientID = &clientA },
			clientID: &clientA, value: 7500},
		{name: "报价时客户未知", mutate: func(p *models.PromoCode) { p.ClientID = &clientA }, value: 7500},
		{name: "使用次数已满", usage: billUsage{7: {100, 101}}, value: 7500, wantErr: true},
		{name: "重新计算时排除自身", usage: billUsage{7: {100, 101}}, billID: 101, value: 7500},
		{name: "未达最低金额", mutate: func(p *models.PromoCode) { p.MinimalBillValue = 8000 }, value: 7500, wantErr: true},
		{name: "恰好达到最低金额", mutate: func(p *models.PromoCode) { p.MinimalBillValue = 7500 }, value: 7500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := testPromo()
			if tt.mutate != nil {
				tt.mutate(promo)
			}
			usage := tt.usage
			if usage == nil {
				usage = billUsage{}
			}
			v := NewPromoValidator(usage, time.UTC, fixedNow)

			err := v.CheckAvailability(ctx, promo, tt.billID, tt.clientID, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrPromoCodeInvalid))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPromoValidator_WithUsage(t *testing.T) {
	v := NewPromoValidator(billUsage{}, time.UTC, fixedNow)
	full := v.WithUsage(billUsage{7: {1, 2}})

	ctx := context.Background()
	assert.NoError(t, v.CheckAvailability(ctx, testPromo(), 0, nil, 7500))
	assert.Error(t, full.CheckAvailability(ctx, testPromo(), 0, nil, 7500))
}

func TestApplyPromoCode(t *testing.T) {
	fixed := func(v int64) *models.PromoCode {
		return &models.PromoCode{DiscountType: models.DiscountTypeFixed, DiscountValue: v}
	}
	percent := func(v int64) *models.PromoCode {
		return &models.PromoCode{DiscountType: models.DiscountTypePercentage, DiscountValue: v}
	}

	tests := []struct {
		name  string
		promo *models.PromoCode
		value int64
		want  int64
	}{
		{"固定减免", fixed(1000), 7500, 6500},
		{"固定减免不低于下限", fixed(10000), 7500, 100},
		{"固定减免为零", fixed(0), 7500, 7500},
		{"百分比折扣取整", percent(15), 7500, 6400},
		{"百分比为零时按百位取整", percent(0), 7550, 7600},
		{"百分比为一百时取下限", percent(100), 7500, 100},
		{"百分比折扣按精确值取整", percent(3), 5001, 4900},
		{"百分比折扣超过一半进位", percent(51), 5002, 2500},
		{"百分比折扣恰好一半取偶数", percent(50), 5100, 2600},
		{"百分比折扣恰好一半取偶数向下", percent(50), 4900, 2400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyPromoCode(tt.promo, tt.value, 100)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("固定减免单调不增", func(t *testing.T) {
		prev := int64(1 << 62)
		for dv := int64(0); dv <= 10000; dv += 500 {
			got, err := ApplyPromoCode(fixed(dv), 7500, 100)
			require.NoError(t, err)
			assert.LessOrEqual(t, got, prev)
			assert.GreaterOrEqual(t, got, int64(100))
			prev = got
		}
	})

	t.Run("未知类型", func(t *testing.T) {
		_, err := ApplyPromoCode(&models.PromoCode{DiscountType: "gift"}, 7500, 100)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrPromoCodeUnexpectedType))
	})
}
