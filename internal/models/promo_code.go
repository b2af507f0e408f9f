package models

import "time"

// DiscountType 优惠类型
const (
	DiscountTypeFixed      = "fixed"      // 固定金额
	DiscountTypePercentage = "percentage" // 百分比
)

// PromoCode 优惠码
type PromoCode struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code             string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Enabled          bool       `gorm:"not null" json:"enabled"`
	DiscountType     string     `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue    int64      `gorm:"not null" json:"discount_value"`
	ClientID         *int64     `gorm:"index" json:"client_id,omitempty"`
	MaxUseTimes      int64      `gorm:"not null" json:"max_use_times"`
	MinimalBillValue int64      `gorm:"not null" json:"minimal_bill_value"`
	IssuanceAt       *time.Time `json:"issuance_at,omitempty"`
	ExpirationAt     *time.Time `json:"expiration_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Client *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
}

// TableName 表名
func (PromoCode) TableName() string {
	return "promo_codes"
}
