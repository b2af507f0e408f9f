package models

import (
	"time"

	"gorm.io/gorm"
)

// Reservation 房屋预订
type Reservation struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug               string     `gorm:"type:varchar(12);uniqueIndex;not null" json:"slug"`
	HouseID            *int64     `gorm:"index" json:"house_id,omitempty"`
	ClientID           *int64     `gorm:"index" json:"client_id,omitempty"`
	CheckInAt          time.Time  `gorm:"not null;index" json:"check_in_at"`
	CheckOutAt         time.Time  `gorm:"not null;index" json:"check_out_at"`
	TotalPersonsAmount int        `gorm:"not null" json:"total_persons_amount"`
	PreferredContact   string     `gorm:"type:varchar(255)" json:"preferred_contact"`
	Comment            string     `gorm:"type:varchar(511)" json:"comment"`
	Cancelled          bool       `gorm:"not null;default:false;index" json:"cancelled"`
	RemindedAt         *time.Time `gorm:"index" json:"reminded_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	House  *House  `gorm:"foreignKey:HouseID;constraint:OnDelete:SET NULL" json:"house,omitempty"`
	Client *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
	Bill   *Bill   `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE" json:"bill,omitempty"`
}

// TableName 表名
func (Reservation) TableName() string {
	return "reservations"
}

// Overlaps 判断预订区间 [CheckInAt, CheckOutAt) 是否与给定区间相交
func (r *Reservation) Overlaps(checkIn, checkOut time.Time) bool {
	return r.CheckInAt.Before(checkOut) && r.CheckOutAt.After(checkIn)
}

// BeforeSave 统一以 UTC 保存时间点
func (r *Reservation) BeforeSave(*gorm.DB) error {
	r.CheckInAt = r.CheckInAt.UTC()
	r.CheckOutAt = r.CheckOutAt.UTC()
	return nil
}
