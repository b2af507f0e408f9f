package models

import (
	"time"

	"gorm.io/datatypes"
)

// House 房屋模型
type House struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	BasePrice           int64     `gorm:"not null" json:"base_price"`
	HolidaysMultiplier  float64   `gorm:"not null" json:"holidays_multiplier"`
	BasePersonsAmount   int       `gorm:"not null" json:"base_persons_amount"`
	MaxPersonsAmount    int       `gorm:"not null" json:"max_persons_amount"`
	PricePerExtraPerson int64     `gorm:"not null" json:"price_per_extra_person"`
	Active              bool      `gorm:"not null;index" json:"active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (House) TableName() string {
	return "houses"
}

// ExtraPersons 超出基础人数的客人数
func (h *House) ExtraPersons(totalPersons int) int {
	if totalPersons <= h.BasePersonsAmount {
		return 0
	}
	return totalPersons - h.BasePersonsAmount
}

// ExtraPersonsPrice 每晚的加人费用
func (h *House) ExtraPersonsPrice(totalPersons int) int64 {
	return int64(h.ExtraPersons(totalPersons)) * h.PricePerExtraPerson
}

// Event 价格活动（节假日、节庆等涨价区间）
type Event struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string         `gorm:"type:varchar(100);not null" json:"name"`
	StartDate  datatypes.Date `gorm:"not null;index" json:"start_date"`
	EndDate    datatypes.Date `gorm:"not null;index" json:"end_date"`
	Multiplier float64        `gorm:"not null" json:"multiplier"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Event) TableName() string {
	return "events"
}

// Covers 判断日期是否落在活动区间内（首尾均包含）
func (e *Event) Covers(day time.Time) bool {
	d := dayNumber(day)
	return dayNumber(time.Time(e.StartDate)) <= d && d <= dayNumber(time.Time(e.EndDate))
}

// dayNumber 按所在时区的年月日生成可比较的整数
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
