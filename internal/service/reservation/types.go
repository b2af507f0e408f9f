package reservation

import (
	"time"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

// QuoteRequest 报价请求
type QuoteRequest struct {
	HouseID            int64     `json:"house_id" binding:"required"`
	CheckIn            time.Time `json:"check_in" binding:"required"`
	CheckOut           time.Time `json:"check_out" binding:"required"`
	TotalPersonsAmount int       `json:"total_persons_amount" binding:"required"`
	PromoCode          string    `json:"promo_code"`
}

// ClientInfo 预订客户
type ClientInfo struct {
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// CommitRequest 创建预订请求
type CommitRequest struct {
	QuoteRequest
	Client           ClientInfo `json:"client" binding:"required"`
	PreferredContact string     `json:"preferred_contact" binding:"max=255"`
	Comment          string     `json:"comment" binding:"max=511"`
}

// UpdateRequest 运营修改预订，nil 字段保持不变。不会重新计算账单
type UpdateRequest struct {
	CheckIn            *time.Time `json:"check_in"`
	CheckOut           *time.Time `json:"check_out"`
	TotalPersonsAmount *int       `json:"total_persons_amount"`
	PreferredContact   *string    `json:"preferred_contact" binding:"omitempty,max=255"`
	Comment            *string    `json:"comment" binding:"omitempty,max=511"`
}

// HouseBrief 房屋摘要
type HouseBrief struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BillInfo 账单
type BillInfo struct {
	Total                     int64            `json:"total"`
	ChronologicalPositions    models.Positions `json:"chronological_positions"`
	NonChronologicalPositions models.Positions `json:"non_chronological_positions"`
	PromoCode                 string           `json:"promo_code,omitempty"`
	Paid                      bool             `json:"paid"`
	PaidAt                    *time.Time       `json:"paid_at,omitempty"`
}

// ReservationInfo 预订详情
type ReservationInfo struct {
	ID                 int64       `json:"id"`
	Slug               string      `json:"slug"`
	House              *HouseBrief `json:"house,omitempty"`
	Client             *ClientInfo `json:"client,omitempty"`
	CheckInAt          time.Time   `json:"check_in_at"`
	CheckOutAt         time.Time   `json:"check_out_at"`
	TotalPersonsAmount int         `json:"total_persons_amount"`
	PreferredContact   string      `json:"preferred_contact"`
	Comment            string      `json:"comment"`
	Cancelled          bool        `json:"cancelled"`
	Bill               *BillInfo   `json:"bill,omitempty"`
	LookupURL          string      `json:"lookup_url"`
	CreatedAt          time.Time   `json:"created_at"`
}

// TimeOptions 可选的入住或退房时刻
type TimeOptions struct {
	Default string   `json:"default"`
	Times   []string `json:"times"`
}

// Options 房屋预订选项
type Options struct {
	HouseID             int64       `json:"house_id"`
	BasePersonsAmount   int         `json:"base_persons_amount"`
	MaxPersonsAmount    int         `json:"max_persons_amount"`
	PricePerExtraPerson int64       `json:"price_per_extra_person"`
	CheckInTimes        TimeOptions `json:"check_in_times"`
	CheckOutTimes       TimeOptions `json:"check_out_times"`
}
