package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// 账单明细中的日期与时刻格式
const (
	PositionDateLayout  = "02-01-2006"
	PositionShortLayout = "02-01"
)

// Bill 预订账单，与预订一一对应
type Bill struct {
	ID                        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID             int64      `gorm:"uniqueIndex;not null" json:"reservation_id"`
	Total                     int64      `gorm:"not null" json:"total"`
	ChronologicalPositions    Positions  `gorm:"type:jsonb" json:"chronological_positions"`
	NonChronologicalPositions Positions  `gorm:"type:jsonb" json:"non_chronological_positions"`
	PromoCodeID               *int64     `gorm:"index" json:"promo_code_id,omitempty"`
	Paid                      bool       `gorm:"not null;default:false" json:"paid"`
	PaidAt                    *time.Time `json:"paid_at,omitempty"`
	CreatedAt                 time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	PromoCode *PromoCode `gorm:"foreignKey:PromoCodeID;constraint:OnDelete:SET NULL" json:"promo_code,omitempty"`
}

// TableName 表名
func (Bill) TableName() string {
	return "bills"
}

// PositionsSum 两类明细的金额合计
func (b *Bill) PositionsSum() int64 {
	return b.ChronologicalPositions.Sum() + b.NonChronologicalPositions.Sum()
}

// PositionType 账单明细类型
type PositionType string

const (
	PositionTypeNight        PositionType = "night"
	PositionTypeEarlyCheckIn PositionType = "early_check_in"
	PositionTypeLateCheckOut PositionType = "late_check_out"
	PositionTypeExtraPersons PositionType = "extra_persons"
	PositionTypePromoCode    PositionType = "promo_code"
)

// Position 账单明细。实现仅限本包中的五种类型
type Position interface {
	Type() PositionType
	// Price 计入账单总额的金额
	Price() int64
	Description() string
	record() positionRecord
}

// NightPosition 一晚房费，按"夜晚归属于次日"计日期
type NightPosition struct {
	StartDate time.Time
	EndDate   time.Time
	Amount    int64
}

func (p NightPosition) Type() PositionType { return PositionTypeNight }
func (p NightPosition) Price() int64       { return p.Amount }

func (p NightPosition) Description() string {
	return fmt.Sprintf("Ночь с %s на %s", p.StartDate.Format(PositionShortLayout), p.EndDate.Format(PositionShortLayout))
}

func (p NightPosition) record() positionRecord {
	return positionRecord{
		StartDate: p.StartDate.Format(PositionDateLayout),
		EndDate:   p.EndDate.Format(PositionDateLayout),
	}
}

// EarlyCheckInPosition 提前入住附加费
type EarlyCheckInPosition struct {
	Date   time.Time
	Time   string
	Amount int64
}

func (p EarlyCheckInPosition) Type() PositionType { return PositionTypeEarlyCheckIn }
func (p EarlyCheckInPosition) Price() int64       { return p.Amount }

func (p EarlyCheckInPosition) Description() string {
	return fmt.Sprintf("Ранний въезд %s в %s", p.Date.Format(PositionShortLayout), p.Time)
}

func (p EarlyCheckInPosition) record() positionRecord {
	return positionRecord{Date: p.Date.Format(PositionDateLayout), Time: p.Time}
}

// LateCheckOutPosition 延迟退房附加费
type LateCheckOutPosition struct {
	Date   time.Time
	Time   string
	Amount int64
}

func (p LateCheckOutPosition) Type() PositionType { return PositionTypeLateCheckOut }
func (p LateCheckOutPosition) Price() int64       { return p.Amount }

func (p LateCheckOutPosition) Description() string {
	return fmt.Sprintf("Поздний выезд %s в %s", p.Date.Format(PositionShortLayout), p.Time)
}

func (p LateCheckOutPosition) record() positionRecord {
	return positionRecord{Date: p.Date.Format(PositionDateLayout), Time: p.Time}
}

// ExtraPersonsPosition 加人费用汇总。
// 加人费已计入每晚房费，此项仅供展示，不计入总额
type ExtraPersonsPosition struct {
	Count          int
	PricePerPerson int64
	Nights         int
	Summary        int64
}

func (p ExtraPersonsPosition) Type() PositionType { return PositionTypeExtraPersons }
func (p ExtraPersonsPosition) Price() int64       { return 0 }

func (p ExtraPersonsPosition) Description() string {
	return fmt.Sprintf("Дополнительные гости: %d", p.Count)
}

func (p ExtraPersonsPosition) record() positionRecord {
	return positionRecord{
		Count:          p.Count,
		PricePerPerson: p.PricePerPerson,
		Nights:         p.Nights,
		Summary:        p.Summary,
	}
}

// PromoCodePosition 优惠码折扣，金额通常为负
type PromoCodePosition struct {
	Code   string
	Amount int64
}

func (p PromoCodePosition) Type() PositionType { return PositionTypePromoCode }
func (p PromoCodePosition) Price() int64       { return p.Amount }

func (p PromoCodePosition) Description() string {
	return "Промокод " + p.Code
}

func (p PromoCodePosition) record() positionRecord {
	return positionRecord{Code: p.Code}
}

// positionRecord 明细的 JSON 存储形式
type positionRecord struct {
	Type           PositionType `json:"type"`
	Description    string       `json:"description"`
	Price          int64        `json:"price"`
	StartDate      string       `json:"start_date,omitempty"`
	EndDate        string       `json:"end_date,omitempty"`
	Date           string       `json:"date,omitempty"`
	Time           string       `json:"time,omitempty"`
	Count          int          `json:"count,omitempty"`
	PricePerPerson int64        `json:"price_per_person,omitempty"`
	Nights         int          `json:"nights,omitempty"`
	Summary        int64        `json:"summary,omitempty"`
	Code           string       `json:"code,omitempty"`
}

func (r positionRecord) position() (Position, error) {
	parse := func(s string) (time.Time, error) {
		return time.Parse(PositionDateLayout, s)
	}

	switch r.Type {
	case PositionTypeNight:
		start, err := parse(r.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := parse(r.EndDate)
		if err != nil {
			return nil, err
		}
		return NightPosition{StartDate: start, EndDate: end, Amount: r.Price}, nil
	case PositionTypeEarlyCheckIn:
		date, err := parse(r.Date)
		if err != nil {
			return nil, err
		}
		return EarlyCheckInPosition{Date: date, Time: r.Time, Amount: r.Price}, nil
	case PositionTypeLateCheckOut:
		date, err := parse(r.Date)
		if err != nil {
			return nil, err
		}
		return LateCheckOutPosition{Date: date, Time: r.Time, Amount: r.Price}, nil
	case PositionTypeExtraPersons:
		return ExtraPersonsPosition{
			Count:          r.Count,
			PricePerPerson: r.PricePerPerson,
			Nights:         r.Nights,
			Summary:        r.Summary,
		}, nil
	case PositionTypePromoCode:
		return PromoCodePosition{Code: r.Code, Amount: r.Price}, nil
	}
	return nil, fmt.Errorf("unknown position type %q", r.Type)
}

// Positions 有序明细列表，以 JSON 数组存储
type Positions []Position

// Sum 明细金额合计
func (ps Positions) Sum() int64 {
	var total int64
	for _, p := range ps {
		total += p.Price()
	}
	return total
}

// MarshalJSON 实现 json.Marshaler
func (ps Positions) MarshalJSON() ([]byte, error) {
	records := make([]positionRecord, 0, len(ps))
	for _, p := range ps {
		r := p.record()
		r.Type = p.Type()
		r.Description = p.Description()
		r.Price = p.Price()
		records = append(records, r)
	}
	return json.Marshal(records)
}

// UnmarshalJSON 实现 json.Unmarshaler
func (ps *Positions) UnmarshalJSON(data []byte) error {
	var records []positionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	result := make(Positions, 0, len(records))
	for _, r := range records {
		p, err := r.position()
		if err != nil {
			return err
		}
		result = append(result, p)
	}
	*ps = result
	return nil
}

// Value 实现 driver.Valuer 接口
func (ps Positions) Value() (driver.Value, error) {
	if ps == nil {
		return "[]", nil
	}
	b, err := ps.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (ps *Positions) Scan(value interface{}) error {
	if value == nil {
		*ps = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return ps.UnmarshalJSON(data)
}
