// Package pricing 实现房屋日价格、优惠码与账单明细的计算
package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
)

// ClockTime 一天中的时刻（精确到分钟）
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime 解析 HH:MM
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String 以 HH:MM 格式输出
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Before 是否早于另一时刻
func (c ClockTime) Before(o ClockTime) bool {
	return c.minutes() < o.minutes()
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// clockOf 取本地时刻；秒或纳秒不为零时返回 false
func clockOf(t time.Time) (ClockTime, bool) {
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return ClockTime{}, false
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, true
}

// TimeTable 入住或退房可选时刻及其附加费比例
type TimeTable struct {
	Default    ClockTime
	Earliest   ClockTime
	Latest     ClockTime
	surcharges map[ClockTime]float64
}

// Surcharge 返回时刻对应的附加费比例；时刻不可选时 ok 为 false
func (tt TimeTable) Surcharge(c ClockTime) (fraction float64, ok bool) {
	fraction, ok = tt.surcharges[c]
	return
}

// Times 按时间先后返回全部可选时刻
func (tt TimeTable) Times() []ClockTime {
	times := make([]ClockTime, 0, len(tt.surcharges))
	for c := range tt.surcharges {
		times = append(times, c)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

// TimesString 可选时刻列表，用于错误消息
func (tt TimeTable) TimesString() string {
	times := tt.Times()
	parts := make([]string, len(times))
	for i, c := range times {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func newTimeTable(cfg config.TimeTableConfig) (TimeTable, error) {
	var tt TimeTable
	var err error

	if tt.Default, err = ParseClockTime(cfg.Default); err != nil {
		return tt, err
	}
	if tt.Earliest, err = ParseClockTime(cfg.Earliest); err != nil {
		return tt, err
	}
	if tt.Latest, err = ParseClockTime(cfg.Latest); err != nil {
		return tt, err
	}
	if tt.Latest.Before(tt.Earliest) {
		return tt, fmt.Errorf("earliest %s is after latest %s", tt.Earliest, tt.Latest)
	}

	tt.surcharges = make(map[ClockTime]float64, len(cfg.Times))
	for _, opt := range cfg.Times {
		c, err := ParseClockTime(opt.Time)
		if err != nil {
			return tt, err
		}
		if opt.Surcharge < 0 || opt.Surcharge > 1 {
			return tt, fmt.Errorf("surcharge for %s must be within [0,1], got %v", c, opt.Surcharge)
		}
		if c.Before(tt.Earliest) || tt.Latest.Before(c) {
			return tt, fmt.Errorf("time %s is outside [%s, %s]", c, tt.Earliest, tt.Latest)
		}
		tt.surcharges[c] = opt.Surcharge
	}
	if _, ok := tt.surcharges[tt.Default]; !ok {
		return tt, fmt.Errorf("default time %s is not in the allowed times", tt.Default)
	}
	return tt, nil
}

// Tariff 计价规则，创建后只读
type Tariff struct {
	Location              *time.Location
	MinHouseBasePrice     int64
	MinHolidaysMultiplier float64
	MinBillTotal          int64
	CheckIn               TimeTable
	CheckOut              TimeTable
}

// NewTariff 从配置构建计价规则
func NewTariff(cfg *config.PricingConfig) (*Tariff, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	checkIn, err := newTimeTable(cfg.CheckIn)
	if err != nil {
		return nil, fmt.Errorf("check_in: %w", err)
	}
	checkOut, err := newTimeTable(cfg.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("check_out: %w", err)
	}

	return &Tariff{
		Location:              loc,
		MinHouseBasePrice:     cfg.MinHouseBasePrice,
		MinHolidaysMultiplier: cfg.MinHolidaysMultiplier,
		MinBillTotal:          cfg.MinBillTotal,
		CheckIn:               checkIn,
		CheckOut:              checkOut,
	}, nil
}

// DateOf 返回时间点在计价时区下的日历日期（UTC 零点表示）
func (t *Tariff) DateOf(instant time.Time) time.Time {
	y, m, d := instant.In(t.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// At 组合日历日期与时刻，得到计价时区下的时间点
func (t *Tariff) At(date time.Time, c ClockTime) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location)
}

// Local 转换到计价时区
func (t *Tariff) Local(instant time.Time) time.Time {
	return instant.In(t.Location)
}

// PeriodBounds 入住日最晚入住时刻到退房日最早退房时刻
func (t *Tariff) PeriodBounds(checkInDate, checkOutDate time.Time) (from, to time.Time) {
	return t.At(checkInDate, t.CheckIn.Latest), t.At(checkOutDate, t.CheckOut.Earliest)
}

// NightBounds 归属于 day 的一晚：前一日最晚入住到当日最早退房
func (t *Tariff) NightBounds(day time.Time) (from, to time.Time) {
	return t.PeriodBounds(day.AddDate(0, 0, -1), day)
}
