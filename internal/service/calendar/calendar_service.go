// Package calendar 生成入住与退房日历
package calendar

import (
	"context"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/metrics"
	"github.com/dumeirei/house-booking-backend/internal/common/tracing"
	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	"github.com/dumeirei/house-booking-backend/internal/service/availability"
	"github.com/dumeirei/house-booking-backend/internal/service/pricing"
)

// Mode 日历模式
type Mode string

const (
	ModeCheckIn  Mode = "check_in"
	ModeCheckOut Mode = "check_out"
)

// 不可选日期的原因
const (
	ReasonPassedDay       = "passed day"
	ReasonBeforeCheckIn   = "check-out must be after check-in"
	ReasonNoHousesForStay = "no houses available for this check-in/out"
)

// DateLayout 日历键与入住日期参数的格式
const DateLayout = "02-01-2006"

// DayInfo 两种日历共有的字段
type DayInfo struct {
	Weekday   int    `json:"weekday"`
	IsHoliday bool   `json:"is_holiday"`
	Reason    string `json:"reason,omitempty"`
}

// CheckInDay 入住日历中的一天
type CheckInDay struct {
	DayInfo
	CheckInIsAvailable bool `json:"check_in_is_available"`
}

// CheckOutDay 退房日历中的一天，Price 为从入住到该日退房的最低总价
type CheckOutDay struct {
	DayInfo
	Price *int64 `json:"price"`
}

// Query 日历查询
type Query struct {
	HouseIDs     []int64
	Year         int
	Month        int
	Mode         Mode
	CheckInDate  *time.Time
	TotalPersons int
}

// Service 日历服务
type Service struct {
	tariff    *pricing.Tariff
	houseRepo *repository.HouseRepository
	checker   *availability.Checker
	prices    pricing.PriceTableSource
	now       func() time.Time
}

// NewService 创建日历服务
func NewService(
	tariff *pricing.Tariff,
	houseRepo *repository.HouseRepository,
	checker *availability.Checker,
	prices pricing.PriceTableSource,
) *Service {
	return &Service{
		tariff:    tariff,
		houseRepo: houseRepo,
		checker:   checker,
		prices:    prices,
		now:       time.Now,
	}
}

// WithClock 替换时钟
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// Render 校验查询并按模式生成日历，返回 map[string]CheckInDay 或 map[string]CheckOutDay
func (s *Service) Render(ctx context.Context, q *Query) (interface{}, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "calendar.Render", tracing.WithCalendar(string(q.Mode), q.Year, q.Month)...)
	defer span.End()

	today := s.tariff.DateOf(s.now())
	if err := s.validate(q, today); err != nil {
		return nil, err
	}

	minPersons := q.TotalPersons
	if minPersons < 1 {
		minPersons = 1
	}
	houses, err := s.houseRepo.ListActive(ctx, q.HouseIDs, minPersons)
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	span.SetAttributes(tracing.AttrHouseCount.Int(len(houses)))

	var result interface{}
	switch q.Mode {
	case ModeCheckIn:
		result, err = s.RenderCheckIn(ctx, houses, q.Year, time.Month(q.Month))
	default:
		result, err = s.RenderCheckOut(ctx, houses, q.TotalPersons, *q.CheckInDate, q.Year, time.Month(q.Month))
	}
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}

	metrics.ObserveCalendarRender(string(q.Mode), start)
	return result, nil
}

func (s *Service) validate(q *Query, today time.Time) error {
	if q.Month < 1 || q.Month > 12 {
		return errors.ErrInvalidCalendarQuery.WithMessage("月份应在 1 到 12 之间")
	}
	if q.Year < today.Year() {
		return errors.ErrInvalidCalendarQuery.WithMessagef("年份不能早于 %d", today.Year())
	}
	if q.TotalPersons < 0 {
		return errors.ErrInvalidCalendarQuery.WithMessage("入住人数不能为负数")
	}

	switch q.Mode {
	case ModeCheckIn:
	case ModeCheckOut:
		if q.CheckInDate == nil {
			return errors.ErrInvalidCalendarQuery.WithMessage("退房日历需要指定入住日期")
		}
		if !q.CheckInDate.After(today) {
			return errors.ErrInvalidCalendarQuery.WithMessage("入住日期必须晚于今天")
		}
	default:
		return errors.ErrInvalidCalendarQuery.WithMessagef("未知的日历模式: %s", q.Mode)
	}
	return nil
}

// RenderCheckIn 入住日历：今天及之前不可选，其余日期只要有一个房屋当晚空闲即可入住
func (s *Service) RenderCheckIn(ctx context.Context, houses []*models.House, year int, month time.Month) (map[string]CheckInDay, error) {
	first, last := monthRange(year, month)
	today := s.tariff.DateOf(s.now())

	from, to := s.tariff.PeriodBounds(first, last.AddDate(0, 0, 1))
	snapshot, err := s.checker.Snapshot(ctx, houses, from, to)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	days := make(map[string]CheckInDay, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := CheckInDay{DayInfo: dayInfo(d)}
		if !d.After(today) {
			day.Reason = ReasonPassedDay
		} else {
			day.CheckInIsAvailable = len(snapshot.FilterAvailableForNight(houses, d.AddDate(0, 0, 1))) > 0
		}
		days[d.Format(DateLayout)] = day
	}
	return days, nil
}

// RenderCheckOut 退房日历：对每个仍然连续空闲的房屋累加从入住次日到该日的每晚价格（含加人费），
// 报告其中最低值。房屋一旦某晚被占用即不再参与；入住日早于本月时先补算本月之前的部分
func (s *Service) RenderCheckOut(ctx context.Context, houses []*models.House, totalPersons int, checkInDate time.Time, year int, month time.Month) (map[string]CheckOutDay, error) {
	first, last := monthRange(year, month)
	days := make(map[string]CheckOutDay, last.Day())

	if !last.After(checkInDate) {
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			info := dayInfo(d)
			info.Reason = ReasonBeforeCheckIn
			days[d.Format(DateLayout)] = CheckOutDay{DayInfo: info}
		}
		return days, nil
	}

	from, to := s.tariff.PeriodBounds(checkInDate, last)
	snapshot, err := s.checker.Snapshot(ctx, houses, from, to)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	table, err := s.prices.Table(ctx, houses, checkInDate.AddDate(0, 0, 1), last)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	survivors := houses
	accumulated := make(map[int64]int64, len(houses))

	// 入住日早于本月：先筛出到月初仍连续空闲的房屋，累加月初之前的夜晚
	if first.After(checkInDate) {
		survivors = snapshot.FilterAvailable(survivors, checkInDate, first)
		for d := checkInDate.AddDate(0, 0, 1); d.Before(first); d = d.AddDate(0, 0, 1) {
			for _, h := range survivors {
				accumulated[h.ID] += table.Price(h, d) + h.ExtraPersonsPrice(totalPersons)
			}
		}
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := CheckOutDay{DayInfo: dayInfo(d)}
		switch {
		case !d.After(checkInDate):
			day.Reason = ReasonBeforeCheckIn
		default:
			survivors = snapshot.FilterAvailableForNight(survivors, d)
			if len(survivors) == 0 {
				day.Reason = ReasonNoHousesForStay
				break
			}
			var best int64 = -1
			for _, h := range survivors {
				accumulated[h.ID] += table.Price(h, d) + h.ExtraPersonsPrice(totalPersons)
				if best < 0 || accumulated[h.ID] < best {
					best = accumulated[h.ID]
				}
			}
			day.Price = &best
		}
		days[d.Format(DateLayout)] = day
	}
	return days, nil
}

func monthRange(year int, month time.Month) (first, last time.Time) {
	first = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

func dayInfo(d time.Time) DayInfo {
	return DayInfo{Weekday: pricing.WeekdayIndex(d), IsHoliday: pricing.IsHoliday(d)}
}
