package pricing

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/metrics"
	"github.com/dumeirei/house-booking-backend/internal/models"
)

// EventLister 读取与日期区间相交的价格活动
type EventLister interface {
	ListOverlapping(ctx context.Context, from, to time.Time) ([]models.Event, error)
}

// PriceForDay 计算房屋某一天的价格。
// 节假日乘以房屋节假日系数，再乘以所有覆盖该日的活动系数，最后按百位四舍六入五成双取整
func PriceForDay(house *models.House, day time.Time, events []models.Event) int64 {
	price := float64(house.BasePrice)
	if IsHoliday(day) {
		price *= house.HolidaysMultiplier
	}

	var multipliers []float64
	for i := range events {
		if events[i].Covers(day) {
			multipliers = append(multipliers, events[i].Multiplier)
		}
	}
	// 固定相乘顺序，结果与活动排列无关
	sort.Float64s(multipliers)
	for _, m := range multipliers {
		price *= m
	}
	return RoundHundreds(price)
}

// RoundHundreds 按百位取整，恰好一半时取偶数
func RoundHundreds(v float64) int64 {
	return int64(math.RoundToEven(v/100)) * 100
}

// roundHundredsInt 整数版本的百位取整，恰好一半时取偶数
func roundHundredsInt(v int64) int64 {
	return roundRatioHundreds(v, 1)
}

// roundRatioHundreds 将 num/den 精确按百位取整，恰好一半时取偶数。den 须为正
func roundRatioHundreds(num, den int64) int64 {
	unit := den * 100
	q, r := num/unit, num%unit
	if r < 0 {
		q, r = q-1, r+unit
	}
	if 2*r > unit || (2*r == unit && q%2 != 0) {
		q++
	}
	return q * 100
}

// DayKey 日价格缓存键
type DayKey struct {
	HouseID int64
	Date    time.Time
}

// PriceCache 日价格旁路缓存
type PriceCache interface {
	GetMany(ctx context.Context, keys []DayKey) (prices map[DayKey]int64, version int64, err error)
	SetMany(ctx context.Context, version int64, prices map[DayKey]int64) error
	Invalidate(ctx context.Context) error
}

// DayPricer 按房屋和日期计算价格，可选使用缓存
type DayPricer struct {
	events EventLister
	cache  PriceCache
}

// NewDayPricer 创建日价格计算器，cache 可为 nil
func NewDayPricer(events EventLister, cache PriceCache) *DayPricer {
	return &DayPricer{events: events, cache: cache}
}

// PriceTable 一批房屋在日期区间内的价格
type PriceTable struct {
	events []models.Event
	prices map[DayKey]int64
}

// Price 查表；区间外的日期用已加载的活动即时计算
func (t *PriceTable) Price(house *models.House, day time.Time) int64 {
	if p, ok := t.prices[DayKey{HouseID: house.ID, Date: day}]; ok {
		return p
	}
	return PriceForDay(house, day, t.events)
}

// PriceForDay 单个房屋单日价格
func (p *DayPricer) PriceForDay(ctx context.Context, house *models.House, day time.Time) (int64, error) {
	table, err := p.Table(ctx, []*models.House{house}, day, day)
	if err != nil {
		return 0, err
	}
	return table.Price(house, day), nil
}

// Table 计算 [from, to] 内每个房屋每天的价格。活动只查询一次，缓存命中的部分不再计算
func (p *DayPricer) Table(ctx context.Context, houses []*models.House, from, to time.Time) (*PriceTable, error) {
	events, err := p.events.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, err
	}

	table := &PriceTable{events: events, prices: make(map[DayKey]int64)}
	if to.Before(from) || len(houses) == 0 {
		return table, nil
	}

	var keys []DayKey
	for _, h := range houses {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			keys = append(keys, DayKey{HouseID: h.ID, Date: d})
		}
	}

	var version int64
	cacheReadable := p.cache != nil
	if p.cache != nil {
		cached, gen, err := p.cache.GetMany(ctx, keys)
		if err != nil {
			cacheReadable = false
			logger.WithContext(ctx).Warn("读取日价格缓存失败", logger.Err(err))
		}
		version = gen
		for k, v := range cached {
			table.prices[k] = v
		}
		metrics.DayPriceCacheHits.Add(float64(len(cached)))
	}

	houseByID := make(map[int64]*models.House, len(houses))
	for _, h := range houses {
		houseByID[h.ID] = h
	}

	missing := make(map[DayKey]int64)
	for _, k := range keys {
		if _, ok := table.prices[k]; ok {
			continue
		}
		price := PriceForDay(houseByID[k.HouseID], k.Date, events)
		table.prices[k] = price
		missing[k] = price
	}

	if p.cache != nil && len(missing) > 0 {
		metrics.DayPriceCacheMisses.Add(float64(len(missing)))
	}
	if cacheReadable && len(missing) > 0 {
		if err := p.cache.SetMany(ctx, version, missing); err != nil {
			logger.WithContext(ctx).Warn("写入日价格缓存失败", logger.Err(err))
		}
	}
	return table, nil
}

// Invalidate 使日价格缓存失效；活动或房屋价格变更后调用
func (p *DayPricer) Invalidate(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Invalidate(ctx)
}
