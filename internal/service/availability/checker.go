// Package availability 判断房屋在给定时间段是否空闲
package availability

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	"github.com/dumeirei/house-booking-backend/internal/service/pricing"
)

// Checker 基于预订表查询的可用性检查，结果仅供预检，最终以数据库约束为准
type Checker struct {
	tariff          *pricing.Tariff
	reservationRepo *repository.ReservationRepository
}

// NewChecker 创建可用性检查器
func NewChecker(tariff *pricing.Tariff, reservationRepo *repository.ReservationRepository) *Checker {
	return &Checker{tariff: tariff, reservationRepo: reservationRepo}
}

// WithTx 返回在事务内查询的副本
func (c *Checker) WithTx(tx *gorm.DB) *Checker {
	return &Checker{tariff: c.tariff, reservationRepo: repository.NewReservationRepository(tx)}
}

// IsHouseFree 房屋在 [checkIn, checkOut) 内没有未取消的预订
func (c *Checker) IsHouseFree(ctx context.Context, houseID int64, checkIn, checkOut time.Time) (bool, error) {
	return c.IsHouseFreeExcluding(ctx, houseID, checkIn, checkOut, 0)
}

// IsHouseFreeExcluding 同 IsHouseFree，但忽略 excludeID 对应的预订（修改已有预订时使用）
func (c *Checker) IsHouseFreeExcluding(ctx context.Context, houseID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	exists, err := c.reservationRepo.ExistsOverlapping(ctx, houseID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// FilterAvailable 返回在入住日最晚入住时刻到退房日最早退房时刻之间空闲的房屋
func (c *Checker) FilterAvailable(ctx context.Context, houses []*models.House, checkInDate, checkOutDate time.Time) ([]*models.House, error) {
	from, to := c.tariff.PeriodBounds(checkInDate, checkOutDate)
	snapshot, err := c.Snapshot(ctx, houses, from, to)
	if err != nil {
		return nil, err
	}
	return snapshot.FilterAvailable(houses, checkInDate, checkOutDate), nil
}

// FilterAvailableForNight 返回归属于 day 的那一晚空闲的房屋
func (c *Checker) FilterAvailableForNight(ctx context.Context, houses []*models.House, day time.Time) ([]*models.House, error) {
	return c.FilterAvailable(ctx, houses, day.AddDate(0, 0, -1), day)
}

// Snapshot 一次性加载与 [from, to) 相交的预订，之后的判断在内存中完成
func (c *Checker) Snapshot(ctx context.Context, houses []*models.House, from, to time.Time) (*Snapshot, error) {
	ids := make([]int64, len(houses))
	for i, h := range houses {
		ids[i] = h.ID
	}
	reservations, err := c.reservationRepo.ListOverlapping(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{tariff: c.tariff, byHouse: make(map[int64][]models.Reservation)}
	for _, r := range reservations {
		if r.HouseID == nil || r.Cancelled {
			continue
		}
		s.byHouse[*r.HouseID] = append(s.byHouse[*r.HouseID], r)
	}
	return s, nil
}

// Snapshot 某一时刻的预订快照。只对加载区间内的查询给出正确结果
type Snapshot struct {
	tariff  *pricing.Tariff
	byHouse map[int64][]models.Reservation
}

// IsFree 房屋在 [from, to) 内是否空闲
func (s *Snapshot) IsFree(houseID int64, from, to time.Time) bool {
	for i := range s.byHouse[houseID] {
		if s.byHouse[houseID][i].Overlaps(from, to) {
			return false
		}
	}
	return true
}

// FilterAvailable 同 Checker.FilterAvailable
func (s *Snapshot) FilterAvailable(houses []*models.House, checkInDate, checkOutDate time.Time) []*models.House {
	from, to := s.tariff.PeriodBounds(checkInDate, checkOutDate)
	result := make([]*models.House, 0, len(houses))
	for _, h := range houses {
		if s.IsFree(h.ID, from, to) {
			result = append(result, h)
		}
	}
	return result
}

// FilterAvailableForNight 同 Checker.FilterAvailableForNight
func (s *Snapshot) FilterAvailableForNight(houses []*models.House, day time.Time) []*models.House {
	return s.FilterAvailable(houses, day.AddDate(0, 0, -1), day)
}
