package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/models"
)

type staticEvents []models.Event

func (s staticEvents) ListOverlapping(_ context.Context, from, to time.Time) ([]models.Event, error) {
	var result []models.Event
	for _, e := range s {
		if !time.Time(e.StartDate).After(to) && !time.Time(e.EndDate).Before(from) {
			result = append(result, e)
		}
	}
	return result, nil
}

// billUsage 优惠码ID -> 引用它的账单ID
type billUsage map[int64][]int64

func (u billUsage) CountByPromoCode(_ context.Context, promoCodeID, excludeBillID int64) (int64, error) {
	var n int64
	for _, billID := range u[promoCodeID] {
		if billID != excludeBillID {
			n++
		}
	}
	return n, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func event(name string, start, end time.Time, multiplier float64) models.Event {
	return models.Event{
		Name:       name,
		StartDate:  datatypes.Date(start),
		EndDate:    datatypes.Date(end),
		Multiplier: multiplier,
	}
}

func testTariff(t *testing.T) *Tariff {
	t.Helper()
	cfg := config.Default().Pricing
	cfg.Timezone = "UTC"
	tariff, err := NewTariff(&cfg)
	require.NoError(t, err)
	return tariff
}

func testHouse() *models.House {
	return &models.House{
		ID:                  1,
		Name:                "Лесной",
		BasePrice:           5000,
		HolidaysMultiplier:  1.5,
		BasePersonsAmount:   2,
		MaxPersonsAmount:    4,
		PricePerExtraPerson: 2000,
		Active:              true,
	}
}
