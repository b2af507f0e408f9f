package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHouse_ExtraPersons(t *testing.T) {
	h := &House{BasePersonsAmount: 2, MaxPersonsAmount: 4, PricePerExtraPerson: 2000}

	assert.Equal(t, 0, h.ExtraPersons(1))
	assert.Equal(t, 0, h.ExtraPersons(2))
	assert.Equal(t, 2, h.ExtraPersons(4))
	assert.Equal(t, int64(4000), h.ExtraPersonsPrice(4))
}

func TestEvent_Covers(t *testing.T) {
	e := &Event{
		StartDate: datatypes.Date(day(2026, 12, 30)),
		EndDate:   datatypes.Date(day(2027, 1, 2)),
	}

	assert.False(t, e.Covers(day(2026, 12, 29)))
	assert.True(t, e.Covers(day(2026, 12, 30)))
	assert.True(t, e.Covers(day(2027, 1, 2)))
	assert.False(t, e.Covers(day(2027, 1, 3)))

	// 非零点时刻按日期比较
	assert.True(t, e.Covers(time.Date(2027, 1, 2, 23, 59, 0, 0, time.UTC)))
}

func TestReservation_Overlaps(t *testing.T) {
	r := &Reservation{
		CheckInAt:  time.Date(2026, 7, 10, 16, 0, 0, 0, time.UTC),
		CheckOutAt: time.Date(2026, 7, 12, 12, 0, 0, 0, time.UTC),
	}

	t.Run("首尾相接不算重叠", func(t *testing.T) {
		assert.False(t, r.Overlaps(r.CheckOutAt, r.CheckOutAt.Add(24*time.Hour)))
		assert.False(t, r.Overlaps(r.CheckInAt.Add(-24*time.Hour), r.CheckInAt))
	})

	t.Run("部分重叠", func(t *testing.T) {
		assert.True(t, r.Overlaps(r.CheckInAt.Add(time.Hour), r.CheckOutAt.Add(time.Hour)))
	})

	t.Run("完全包含", func(t *testing.T) {
		assert.True(t, r.Overlaps(r.CheckInAt.Add(-time.Hour), r.CheckOutAt.Add(time.Hour)))
	})
}

func TestPositions_JSONShape(t *testing.T) {
	ps := Positions{
		EarlyCheckInPosition{Date: day(2026, 7, 10), Time: "13:00", Amount: 1500},
		NightPosition{StartDate: day(2026, 7, 10), EndDate: day(2026, 7, 11), Amount: 5000},
		LateCheckOutPosition{Date: day(2026, 7, 11), Time: "15:00", Amount: 1500},
	}

	data, err := json.Marshal(ps)
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)

	assert.Equal(t, "early_check_in", raw[0]["type"])
	assert.Equal(t, "Ранний въезд 10-07 в 13:00", raw[0]["description"])
	assert.Equal(t, "10-07-2026", raw[0]["date"])

	assert.Equal(t, "night", raw[1]["type"])
	assert.Equal(t, "Ночь с 10-07 на 11-07", raw[1]["description"])
	assert.Equal(t, "11-07-2026", raw[1]["end_date"])
	assert.Equal(t, float64(5000), raw[1]["price"])

	assert.Equal(t, "Поздний выезд 11-07 в 15:00", raw[2]["description"])
}

func TestPositions_ScanValue(t *testing.T) {
	original := Positions{
		ExtraPersonsPosition{Count: 1, PricePerPerson: 2000, Nights: 2, Summary: 4000},
		PromoCodePosition{Code: "SUMMER", Amount: -1000},
	}

	v, err := original.Value()
	require.NoError(t, err)

	var scanned Positions
	require.NoError(t, scanned.Scan([]byte(v.(string))))
	require.Len(t, scanned, 2)

	extra, ok := scanned[0].(ExtraPersonsPosition)
	require.True(t, ok)
	assert.Equal(t, int64(4000), extra.Summary)
	assert.Equal(t, int64(0), extra.Price())

	promo, ok := scanned[1].(PromoCodePosition)
	require.True(t, ok)
	assert.Equal(t, "SUMMER", promo.Code)
	assert.Equal(t, int64(-1000), scanned.Sum())
}

func TestPositions_ScanRejectsUnknownType(t *testing.T) {
	var ps Positions
	err := ps.Scan(`[{"type":"breakfast","price":100}]`)
	assert.Error(t, err)

	assert.Error(t, ps.Scan(42))
	assert.NoError(t, ps.Scan(nil))
	assert.Nil(t, ps)
}

func TestBill_PositionsSum(t *testing.T) {
	b := &Bill{
		ChronologicalPositions: Positions{
			NightPosition{StartDate: day(2026, 7, 10), EndDate: day(2026, 7, 11), Amount: 7500},
		},
		NonChronologicalPositions: Positions{
			ExtraPersonsPosition{Count: 1, PricePerPerson: 2000, Nights: 1, Summary: 2000},
			PromoCodePosition{Code: "X", Amount: -500},
		},
	}
	assert.Equal(t, int64(7000), b.PositionsSum())
}
