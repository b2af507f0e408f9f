// Package database 数据库模块单元测试
package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/house-booking-backend/internal/models"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return testDB
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, getLogLevel(true))
	assert.Equal(t, gormlogger.Silent, getLogLevel(false))
}

func TestPaginate(t *testing.T) {
	testDB := openSQLite(t)

	type Item struct {
		ID int64
	}
	require.NoError(t, testDB.AutoMigrate(&Item{}))
	for i := 1; i <= 30; i++ {
		testDB.Create(&Item{ID: int64(i)})
	}

	tests := []struct {
		name         string
		page         int
		pageSize     int
		expectedLen  int
		expectedFrom int64
	}{
		{"第一页", 1, 10, 10, 1},
		{"第三页", 3, 10, 10, 21},
		{"超出范围", 4, 10, 0, 0},
		{"页码为零", 0, 10, 10, 1},
		{"页大小为零", 1, 0, 10, 1},
		{"页大小上限", 1, 500, 30, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []Item
			testDB.Scopes(Paginate(tt.page, tt.pageSize)).Order("id").Find(&results)
			assert.Len(t, results, tt.expectedLen)
			if tt.expectedLen > 0 {
				assert.Equal(t, tt.expectedFrom, results[0].ID)
			}
		})
	}
}

func TestOrderByCreatedDesc(t *testing.T) {
	testDB := openSQLite(t)

	type Record struct {
		ID        int64
		CreatedAt time.Time
	}
	require.NoError(t, testDB.AutoMigrate(&Record{}))

	now := time.Now()
	testDB.Create(&Record{ID: 1, CreatedAt: now.Add(-2 * time.Hour)})
	testDB.Create(&Record{ID: 2, CreatedAt: now})

	var results []Record
	testDB.Scopes(OrderByCreatedDesc).Find(&results)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].ID)
}

func TestMigrate_SQLite(t *testing.T) {
	testDB := openSQLite(t)

	require.NoError(t, Migrate(testDB))
	assert.False(t, IsPostgres(testDB))

	for _, table := range []string{"houses", "events", "clients", "promo_codes", "reservations", "bills"} {
		assert.True(t, testDB.Migrator().HasTable(table), table)
	}

	// 再次迁移保持幂等
	require.NoError(t, Migrate(testDB))
}

func TestAdvisoryLocks_NoopOnSQLite(t *testing.T) {
	testDB := openSQLite(t)
	err := testDB.Transaction(func(tx *gorm.DB) error {
		if err := LockHouse(tx, 1); err != nil {
			return err
		}
		return LockPromoCode(tx, 1)
	})
	assert.NoError(t, err)
}

func TestIsExclusionViolation(t *testing.T) {
	violation := &pgconn.PgError{Code: "23P01", ConstraintName: ReservationExclusionConstraint}
	assert.True(t, IsExclusionViolation(violation))
	assert.True(t, IsExclusionViolation(fmt.Errorf("insert: %w", violation)))

	assert.False(t, IsExclusionViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsExclusionViolation(errors.New("23P01")))
	assert.False(t, IsExclusionViolation(nil))
}

func TestGetDBAndClose(t *testing.T) {
	oldDB := db
	t.Cleanup(func() { db = oldDB })

	db = nil
	assert.NoError(t, Close())

	db = openSQLite(t)
	assert.NotNil(t, GetDB())
	assert.NoError(t, Close())
}

func TestMigrate_PositionsPersist(t *testing.T) {
	testDB := openSQLite(t)
	require.NoError(t, Migrate(testDB))

	house := &models.House{Name: "Лесной", BasePrice: 5000, HolidaysMultiplier: 1.5, BasePersonsAmount: 2, MaxPersonsAmount: 3, Active: true}
	require.NoError(t, testDB.Create(house).Error)

	res := &models.Reservation{
		Slug:               "ABCDEFGHIJKL",
		HouseID:            &house.ID,
		CheckInAt:          time.Date(2026, 7, 10, 16, 0, 0, 0, time.UTC),
		CheckOutAt:         time.Date(2026, 7, 11, 12, 0, 0, 0, time.UTC),
		TotalPersonsAmount: 2,
	}
	require.NoError(t, testDB.Create(res).Error)

	bill := &models.Bill{
		ReservationID: res.ID,
		Total:         5000,
		ChronologicalPositions: models.Positions{
			models.NightPosition{
				StartDate: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 7, 11, 0, 0, 0, 0, time.UTC),
				Amount:    5000,
			},
		},
	}
	require.NoError(t, testDB.Create(bill).Error)

	var loaded models.Bill
	require.NoError(t, testDB.First(&loaded, bill.ID).Error)
	require.Len(t, loaded.ChronologicalPositions, 1)
	assert.Equal(t, int64(5000), loaded.ChronologicalPositions.Sum())
	assert.Empty(t, loaded.NonChronologicalPositions)
}
