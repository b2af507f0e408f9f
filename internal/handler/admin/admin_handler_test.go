package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/common/database"
	"github.com/dumeirei/house-booking-backend/internal/common/jwt"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
	"github.com/dumeirei/house-booking-backend/internal/middleware"
	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	adminService "github.com/dumeirei/house-booking-backend/internal/service/admin"
	"github.com/dumeirei/house-booking-backend/internal/service/availability"
	"github.com/dumeirei/house-booking-backend/internal/service/pricing"
	reservationService "github.com/dumeirei/house-booking-backend/internal/service/reservation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

type testEnv struct {
	router       *gin.Engine
	reservations *reservationService.Service
	invalidator  *countingInvalidator
	house        *models.House
	manager      string
	viewer       string
}

func setupRouter(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := config.Default().Pricing
	cfg.Timezone = "UTC"
	tariff, err := pricing.NewTariff(&cfg)
	require.NoError(t, err)

	house := &models.House{Name: "Сосны", BasePrice: 5000, HolidaysMultiplier: 1.5, BasePersonsAmount: 2,
		MaxPersonsAmount: 4, PricePerExtraPerson: 2000, Active: true}
	require.NoError(t, db.Create(house).Error)

	clock := func() time.Time { return time.Date(2030, 6, 15, 10, 0, 0, 0, time.UTC) }
	promos := pricing.NewPromoValidator(repository.NewBillRepository(db), tariff.Location, clock)
	reservations := reservationService.NewService(reservationService.Deps{
		DB:       db,
		Tariff:   tariff,
		Checker:  availability.NewChecker(tariff, repository.NewReservationRepository(db)),
		Receipts: pricing.NewReceiptBuilder(tariff, pricing.NewDayPricer(repository.NewEventRepository(db), nil), promos),
		Promos:   promos,
	}).WithClock(clock)

	inv := &countingInvalidator{}
	houses := NewHouseHandler(adminService.NewHouseAdminService(repository.NewHouseRepository(db), tariff, cfg.HouseDefaults, inv))
	events := NewEventHandler(adminService.NewEventAdminService(repository.NewEventRepository(db), inv))
	promoCodes := NewPromoCodeHandler(adminService.NewPromoCodeAdminService(repository.NewPromoCodeRepository(db), repository.NewClientRepository(db)))
	reservationHandler := NewReservationHandler(reservations)

	jwtManager := jwt.NewManager(&jwt.Config{Secret: "test-secret", AccessExpireTime: time.Hour, Issuer: "test"})
	managerToken, _, err := jwtManager.IssueOperatorToken(1, jwt.RoleManager)
	require.NoError(t, err)
	viewerToken, _, err := jwtManager.IssueOperatorToken(2, jwt.RoleViewer)
	require.NoError(t, err)

	r := gin.New()
	g := r.Group("/api/v1/admin", middleware.AdminAuth(jwtManager))
	write := middleware.RequireRole(jwt.RoleManager)

	g.GET("/houses", houses.ListHouses)
	g.GET("/houses/:id", houses.GetHouse)
	g.POST("/houses", write, houses.CreateHouse)
	g.PUT("/houses/:id", write, houses.UpdateHouse)
	g.DELETE("/houses/:id", write, houses.DeactivateHouse)

	g.GET("/events", events.ListEvents)
	g.POST("/events", write, events.CreateEvent)
	g.DELETE("/events/:id", write, events.DeleteEvent)

	g.GET("/promo-codes", promoCodes.ListPromoCodes)
	g.POST("/promo-codes", write, promoCodes.CreatePromoCode)

	g.GET("/reservations", reservationHandler.ListReservations)
	g.GET("/reservations/:id", reservationHandler.GetReservation)
	g.PUT("/reservations/:id", write, reservationHandler.UpdateReservation)
	g.POST("/reservations/:id/cancel", write, reservationHandler.CancelReservation)
	g.POST("/reservations/:id/recompute-bill", write, reservationHandler.RecomputeBill)
	g.POST("/reservations/:id/pay", write, reservationHandler.MarkPaid)

	return &testEnv{
		router:       r,
		reservations: reservations,
		invalidator:  inv,
		house:        house,
		manager:      managerToken,
		viewer:       viewerToken,
	}
}

func (e *testEnv) do(token, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) response.Response {
	t.Helper()
	resp := response.Response{Data: data}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) commit(t *testing.T) *reservationService.ReservationInfo {
	info, err := e.reservations.Commit(context.Background(), &reservationService.CommitRequest{
		QuoteRequest: reservationService.QuoteRequest{
			HouseID:            e.house.ID,
			CheckIn:            time.Date(2030, 7, 1, 16, 0, 0, 0, time.UTC),
			CheckOut:           time.Date(2030, 7, 3, 12, 0, 0, 0, time.UTC),
			TotalPersonsAmount: 2,
		},
		Client: reservationService.ClientInfo{Email: "olga@example.com", FirstName: "Ольга", LastName: "Ivanova"},
	})
	require.NoError(t, err)
	return info
}

func TestAdminAuth(t *testing.T) {
	e := setupRouter(t)

	t.Run("未携带令牌", func(t *testing.T) {
		w := e.do("", http.MethodGet, "/api/v1/admin/houses", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("只读角色可以查询", func(t *testing.T) {
		w := e.do(e.viewer, http.MethodGet, "/api/v1/admin/houses", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("只读角色不能修改", func(t *testing.T) {
		w := e.do(e.viewer, http.MethodPost, "/api/v1/admin/houses", gin.H{"name": "Новый"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHouseHandler(t *testing.T) {
	e := setupRouter(t)

	w := e.do(e.manager, http.MethodPost, "/api/v1/admin/houses", gin.H{"name": "Новый", "base_price": 9000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var house models.House
	decode(t, w, &house)
	assert.Equal(t, int64(9000), house.BasePrice)
	assert.Equal(t, 1, e.invalidator.calls)

	t.Run("名称重复返回 409", func(t *testing.T) {
		w := e.do(e.manager, http.MethodPost, "/api/v1/admin/houses", gin.H{"name": "Новый"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("缺少名称返回 400", func(t *testing.T) {
		w := e.do(e.manager, http.MethodPost, "/api/v1/admin/houses", gin.H{"base_price": 9000})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("停用后不再出现在启用列表", func(t *testing.T) {
		w := e.do(e.manager, http.MethodDelete, fmt.Sprintf("/api/v1/admin/houses/%d", house.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = e.do(e.manager, http.MethodGet, "/api/v1/admin/houses?active=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page struct {
			Total int64 `json:"total"`
		}
		decode(t, w, &page)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("不存在的房屋返回 404", func(t *testing.T) {
		w := e.do(e.manager, http.MethodGet, "/api/v1/admin/houses/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEventAndPromoCodeHandlers(t *testing.T) {
	e := setupRouter(t)

	w := e.do(e.manager, http.MethodPost, "/api/v1/admin/events", gin.H{
		"name": "Новый год", "start_date": "2030-12-30", "end_date": "2031-01-02", "multiplier": 2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var event models.Event
	decode(t, w, &event)
	assert.Equal(t, 1, e.invalidator.calls)

	t.Run("结束日期早于开始日期", func(t *testing.T) {
		w := e.do(e.manager, http.MethodPost, "/api/v1/admin/events", gin.H{
			"name": "x", "start_date": "2030-12-30", "end_date": "2030-12-01", "multiplier": 2,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("删除活动", func(t *testing.T) {
		w := e.do(e.manager, http.MethodDelete, fmt.Sprintf("/api/v1/admin/events/%d", event.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, e.invalidator.calls)

		w = e.do(e.manager, http.MethodDelete, fmt.Sprintf("/api/v1/admin/events/%d", event.ID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("优惠码", func(t *testing.T) {
		body := gin.H{"code": "SUMMER", "enabled": true, "discount_type": "percentage", "discount_value": 10}
		w := e.do(e.manager, http.MethodPost, "/api/v1/admin/promo-codes", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = e.do(e.manager, http.MethodPost, "/api/v1/admin/promo-codes", body)
		assert.Equal(t, http.StatusConflict, w.Code)

		body["code"] = "WINTER"
		body["discount_type"] = "gift"
		w = e.do(e.manager, http.MethodPost, "/api/v1/admin/promo-codes", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = e.do(e.viewer, http.MethodGet, "/api/v1/admin/promo-codes?enabled=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page struct {
			Total int64 `json:"total"`
		}
		decode(t, w, &page)
		assert.Equal(t, int64(1), page.Total)
	})
}

func TestReservationHandler(t *testing.T) {
	e := setupRouter(t)
	info := e.commit(t)
	path := fmt.Sprintf("/api/v1/admin/reservations/%d", info.ID)

	t.Run("列表按房屋过滤", func(t *testing.T) {
		w := e.do(e.viewer, http.MethodGet, fmt.Sprintf("/api/v1/admin/reservations?house_id=%d&paid=false", e.house.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var page struct {
			Total int64 `json:"total"`
		}
		decode(t, w, &page)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("修改人数不改变账单", func(t *testing.T) {
		w := e.do(e.manager, http.MethodPut, path, gin.H{"total_persons_amount": 3})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got reservationService.ReservationInfo
		decode(t, w, &got)
		assert.Equal(t, 3, got.TotalPersonsAmount)
		assert.Equal(t, int64(10000), got.Bill.Total)
	})

	t.Run("重新计算账单", func(t *testing.T) {
		w := e.do(e.manager, http.MethodPost, path+"/recompute-bill", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got reservationService.ReservationInfo
		decode(t, w, &got)
		// 两晚加人各 2000
		assert.Equal(t, int64(14000), got.Bill.Total)
	})

	t.Run("支付后不可重新计算", func(t *testing.T) {
		w := e.do(e.manager, http.MethodPost, path+"/pay", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got reservationService.ReservationInfo
		decode(t, w, &got)
		assert.True(t, got.Bill.Paid)

		w = e.do(e.manager, http.MethodPost, path+"/recompute-bill", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		w = e.do(e.manager, http.MethodPost, path+"/pay", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("取消", func(t *testing.T) {
		w := e.do(e.viewer, http.MethodPost, path+"/cancel", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(e.manager, http.MethodPost, path+"/cancel", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = e.do(e.viewer, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got reservationService.ReservationInfo
		decode(t, w, &got)
		assert.True(t, got.Cancelled)
	})

	t.Run("非法ID", func(t *testing.T) {
		w := e.do(e.manager, http.MethodPost, "/api/v1/admin/reservations/abc/cancel", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
