// Package reservation 预订服务单元测试
package reservation

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/common/database"
	appErrors "github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/utils"
	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	"github.com/dumeirei/house-booking-backend/internal/service/availability"
	"github.com/dumeirei/house-booking-backend/internal/service/notification"
	"github.com/dumeirei/house-booking-backend/internal/service/pricing"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	messages map[string][]*notification.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, topic string, msg *notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.messages == nil {
		d.messages = make(map[string][]*notification.Message)
	}
	d.messages[topic] = append(d.messages[topic], msg)
	return nil
}

func (d *recordingDispatcher) count(topic string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages[topic])
}

type fixture struct {
	db         *gorm.DB
	service    *Service
	dispatcher *recordingDispatcher
	house      *models.House
}

var today = time.Date(2030, 6, 15, 10, 0, 0, 0, time.UTC)

// setup 房屋工作日 5000、周末 7500，基础 2 人，最多 4 人，每位加人 2000
func setup(t *testing.T) *fixture {
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

	house := &models.House{Name: "Лесной", BasePrice: 5000, HolidaysMultiplier: 1.5, BasePersonsAmount: 2,
		MaxPersonsAmount: 4, PricePerExtraPerson: 2000, Active: true}
	require.NoError(t, db.Create(house).Error)

	clock := func() time.Time { return today }
	promos := pricing.NewPromoValidator(repository.NewBillRepository(db), tariff.Location, clock)
	dayPricer := pricing.NewDayPricer(repository.NewEventRepository(db), nil)
	dispatcher := &recordingDispatcher{}

	service := NewService(Deps{
		DB:       db,
		Tariff:   tariff,
		Checker:  availability.NewChecker(tariff, repository.NewReservationRepository(db)),
		Receipts: pricing.NewReceiptBuilder(tariff, dayPricer, promos),
		Promos:   promos,
		Notifier: notification.NewNotifier(dispatcher, config.NotificationConfig{
			CreatedTopic:  "created",
			ReminderTopic: "reminder",
			Timeout:       1,
		}),
		PublicURL: "https://booking.example.com/",
	}).WithClock(clock)

	return &fixture{db: db, service: service, dispatcher: dispatcher, house: house}
}

func at(m time.Month, d, hour int) time.Time {
	return time.Date(2030, m, d, hour, 0, 0, 0, time.UTC)
}

func (f *fixture) request(in, out time.Time) *CommitRequest {
	return &CommitRequest{
		QuoteRequest: QuoteRequest{
			HouseID:            f.house.ID,
			CheckIn:            in,
			CheckOut:           out,
			TotalPersonsAmount: 2,
		},
		Client: ClientInfo{
			Email:     "ivan@example.com",
			FirstName: "Иван",
			LastName:  "Petrov",
		},
		PreferredContact: "telegram",
	}
}

func (f *fixture) createPromo(t *testing.T, code string, maxUse int64) *models.PromoCode {
	promo := &models.PromoCode{Code: code, Enabled: true, DiscountType: models.DiscountTypeFixed,
		DiscountValue: 1000, MaxUseTimes: maxUse}
	require.NoError(t, f.db.Create(promo).Error)
	return promo
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestService_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("创建预订与账单", func(t *testing.T) {
		f := setup(t)
		info, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 10, 12)))
		require.NoError(t, err)

		assert.True(t, utils.IsSlug(info.Slug))
		assert.Equal(t, "https://booking.example.com/api/v1/reservations/"+info.Slug, info.LookupURL)
		require.NotNil(t, info.House)
		assert.Equal(t, "Лесной", info.House.Name)
		require.NotNil(t, info.Bill)
		assert.Equal(t, int64(5000), info.Bill.Total)
		assert.Len(t, info.Bill.ChronologicalPositions, 1)
		assert.False(t, info.Bill.Paid)

		client, err := repository.NewClientRepository(f.db).GetByEmail(ctx, "ivan@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Иван", client.FirstName)

		stored, err := repository.NewReservationRepository(f.db).GetBySlug(ctx, info.Slug)
		require.NoError(t, err)
		assert.Equal(t, client.ID, *stored.ClientID)
		assert.Equal(t, int64(5000), stored.Bill.Total)

		assert.Eventually(t, func() bool { return f.dispatcher.count("created") == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("时段重叠返回冲突", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 11, 12)))
		require.NoError(t, err)

		req := f.request(at(7, 10, 16), at(7, 12, 12))
		req.Client.Email = "petr@example.com"
		_, err = f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrReservationConflict))
		assert.Equal(t, int64(1), f.countRows(t, &models.Reservation{}))
		assert.Equal(t, int64(1), f.countRows(t, &models.Bill{}))
		assert.Equal(t, int64(1), f.countRows(t, &models.Client{}), "失败的预订不登记客户")

		req = f.request(at(7, 10, 16), at(7, 12, 12))
		req.Client.FirstName = "Пётр"
		_, err = f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrReservationConflict))
		client, err := repository.NewClientRepository(f.db).GetByEmail(ctx, "ivan@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Иван", client.FirstName, "失败的预订不修改客户姓名")
	})

	t.Run("前一预订退房当天可以入住", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 10, 15)))
		require.NoError(t, err)

		_, err = f.service.Commit(ctx, f.request(at(7, 10, 16), at(7, 11, 12)))
		assert.NoError(t, err)
	})

	t.Run("取消后时段可再次预订", func(t *testing.T) {
		f := setup(t)
		first, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 11, 12)))
		require.NoError(t, err)
		require.NoError(t, f.service.Cancel(ctx, first.ID))

		_, err = f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 11, 12)))
		assert.NoError(t, err)
	})

	t.Run("优惠码使用次数上限", func(t *testing.T) {
		f := setup(t)
		f.createPromo(t, "ONCE", 1)

		req := f.request(at(7, 9, 16), at(7, 10, 12))
		req.PromoCode = "ONCE"
		info, err := f.service.Commit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(4000), info.Bill.Total)
		assert.Equal(t, "ONCE", info.Bill.PromoCode)

		req = f.request(at(7, 16, 16), at(7, 17, 12))
		req.PromoCode = "ONCE"
		_, err = f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrPromoCodeInvalid))
		assert.Equal(t, int64(1), f.countRows(t, &models.Reservation{}))
	})

	t.Run("未知优惠码", func(t *testing.T) {
		f := setup(t)
		req := f.request(at(7, 9, 16), at(7, 10, 12))
		req.PromoCode = "NOPE"
		_, err := f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrPromoCodeInvalid))
	})

	t.Run("他人专属优惠码回滚客户登记", func(t *testing.T) {
		f := setup(t)
		owner := &models.Client{Email: "owner@example.com", FirstName: "Анна", LastName: "Smirnova"}
		require.NoError(t, f.db.Create(owner).Error)
		promo := f.createPromo(t, "ANNA", 5)
		require.NoError(t, f.db.Model(promo).Update("client_id", owner.ID).Error)

		req := f.request(at(7, 9, 16), at(7, 10, 12))
		req.PromoCode = "ANNA"
		_, err := f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrPromoCodeInvalid))
		assert.Equal(t, int64(0), f.countRows(t, &models.Reservation{}))
		assert.Equal(t, int64(1), f.countRows(t, &models.Client{}))
	})

	t.Run("入住日期不晚于今天", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.Commit(ctx, f.request(at(6, 15, 16), at(6, 16, 12)))
		assert.True(t, appErrors.Is(err, appErrors.ErrIncorrectDatetimes))
		assert.Equal(t, int64(0), f.countRows(t, &models.Client{}))
	})

	t.Run("客户信息不合法", func(t *testing.T) {
		f := setup(t)
		req := f.request(at(7, 9, 16), at(7, 10, 12))
		req.Client.Email = "not-an-email"
		_, err := f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidClient))

		req = f.request(at(7, 9, 16), at(7, 10, 12))
		req.Client.LastName = "   "
		_, err = f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidClient))
	})

	t.Run("房屋停用或不存在", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.db.Model(f.house).Update("active", false).Error)
		_, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 10, 12)))
		assert.True(t, appErrors.Is(err, appErrors.ErrHouseInactive))

		req := f.request(at(7, 9, 16), at(7, 10, 12))
		req.HouseID = 999
		_, err = f.service.Commit(ctx, req)
		assert.True(t, appErrors.Is(err, appErrors.ErrHouseNotFound))
	})

	t.Run("账单写入失败时整体回滚", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_bill", func(tx *gorm.DB) {
			if tx.Statement.Table == "bills" {
				_ = tx.AddError(stderrors.New("disk full"))
			}
		}))

		_, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 10, 12)))
		assert.True(t, appErrors.Is(err, appErrors.ErrDatabaseError))
		assert.Equal(t, int64(0), f.countRows(t, &models.Reservation{}))
		assert.Equal(t, int64(0), f.countRows(t, &models.Bill{}))
		assert.Equal(t, 0, f.dispatcher.count("created"))
	})
}

func TestService_Quote(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.createPromo(t, "ONCE", 1)

	req := &QuoteRequest{HouseID: f.house.ID, CheckIn: at(7, 9, 13), CheckOut: at(7, 10, 12), TotalPersonsAmount: 3}
	receipt, err := f.service.Quote(ctx, req)
	require.NoError(t, err)
	// 提前入住 1500 + 一晚 5000 + 加人 2000
	assert.Equal(t, int64(8500), receipt.Total)

	req.PromoCode = "ONCE"
	receipt, err = f.service.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), receipt.Total)

	// 报价不占用优惠码
	_, err = f.service.Quote(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), f.countRows(t, &models.Bill{}))

	req.TotalPersonsAmount = 5
	_, err = f.service.Quote(ctx, req)
	assert.True(t, appErrors.Is(err, appErrors.ErrIncorrectOccupancy))
}

func TestService_CheckAvailabilityAndOptions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 11, 12)))
	require.NoError(t, err)

	free, err := f.service.CheckAvailability(ctx, f.house.ID, at(7, 10, 16), at(7, 12, 12))
	require.NoError(t, err)
	assert.False(t, free)

	free, err = f.service.CheckAvailability(ctx, f.house.ID, at(7, 11, 16), at(7, 12, 12))
	require.NoError(t, err)
	assert.True(t, free)

	_, err = f.service.CheckAvailability(ctx, f.house.ID, at(7, 12, 12), at(7, 11, 16))
	assert.True(t, appErrors.Is(err, appErrors.ErrIncorrectDatetimes))

	opts, err := f.service.Options(ctx, f.house.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, opts.BasePersonsAmount)
	assert.Equal(t, 4, opts.MaxPersonsAmount)
	assert.Equal(t, int64(2000), opts.PricePerExtraPerson)
	assert.Equal(t, TimeOptions{Default: "16:00", Times: []string{"13:00", "16:00"}}, opts.CheckInTimes)
	assert.Equal(t, TimeOptions{Default: "12:00", Times: []string{"12:00", "15:00"}}, opts.CheckOutTimes)
}

func TestService_Lookup(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	created, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 10, 12)))
	require.NoError(t, err)

	t.Run("按短码查询", func(t *testing.T) {
		info, err := f.service.GetBySlug(ctx, created.Slug)
		require.NoError(t, err)
		assert.Equal(t, created.ID, info.ID)
		assert.Equal(t, "ivan@example.com", info.Client.Email)
		assert.Equal(t, int64(5000), info.Bill.Total)
	})

	t.Run("短码不存在", func(t *testing.T) {
		_, err := f.service.GetBySlug(ctx, "ZZZZZZZZZZZZ")
		assert.True(t, appErrors.Is(err, appErrors.ErrReservationNotFound))
	})

	t.Run("二维码", func(t *testing.T) {
		png, err := f.service.QRCode(ctx, created.Slug)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), png[:4])

		_, err = f.service.QRCode(ctx, "ZZZZZZZZZZZZ")
		assert.True(t, appErrors.Is(err, appErrors.ErrReservationNotFound))
	})

	t.Run("分页列表", func(t *testing.T) {
		list, total, err := f.service.List(ctx, utils.Pagination{Page: 1, PageSize: 10}, repository.ReservationFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, created.Slug, list[0].Slug)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	first, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 10, 12)))
	require.NoError(t, err)
	second, err := f.service.Commit(ctx, f.request(at(7, 16, 16), at(7, 17, 12)))
	require.NoError(t, err)

	t.Run("延长到自身原有时段不冲突，账单不变", func(t *testing.T) {
		out := at(7, 11, 12)
		comment := "поздний приезд"
		info, err := f.service.Update(ctx, first.ID, &UpdateRequest{CheckOut: &out, Comment: &comment})
		require.NoError(t, err)
		assert.True(t, info.CheckOutAt.Equal(out))
		assert.Equal(t, comment, info.Comment)
		assert.Equal(t, int64(5000), info.Bill.Total)
	})

	t.Run("与其他预订重叠", func(t *testing.T) {
		out := at(7, 17, 12)
		_, err := f.service.Update(ctx, first.ID, &UpdateRequest{CheckOut: &out})
		assert.True(t, appErrors.Is(err, appErrors.ErrReservationConflict))
	})

	t.Run("人数超限", func(t *testing.T) {
		persons := 9
		_, err := f.service.Update(ctx, second.ID, &UpdateRequest{TotalPersonsAmount: &persons})
		assert.True(t, appErrors.Is(err, appErrors.ErrIncorrectOccupancy))
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := f.service.Update(ctx, 999, &UpdateRequest{})
		assert.True(t, appErrors.Is(err, appErrors.ErrReservationNotFound))
	})
}

func TestService_RecomputeBillAndMarkPaid(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	created, err := f.service.Commit(ctx, f.request(at(7, 9, 16), at(7, 10, 12)))
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&models.Event{
		Name:       "Фестиваль",
		StartDate:  datatypes.Date(at(7, 10, 0)),
		EndDate:    datatypes.Date(at(7, 10, 0)),
		Multiplier: 2,
	}).Error)

	info, err := f.service.RecomputeBill(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), info.Bill.Total)

	bill, err := repository.NewBillRepository(f.db).GetByReservationID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), bill.Total)

	info, err = f.service.MarkPaid(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, info.Bill.Paid)
	require.NotNil(t, info.Bill.PaidAt)

	_, err = f.service.MarkPaid(ctx, created.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrBillPaid))

	_, err = f.service.RecomputeBill(ctx, created.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrBillPaid))
}

func TestService_RecomputeBillKeepsPromoCode(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.createPromo(t, "ONCE", 1)

	req := f.request(at(7, 9, 16), at(7, 10, 12))
	req.PromoCode = "ONCE"
	created, err := f.service.Commit(ctx, req)
	require.NoError(t, err)

	// 账单自身不计入使用次数
	info, err := f.service.RecomputeBill(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), info.Bill.Total)
	assert.Equal(t, "ONCE", info.Bill.PromoCode)
}

func TestService_RemindUnpaid(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	soon, err := f.service.Commit(ctx, f.request(at(6, 20, 16), at(6, 21, 12)))
	require.NoError(t, err)
	_, err = f.service.Commit(ctx, f.request(at(8, 20, 16), at(8, 21, 12)))
	require.NoError(t, err)

	sent, err := f.service.RemindUnpaid(ctx, 7*24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, f.dispatcher.count("reminder"))

	sent, err = f.service.RemindUnpaid(ctx, 7*24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "同一预订只提醒一次")
	assert.Equal(t, 1, f.dispatcher.count("reminder"))

	stored, err := repository.NewReservationRepository(f.db).GetByID(ctx, soon.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RemindedAt)

	_, err = f.service.MarkPaid(ctx, soon.ID)
	require.NoError(t, err)
	sent, err = f.service.RemindUnpaid(ctx, 7*24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}
