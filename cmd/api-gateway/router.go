package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/common/cache"
	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/common/jwt"
	"github.com/dumeirei/house-booking-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/house-booking-backend/internal/common/middleware"
	"github.com/dumeirei/house-booking-backend/internal/common/qrcode"
	adminHandler "github.com/dumeirei/house-booking-backend/internal/handler/admin"
	calendarHandler "github.com/dumeirei/house-booking-backend/internal/handler/calendar"
	reservationHandler "github.com/dumeirei/house-booking-backend/internal/handler/reservation"
	"github.com/dumeirei/house-booking-backend/internal/middleware"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	adminService "github.com/dumeirei/house-booking-backend/internal/service/admin"
	"github.com/dumeirei/house-booking-backend/internal/service/availability"
	calendarService "github.com/dumeirei/house-booking-backend/internal/service/calendar"
	"github.com/dumeirei/house-booking-backend/internal/service/notification"
	"github.com/dumeirei/house-booking-backend/internal/service/pricing"
	reservationService "github.com/dumeirei/house-booking-backend/internal/service/reservation"
)

// maxRequestBody 请求体上限
const maxRequestBody = 1 << 20

// application 组装好的服务
type application struct {
	reservations *reservationService.Service
	calendar     *calendarService.Service
	houses       *adminService.HouseAdminService
	events       *adminService.EventAdminService
	promoCodes   *adminService.PromoCodeAdminService
}

// newApplication 按配置组装计价、可用性、预订与运营服务
func newApplication(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, dispatcher notification.Dispatcher) (*application, error) {
	tariff, err := pricing.NewTariff(&cfg.Pricing)
	if err != nil {
		return nil, err
	}

	houseRepo := repository.NewHouseRepository(db)
	eventRepo := repository.NewEventRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	billRepo := repository.NewBillRepository(db)

	priceCache := pricing.NewRedisPriceCache(cache.NewStore(redisClient), cfg.Cache.DayPriceTTLDuration())
	dayPricer := pricing.NewDayPricer(eventRepo, priceCache)
	checker := availability.NewChecker(tariff, reservationRepo)
	promos := pricing.NewPromoValidator(billRepo, tariff.Location, time.Now)

	return &application{
		reservations: reservationService.NewService(reservationService.Deps{
			DB:        db,
			Tariff:    tariff,
			Checker:   checker,
			Receipts:  pricing.NewReceiptBuilder(tariff, dayPricer, promos),
			Promos:    promos,
			Notifier:  notification.NewNotifier(dispatcher, cfg.Notification),
			QRCode:    qrcode.NewGenerator(),
			PublicURL: cfg.Server.PublicURL,
		}),
		calendar:   calendarService.NewService(tariff, houseRepo, checker, dayPricer),
		houses:     adminService.NewHouseAdminService(houseRepo, tariff, cfg.Pricing.HouseDefaults, dayPricer),
		events:     adminService.NewEventAdminService(eventRepo, dayPricer),
		promoCodes: adminService.NewPromoCodeAdminService(repository.NewPromoCodeRepository(db), repository.NewClientRepository(db)),
	}, nil
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	app *application,
	db *gorm.DB,
	redisClient *redis.Client,
) {
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:           cfg.JWT.Secret,
		AccessExpireTime: cfg.JWT.AccessTokenDuration(),
		Issuer:           cfg.JWT.Issuer,
	})

	reservationH := reservationHandler.NewHandler(app.reservations)
	calendarH := calendarHandler.NewHandler(app.calendar)
	houseH := adminHandler.NewHouseHandler(app.houses)
	eventH := adminHandler.NewEventHandler(app.events)
	promoH := adminHandler.NewPromoCodeHandler(app.promoCodes)
	adminReservationH := adminHandler.NewReservationHandler(app.reservations)

	// 全局中间件
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.RequestSizeLimiter(maxRequestBody))
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.AccessLog(&middleware.LoggingConfig{SkipPaths: []string{"/health", "/ready", cfg.Metrics.Path}}))
	if cfg.Tracing.Enabled {
		r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			SkipPaths:   []string{"/health", "/ready", cfg.Metrics.Path},
		}))
	}
	if cfg.Metrics.Enabled {
		r.Use(metrics.Middleware(cfg.Metrics.Path))
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// 健康检查
	r.GET("/health", healthHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// 公开接口
		v1.GET("/houses/:id/availability", reservationH.CheckAvailability)
		v1.GET("/houses/:id/options", reservationH.GetOptions)
		v1.POST("/receipts", reservationH.Quote)
		v1.GET("/calendar", calendarH.GetCalendar)
		v1.GET("/reservations/:slug", reservationH.GetBySlug)
		v1.GET("/reservations/:slug/qrcode", reservationH.GetQRCode)

		commit := []gin.HandlerFunc{}
		if cfg.RateLimit.Enabled {
			commit = append(commit, middleware.IPRateLimit(
				redisClient,
				cfg.RateLimit.Limit,
				time.Duration(cfg.RateLimit.Window)*time.Second,
			))
		}
		v1.POST("/reservations", append(commit, reservationH.Commit)...)

		// 运营接口
		opLog := commonMiddleware.NewOperationLogger(middleware.GetOperatorID)
		admin := v1.Group("/admin", middleware.AdminAuth(jwtManager), opLog.Log())
		write := middleware.RequireRole(jwt.RoleManager)
		{
			admin.GET("/houses", houseH.ListHouses)
			admin.GET("/houses/:id", houseH.GetHouse)
			admin.POST("/houses", write, houseH.CreateHouse)
			admin.PUT("/houses/:id", write, houseH.UpdateHouse)
			admin.DELETE("/houses/:id", write, houseH.DeactivateHouse)

			admin.GET("/events", eventH.ListEvents)
			admin.GET("/events/:id", eventH.GetEvent)
			admin.POST("/events", write, eventH.CreateEvent)
			admin.PUT("/events/:id", write, eventH.UpdateEvent)
			admin.DELETE("/events/:id", write, eventH.DeleteEvent)

			admin.GET("/promo-codes", promoH.ListPromoCodes)
			admin.GET("/promo-codes/:id", promoH.GetPromoCode)
			admin.POST("/promo-codes", write, promoH.CreatePromoCode)
			admin.PUT("/promo-codes/:id", write, promoH.UpdatePromoCode)

			admin.GET("/reservations", adminReservationH.ListReservations)
			admin.GET("/reservations/:id", adminReservationH.GetReservation)
			admin.PUT("/reservations/:id", write, adminReservationH.UpdateReservation)
			admin.POST("/reservations/:id/cancel", write, adminReservationH.CancelReservation)
			admin.POST("/reservations/:id/recompute-bill", write, adminReservationH.RecomputeBill)
			admin.POST("/reservations/:id/pay", write, adminReservationH.MarkPaid)
		}
	}
}
