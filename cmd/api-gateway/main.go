// Package main 是应用程序入口
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/house-booking-backend/internal/common/cache"
	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/common/database"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/tracing"
	"github.com/dumeirei/house-booking-backend/internal/scheduler"
	"github.com/dumeirei/house-booking-backend/internal/service/notification"
)

const version = "1.0.0"

// @title House Booking API
// @version 1.0
// @description 度假屋预订：报价、日历、预订与运营后台
// @BasePath /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("Starting House Booking Backend",
		zap.String("version", version),
		zap.String("env", cfg.Server.Mode),
	)

	// 链路追踪
	tracer, err := tracing.Init(&cfg.Tracing, version)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	// 数据库与迁移
	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("Redis connected successfully")

	// 通知派发：启用 Kafka 时写入消息队列，否则只记录日志
	dispatcher, closeDispatcher, err := notification.NewDispatcher(&cfg.Kafka)
	if err != nil {
		log.Fatal("Failed to init notification dispatcher", zap.Error(err))
	}

	app, err := newApplication(cfg, db, redisClient, dispatcher)
	if err != nil {
		log.Fatal("Failed to build services", zap.Error(err))
	}

	// 定时任务
	sched := scheduler.NewScheduler()
	if cfg.Scheduler.Enabled {
		scheduler.NewTaskHandler(app.reservations, &cfg.Scheduler).Register(sched, &cfg.Scheduler)
		sched.Start()
	}

	switch cfg.Server.Mode {
	case "production", "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	setupRouter(engine, cfg, app, db, redisClient)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	sched.Stop()
	if err := closeDispatcher(); err != nil {
		log.Error("Failed to close notification dispatcher", zap.Error(err))
	}
	if err := tracer.Shutdown(ctx); err != nil {
		log.Error("Failed to shutdown tracer", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close Redis", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}

	log.Info("Server exited")
}
