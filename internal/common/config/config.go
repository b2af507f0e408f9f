// Package config 提供应用配置管理功能
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Notification NotificationConfig `mapstructure:"notification"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Pricing      PricingConfig      `mapstructure:"pricing"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Name            string `mapstructure:"name"`
	Mode            string `mapstructure:"mode"`
	Port            int    `mapstructure:"port"`
	PublicURL       string `mapstructure:"public_url"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogMode         bool   `mapstructure:"log_mode"`
	SlowThreshold   int    `mapstructure:"slow_threshold"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Addr 返回 Redis 地址
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	AccessTokenExpire int    `mapstructure:"access_token_expire"`
	Issuer            string `mapstructure:"issuer"`
}

// AccessTokenDuration 返回访问令牌有效期
func (j *JWTConfig) AccessTokenDuration() time.Duration {
	return time.Duration(j.AccessTokenExpire) * time.Hour
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	ClientID     string   `mapstructure:"client_id"`
	RequiredAcks string   `mapstructure:"required_acks"`
	Retries      int      `mapstructure:"retries"`
	Timeout      int      `mapstructure:"timeout"`
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	CreatedTopic  string `mapstructure:"created_topic"`
	ReminderTopic string `mapstructure:"reminder_topic"`
	ManagerEmail  string `mapstructure:"manager_email"`
	Timeout       int    `mapstructure:"timeout"`
}

// TimeoutDuration 返回单次通知发送超时
func (n *NotificationConfig) TimeoutDuration() time.Duration {
	return time.Duration(n.Timeout) * time.Second
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Limit   int  `mapstructure:"limit"`
	Window  int  `mapstructure:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	ReminderInterval int  `mapstructure:"reminder_interval"` // 分钟
	ReminderWindow   int  `mapstructure:"reminder_window"`   // 小时
}

// CacheConfig 缓存配置
type CacheConfig struct {
	DayPriceTTL int `mapstructure:"day_price_ttl"` // 秒
}

// DayPriceTTLDuration 返回日价格缓存有效期
func (c *CacheConfig) DayPriceTTLDuration() time.Duration {
	return time.Duration(c.DayPriceTTL) * time.Second
}

// PricingConfig 计价配置
type PricingConfig struct {
	Timezone              string              `mapstructure:"timezone"`
	MinHouseBasePrice     int64               `mapstructure:"min_house_base_price"`
	MinHolidaysMultiplier float64             `mapstructure:"min_holidays_multiplier"`
	MinBillTotal          int64               `mapstructure:"min_bill_total"`
	CheckIn               TimeTableConfig     `mapstructure:"check_in"`
	CheckOut              TimeTableConfig     `mapstructure:"check_out"`
	HouseDefaults         HouseDefaultsConfig `mapstructure:"house_defaults"`
}

// TimeTableConfig 入住/退房时刻表
type TimeTableConfig struct {
	Default  string             `mapstructure:"default"`
	Earliest string             `mapstructure:"earliest"`
	Latest   string             `mapstructure:"latest"`
	Times    []TimeOptionConfig `mapstructure:"times"`
}

// TimeOptionConfig 可选时刻及附加费比例
type TimeOptionConfig struct {
	Time      string  `mapstructure:"time"`
	Surcharge float64 `mapstructure:"surcharge"`
}

// HouseDefaultsConfig 新建房屋的默认值
type HouseDefaultsConfig struct {
	BasePrice           int64   `mapstructure:"base_price"`
	HolidaysMultiplier  float64 `mapstructure:"holidays_multiplier"`
	BasePersonsAmount   int     `mapstructure:"base_persons_amount"`
	MaxPersonsAmount    int     `mapstructure:"max_persons_amount"`
	PricePerExtraPerson int64   `mapstructure:"price_per_extra_person"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./configs")
			v.AddConfigPath(".")
		}

		// 环境变量支持
		v.SetEnvPrefix("HOUSE_BOOKING")
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		setDefaults(v)

		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认值
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		globalConfig = &Config{}
		if err = v.Unmarshal(globalConfig); err != nil {
			return
		}
	})

	return globalConfig, err
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		globalConfig = Default()
	}
	return globalConfig
}

// Default 返回仅包含默认值的配置
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.name", "house-booking-backend")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.public_url", "http://localhost:8000")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.shutdown_timeout", 10)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "house_booking")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Europe/Moscow")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_mode", true)
	v.SetDefault("database.slow_threshold", 200)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.min_idle_conns", 10)
	v.SetDefault("redis.dial_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	// JWT defaults
	v.SetDefault("jwt.secret", "your-super-secret-key-change-in-production")
	v.SetDefault("jwt.access_token_expire", 12)
	v.SetDefault("jwt.issuer", "house-booking")

	// Logger defaults
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "./logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.caller", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "house-booking-backend")
	v.SetDefault("tracing.sample_rate", 1.0)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "house-booking-backend")
	v.SetDefault("kafka.required_acks", "all")
	v.SetDefault("kafka.retries", 3)
	v.SetDefault("kafka.timeout", 5)

	// Notification defaults
	v.SetDefault("notification.created_topic", "reservation.created")
	v.SetDefault("notification.reminder_topic", "reservation.reminder")
	v.SetDefault("notification.manager_email", "manager@example.com")
	v.SetDefault("notification.timeout", 10)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 20)
	v.SetDefault("ratelimit.window", 60)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 86400)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reminder_interval", 60)
	v.SetDefault("scheduler.reminder_window", 48)

	// Cache defaults
	v.SetDefault("cache.day_price_ttl", 600)

	// Pricing defaults
	v.SetDefault("pricing.timezone", "Europe/Moscow")
	v.SetDefault("pricing.min_house_base_price", 5000)
	v.SetDefault("pricing.min_holidays_multiplier", 1.0)
	v.SetDefault("pricing.min_bill_total", 100)
	v.SetDefault("pricing.check_in.default", "16:00")
	v.SetDefault("pricing.check_in.earliest", "13:00")
	v.SetDefault("pricing.check_in.latest", "16:00")
	v.SetDefault("pricing.check_in.times", []map[string]interface{}{
		{"time": "16:00", "surcharge": 0.0},
		{"time": "13:00", "surcharge": 0.3},
	})
	v.SetDefault("pricing.check_out.default", "12:00")
	v.SetDefault("pricing.check_out.earliest", "12:00")
	v.SetDefault("pricing.check_out.latest", "15:00")
	v.SetDefault("pricing.check_out.times", []map[string]interface{}{
		{"time": "12:00", "surcharge": 0.0},
		{"time": "15:00", "surcharge": 0.3},
	})
	v.SetDefault("pricing.house_defaults.base_price", 10000)
	v.SetDefault("pricing.house_defaults.holidays_multiplier", 2.0)
	v.SetDefault("pricing.house_defaults.base_persons_amount", 2)
	v.SetDefault("pricing.house_defaults.max_persons_amount", 3)
	v.SetDefault("pricing.house_defaults.price_per_extra_person", 2000)
}

// IsDebug 是否为调试模式
func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}

// IsRelease 是否为发布模式
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}
