// Package notification 预订通知的异步派发
package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/metrics"
	"github.com/dumeirei/house-booking-backend/pkg/kafka"
)

// 消息类型
const (
	TypeReservationCreated  = "reservation.created"
	TypeReservationReminder = "reservation.reminder"
)

// 收件方
const (
	AudienceManager = "manager"
	AudienceClient  = "client"
)

// Message 通知内容，由下游消费者渲染为邮件
type Message struct {
	Type            string    `json:"type"`
	Audience        []string  `json:"audience"`
	ReservationSlug string    `json:"reservation_slug"`
	HouseName       string    `json:"house_name"`
	ClientEmail     string    `json:"client_email"`
	ClientName      string    `json:"client_name"`
	ManagerEmail    string    `json:"manager_email,omitempty"`
	CheckInAt       time.Time `json:"check_in_at"`
	CheckOutAt      time.Time `json:"check_out_at"`
	TotalPersons    int       `json:"total_persons_amount"`
	Total           int64     `json:"total"`
	Paid            bool      `json:"paid"`
	LookupURL       string    `json:"lookup_url"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Dispatcher 通知派发器
type Dispatcher interface {
	Dispatch(ctx context.Context, topic string, msg *Message) error
}

// Publisher 消息发布接口，由 kafka.Producer 实现
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error
}

// KafkaDispatcher 通过 Kafka 派发，按访问码分区
type KafkaDispatcher struct {
	publisher Publisher
}

// NewKafkaDispatcher 创建 Kafka 派发器
func NewKafkaDispatcher(publisher Publisher) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher}
}

// Dispatch 序列化并发布
func (d *KafkaDispatcher) Dispatch(ctx context.Context, topic string, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return d.publisher.Publish(ctx, topic, msg.ReservationSlug, payload, map[string]string{
		"type": msg.Type,
	})
}

// LogDispatcher 仅记录日志，未启用 Kafka 时使用
type LogDispatcher struct{}

// Dispatch 写一条日志
func (LogDispatcher) Dispatch(ctx context.Context, topic string, msg *Message) error {
	logger.WithContext(ctx).Info("通知未投递（未启用 Kafka）",
		logger.String("topic", topic),
		logger.ReservationSlug(msg.ReservationSlug),
		logger.Any("audience", msg.Audience),
	)
	return nil
}

// NewDispatcher 根据配置创建派发器；返回的 closer 在退出时调用
func NewDispatcher(cfg *config.KafkaConfig) (Dispatcher, func() error, error) {
	if !cfg.Enabled {
		return LogDispatcher{}, func() error { return nil }, nil
	}
	producer, err := kafka.NewProducer(&kafka.Options{
		Brokers:      cfg.Brokers,
		ClientID:     cfg.ClientID,
		RequiredAcks: cfg.RequiredAcks,
		Retries:      cfg.Retries,
		Timeout:      time.Duration(cfg.Timeout) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	return NewKafkaDispatcher(producer), producer.Close, nil
}

// Notifier 组装并派发预订通知
type Notifier struct {
	dispatcher Dispatcher
	cfg        config.NotificationConfig
	now        func() time.Time
}

// NewNotifier 创建通知器
func NewNotifier(dispatcher Dispatcher, cfg config.NotificationConfig) *Notifier {
	return &Notifier{dispatcher: dispatcher, cfg: cfg, now: time.Now}
}

// ReservationCreated 在独立 goroutine 中派发新预订通知，不等待结果，失败只记录日志。
// 返回的通道在派发结束后关闭
func (n *Notifier) ReservationCreated(ctx context.Context, msg *Message) <-chan struct{} {
	done := make(chan struct{})
	msg.Type = TypeReservationCreated
	msg.Audience = []string{AudienceManager, AudienceClient}
	msg.ManagerEmail = n.cfg.ManagerEmail
	msg.OccurredAt = n.now()

	// 与请求生命周期解耦，只保留请求 ID
	detached := logger.ContextWithRequestID(context.Background(), logger.RequestIDFromContext(ctx))
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(detached, n.timeout())
		defer cancel()
		_ = n.dispatch(ctx, n.cfg.CreatedTopic, msg)
	}()
	return done
}

// Reminder 同步派发未支付提醒
func (n *Notifier) Reminder(ctx context.Context, msg *Message) error {
	msg.Type = TypeReservationReminder
	msg.Audience = []string{AudienceClient}
	msg.OccurredAt = n.now()

	ctx, cancel := context.WithTimeout(ctx, n.timeout())
	defer cancel()
	return n.dispatch(ctx, n.cfg.ReminderTopic, msg)
}

func (n *Notifier) dispatch(ctx context.Context, topic string, msg *Message) error {
	if err := n.dispatcher.Dispatch(ctx, topic, msg); err != nil {
		metrics.NotificationsSent.WithLabelValues(topic, metrics.ResultError).Inc()
		logger.WithContext(ctx).Error("通知派发失败",
			logger.String("topic", topic),
			logger.ReservationSlug(msg.ReservationSlug),
			logger.Err(err),
		)
		return err
	}
	metrics.NotificationsSent.WithLabelValues(topic, metrics.ResultSuccess).Inc()
	return nil
}

func (n *Notifier) timeout() time.Duration {
	if d := n.cfg.TimeoutDuration(); d > 0 {
		return d
	}
	return 10 * time.Second
}
