package scheduler

import (
	"context"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
)

// reminderBatchSize 每轮最多提醒的预订数
const reminderBatchSize = 100

// Reminder 发送未支付提醒，返回成功数量
type Reminder interface {
	RemindUnpaid(ctx context.Context, window time.Duration, limit int) (int, error)
}

// TaskHandler 任务处理器
type TaskHandler struct {
	reminder Reminder
	window   time.Duration
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(reminder Reminder, cfg *config.SchedulerConfig) *TaskHandler {
	return &TaskHandler{
		reminder: reminder,
		window:   time.Duration(cfg.ReminderWindow) * time.Hour,
	}
}

// RemindUnpaidReservations 提醒入住临近且未支付的客户
func (h *TaskHandler) RemindUnpaidReservations(ctx context.Context) error {
	sent, err := h.reminder.RemindUnpaid(ctx, h.window, reminderBatchSize)
	if err != nil {
		return err
	}
	if sent > 0 {
		logger.Info("已发送未支付提醒", logger.Int("count", sent))
	}
	return nil
}

// Register 按配置注册全部任务
func (h *TaskHandler) Register(s *Scheduler, cfg *config.SchedulerConfig) {
	s.AddTask("remind_unpaid_reservations", time.Duration(cfg.ReminderInterval)*time.Minute, h.RemindUnpaidReservations)
}
