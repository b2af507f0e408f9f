// Package scheduler 定时任务单元测试
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/house-booking-backend/internal/common/config"
)

func TestScheduler_RunsTaskUntilStopped(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler()
	s.AddTask("count", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.AddTask("failing", 10*time.Millisecond, func(ctx context.Context) error {
		return errors.New("boom")
	})

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestScheduler_IgnoresInvalidInterval(t *testing.T) {
	s := NewScheduler()
	s.AddTask("never", 0, func(ctx context.Context) error { return nil })
	assert.Empty(t, s.Tasks())
}

type fakeReminder struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	sent   int
	err    error
}

func (f *fakeReminder) RemindUnpaid(_ context.Context, window time.Duration, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = window
	f.limit = limit
	return f.sent, f.err
}

func TestTaskHandler_RemindUnpaidReservations(t *testing.T) {
	cfg := &config.SchedulerConfig{Enabled: true, ReminderInterval: 60, ReminderWindow: 48}

	t.Run("按配置窗口提醒", func(t *testing.T) {
		reminder := &fakeReminder{sent: 2}
		h := NewTaskHandler(reminder, cfg)
		require.NoError(t, h.RemindUnpaidReservations(context.Background()))
		assert.Equal(t, 48*time.Hour, reminder.window)
		assert.Equal(t, reminderBatchSize, reminder.limit)
	})

	t.Run("错误向上返回", func(t *testing.T) {
		h := NewTaskHandler(&fakeReminder{err: errors.New("db down")}, cfg)
		assert.Error(t, h.RemindUnpaidReservations(context.Background()))
	})

	t.Run("注册任务", func(t *testing.T) {
		s := NewScheduler()
		NewTaskHandler(&fakeReminder{}, cfg).Register(s, cfg)
		require.Len(t, s.Tasks(), 1)
		assert.Equal(t, time.Hour, s.Tasks()[0].Interval)
	})
}
