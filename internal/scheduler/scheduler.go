// Package scheduler 提供定时任务调度
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/logger"
)

// defaultTaskTimeout 单次任务执行超时
const defaultTaskTimeout = 5 * time.Minute

// Scheduler 定时任务调度器
type Scheduler struct {
	tasks   []*Task
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Task 定时任务
type Task struct {
	Name     string
	Interval time.Duration
	Handler  func(ctx context.Context) error
}

// NewScheduler 创建调度器
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		timeout: defaultTaskTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTask 添加任务，interval 不为正时忽略
func (s *Scheduler) AddTask(name string, interval time.Duration, handler func(ctx context.Context) error) {
	if interval <= 0 {
		logger.Warn("忽略间隔无效的定时任务", logger.String("task", name), logger.Duration("interval", interval))
		return
	}
	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Handler:  handler,
	})
}

// Tasks 已注册的任务
func (s *Scheduler) Tasks() []*Task {
	return s.tasks
}

// Start 启动调度器，每个任务立即执行一次后按间隔执行
func (s *Scheduler) Start() {
	logger.Info("定时任务启动", logger.Int("tasks", len(s.tasks)))

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(task)
	}
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Info("定时任务已停止")
}

func (s *Scheduler) runTask(task *Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.executeTask(task)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeTask(task)
		}
	}
}

func (s *Scheduler) executeTask(task *Task) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := task.Handler(ctx); err != nil {
		logger.Error("定时任务执行失败", logger.String("task", task.Name), logger.Err(err))
		return
	}
	logger.Debug("定时任务完成", logger.String("task", task.Name), logger.Latency(time.Since(start)))
}
