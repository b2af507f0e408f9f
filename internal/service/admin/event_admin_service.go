package admin

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/utils"
	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
)

// EventAdminService 价格活动管理服务，每次变更都会使日价格缓存失效
type EventAdminService struct {
	eventRepo   *repository.EventRepository
	invalidator PriceInvalidator
}

// NewEventAdminService 创建活动管理服务
func NewEventAdminService(eventRepo *repository.EventRepository, invalidator PriceInvalidator) *EventAdminService {
	return &EventAdminService{eventRepo: eventRepo, invalidator: invalidator}
}

// EventRequest 创建或更新活动请求，日期格式 2006-01-02
type EventRequest struct {
	Name       string  `json:"name" binding:"required,max=100"`
	StartDate  string  `json:"start_date" binding:"required"`
	EndDate    string  `json:"end_date" binding:"required"`
	Multiplier float64 `json:"multiplier" binding:"required"`
}

// CreateEvent 创建活动
func (s *EventAdminService) CreateEvent(ctx context.Context, req *EventRequest) (*models.Event, error) {
	event := &models.Event{}
	if err := applyEventRequest(event, req); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	invalidatePrices(ctx, s.invalidator)
	return event, nil
}

// UpdateEvent 更新活动
func (s *EventAdminService) UpdateEvent(ctx context.Context, id int64, req *EventRequest) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyEventRequest(event, req); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	invalidatePrices(ctx, s.invalidator)
	return event, nil
}

// DeleteEvent 删除活动
func (s *EventAdminService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrEventNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	invalidatePrices(ctx, s.invalidator)
	return nil
}

// GetEvent 获取活动
func (s *EventAdminService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrEventNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return event, nil
}

// ListEvents 分页获取活动
func (s *EventAdminService) ListEvents(ctx context.Context, page utils.Pagination) ([]*models.Event, int64, error) {
	page.Normalize()
	events, total, err := s.eventRepo.List(ctx, page.GetOffset(), page.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return events, total, nil
}

func applyEventRequest(event *models.Event, req *EventRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errors.ErrInvalidEvent.WithMessage("活动名称不能为空")
	}
	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return errors.ErrInvalidEvent.WithMessage("开始日期格式应为 YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		return errors.ErrInvalidEvent.WithMessage("结束日期格式应为 YYYY-MM-DD")
	}
	if end.Before(start) {
		return errors.ErrInvalidEvent.WithMessage("结束日期不能早于开始日期")
	}
	if req.Multiplier < 1 {
		return errors.ErrInvalidEvent.WithMessage("倍率不能小于 1")
	}

	event.Name = name
	event.StartDate = datatypes.Date(start)
	event.EndDate = datatypes.Date(end)
	event.Multiplier = req.Multiplier
	return nil
}
