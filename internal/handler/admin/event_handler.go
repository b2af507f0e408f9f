package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/handler"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
	adminService "github.com/dumeirei/house-booking-backend/internal/service/admin"
)

// EventHandler 活动（价格系数时段）管理处理器
type EventHandler struct {
	eventService *adminService.EventAdminService
}

// NewEventHandler 创建活动管理处理器
func NewEventHandler(eventSvc *adminService.EventAdminService) *EventHandler {
	return &EventHandler{eventService: eventSvc}
}

// CreateEvent 创建活动
// @Summary 创建活动
// @Tags 活动管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body adminService.EventRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Event}
// @Router /api/v1/admin/events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req adminService.EventRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), &req)
	handler.MustSucceed(c, err, event)
}

// UpdateEvent 更新活动
// @Summary 更新活动
// @Tags 活动管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "活动ID"
// @Param request body adminService.EventRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Event}
// @Router /api/v1/admin/events/{id} [put]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := handler.ParseID(c, "活动")
	if !ok {
		return
	}

	var req adminService.EventRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, event)
}

// DeleteEvent 删除活动
// @Summary 删除活动
// @Tags 活动管理
// @Produce json
// @Security Bearer
// @Param id path int true "活动ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := handler.ParseID(c, "活动")
	if !ok {
		return
	}

	if handler.HandleError(c, h.eventService.DeleteEvent(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "活动已删除", nil)
}

// GetEvent 获取活动
// @Summary 获取活动
// @Tags 活动管理
// @Produce json
// @Security Bearer
// @Param id path int true "活动ID"
// @Success 200 {object} response.Response{data=models.Event}
// @Router /api/v1/admin/events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := handler.ParseID(c, "活动")
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), id)
	handler.MustSucceed(c, err, event)
}

// ListEvents 活动列表
// @Summary 活动列表
// @Tags 活动管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/admin/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	p := handler.BindPagination(c)
	events, total, err := h.eventService.ListEvents(c.Request.Context(), p)
	handler.MustSucceedPage(c, err, events, total, p.Page, p.PageSize)
}
