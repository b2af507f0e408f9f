package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/handler"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	reservationService "github.com/dumeirei/house-booking-backend/internal/service/reservation"
)

// ReservationHandler 预订管理处理器
type ReservationHandler struct {
	reservationService *reservationService.Service
}

// NewReservationHandler 创建预订管理处理器
func NewReservationHandler(reservationSvc *reservationService.Service) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationSvc}
}

// ListReservations 预订列表
// @Summary 预订列表
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param house_id query int false "房屋ID"
// @Param cancelled query bool false "是否已取消"
// @Param paid query bool false "是否已支付"
// @Param from query string false "入住时间下限 YYYY-MM-DD"
// @Param to query string false "入住时间上限 YYYY-MM-DD"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/admin/reservations [get]
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	var filter repository.ReservationFilter

	houseID, ok := handler.ParseQueryID(c, "house_id", "房屋")
	if !ok {
		return
	}
	if houseID != nil {
		filter.HouseID = *houseID
	}
	if filter.Cancelled, ok = handler.ParseQueryBool(c, "cancelled"); !ok {
		return
	}
	if filter.Paid, ok = handler.ParseQueryBool(c, "paid"); !ok {
		return
	}
	if filter.From, ok = handler.ParseQueryDate(c, "from", time.DateOnly); !ok {
		return
	}
	if filter.To, ok = handler.ParseQueryDate(c, "to", time.DateOnly); !ok {
		return
	}
	p := handler.BindPagination(c)

	list, total, err := h.reservationService.List(c.Request.Context(), p, filter)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// GetReservation 预订详情
// @Summary 预订详情
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=reservationService.ReservationInfo}
// @Router /api/v1/admin/reservations/{id} [get]
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}

	info, err := h.reservationService.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, info)
}

// UpdateReservation 修改预订日期、人数、联系方式或备注，账单不变
// @Summary 修改预订
// @Tags 预订管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body reservationService.UpdateRequest true "请求参数"
// @Success 200 {object} response.Response{data=reservationService.ReservationInfo}
// @Router /api/v1/admin/reservations/{id} [put]
func (h *ReservationHandler) UpdateReservation(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}

	var req reservationService.UpdateRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	info, err := h.reservationService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, info)
}

// CancelReservation 取消预订
// @Summary 取消预订
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/reservations/{id}/cancel [post]
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}

	if handler.HandleError(c, h.reservationService.Cancel(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "预订已取消", nil)
}

// RecomputeBill 按当前价格重新计算账单
// @Summary 重新计算账单
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=reservationService.ReservationInfo}
// @Failure 409 {object} response.Response
// @Router /api/v1/admin/reservations/{id}/recompute-bill [post]
func (h *ReservationHandler) RecomputeBill(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}

	info, err := h.reservationService.RecomputeBill(c.Request.Context(), id)
	handler.MustSucceed(c, err, info)
}

// MarkPaid 标记账单已支付
// @Summary 标记已支付
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=reservationService.ReservationInfo}
// @Router /api/v1/admin/reservations/{id}/pay [post]
func (h *ReservationHandler) MarkPaid(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}

	info, err := h.reservationService.MarkPaid(c.Request.Context(), id)
	handler.MustSucceed(c, err, info)
}
