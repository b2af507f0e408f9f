// Package reservation 提供预订相关的 HTTP Handler
package reservation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/handler"
	reservationService "github.com/dumeirei/house-booking-backend/internal/service/reservation"
)

// Handler 预订处理器
type Handler struct {
	reservationService *reservationService.Service
}

// NewHandler 创建预订处理器
func NewHandler(reservationSvc *reservationService.Service) *Handler {
	return &Handler{reservationService: reservationSvc}
}

// AvailabilityResponse 可用性查询结果
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// CheckAvailability 查询房屋在指定时段是否可预订
// @Summary 查询房屋可用性
// @Tags 预订
// @Produce json
// @Param id path int true "房屋ID"
// @Param check_in query string true "入住时间 RFC3339"
// @Param check_out query string true "退房时间 RFC3339"
// @Success 200 {object} response.Response{data=AvailabilityResponse}
// @Router /api/v1/houses/{id}/availability [get]
func (h *Handler) CheckAvailability(c *gin.Context) {
	houseID, ok := handler.ParseID(c, "房屋")
	if !ok {
		return
	}
	checkIn, ok := handler.ParseRequiredQueryTime(c, "check_in")
	if !ok {
		return
	}
	checkOut, ok := handler.ParseRequiredQueryTime(c, "check_out")
	if !ok {
		return
	}

	free, err := h.reservationService.CheckAvailability(c.Request.Context(), houseID, checkIn, checkOut)
	handler.MustSucceed(c, err, AvailabilityResponse{Available: free})
}

// GetOptions 房屋人数限制与可选时刻
// @Summary 获取房屋预订选项
// @Tags 预订
// @Produce json
// @Param id path int true "房屋ID"
// @Success 200 {object} response.Response{data=reservationService.Options}
// @Router /api/v1/houses/{id}/options [get]
func (h *Handler) GetOptions(c *gin.Context) {
	houseID, ok := handler.ParseID(c, "房屋")
	if !ok {
		return
	}

	opts, err := h.reservationService.Options(c.Request.Context(), houseID)
	handler.MustSucceed(c, err, opts)
}

// Quote 计算报价
// @Summary 计算报价
// @Tags 预订
// @Accept json
// @Produce json
// @Param request body reservationService.QuoteRequest true "请求参数"
// @Success 200 {object} response.Response{data=pricing.Receipt}
// @Router /api/v1/receipts [post]
func (h *Handler) Quote(c *gin.Context) {
	var req reservationService.QuoteRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	receipt, err := h.reservationService.Quote(c.Request.Context(), &req)
	handler.MustSucceed(c, err, receipt)
}

// Commit 创建预订
// @Summary 创建预订
// @Tags 预订
// @Accept json
// @Produce json
// @Param request body reservationService.CommitRequest true "请求参数"
// @Success 200 {object} response.Response{data=reservationService.ReservationInfo}
// @Failure 409 {object} response.Response
// @Router /api/v1/reservations [post]
func (h *Handler) Commit(c *gin.Context) {
	var req reservationService.CommitRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	info, err := h.reservationService.Commit(c.Request.Context(), &req)
	handler.MustSucceedWithMessage(c, err, "预订成功", info)
}

// GetBySlug 按短码查询预订
// @Summary 查询预订
// @Tags 预订
// @Produce json
// @Param slug path string true "预订短码"
// @Success 200 {object} response.Response{data=reservationService.ReservationInfo}
// @Router /api/v1/reservations/{slug} [get]
func (h *Handler) GetBySlug(c *gin.Context) {
	info, err := h.reservationService.GetBySlug(c.Request.Context(), c.Param("slug"))
	handler.MustSucceed(c, err, info)
}

// GetQRCode 预订查询地址的二维码
// @Summary 预订二维码
// @Tags 预订
// @Produce png
// @Param slug path string true "预订短码"
// @Success 200 {file} binary
// @Router /api/v1/reservations/{slug}/qrcode [get]
func (h *Handler) GetQRCode(c *gin.Context) {
	png, err := h.reservationService.QRCode(c.Request.Context(), c.Param("slug"))
	if handler.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}
