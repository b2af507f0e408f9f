package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/handler"
	adminService "github.com/dumeirei/house-booking-backend/internal/service/admin"
)

// PromoCodeHandler 优惠码管理处理器
type PromoCodeHandler struct {
	promoService *adminService.PromoCodeAdminService
}

// NewPromoCodeHandler 创建优惠码管理处理器
func NewPromoCodeHandler(promoSvc *adminService.PromoCodeAdminService) *PromoCodeHandler {
	return &PromoCodeHandler{promoService: promoSvc}
}

// CreatePromoCode 创建优惠码
// @Summary 创建优惠码
// @Tags 优惠码管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body adminService.PromoCodeRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.PromoCode}
// @Router /api/v1/admin/promo-codes [post]
func (h *PromoCodeHandler) CreatePromoCode(c *gin.Context) {
	var req adminService.PromoCodeRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	promo, err := h.promoService.CreatePromoCode(c.Request.Context(), &req)
	handler.MustSucceed(c, err, promo)
}

// UpdatePromoCode 更新优惠码
// @Summary 更新优惠码
// @Tags 优惠码管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "优惠码ID"
// @Param request body adminService.PromoCodeRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.PromoCode}
// @Router /api/v1/admin/promo-codes/{id} [put]
func (h *PromoCodeHandler) UpdatePromoCode(c *gin.Context) {
	id, ok := handler.ParseID(c, "优惠码")
	if !ok {
		return
	}

	var req adminService.PromoCodeRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	promo, err := h.promoService.UpdatePromoCode(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, promo)
}

// GetPromoCode 获取优惠码
// @Summary 获取优惠码
// @Tags 优惠码管理
// @Produce json
// @Security Bearer
// @Param id path int true "优惠码ID"
// @Success 200 {object} response.Response{data=models.PromoCode}
// @Router /api/v1/admin/promo-codes/{id} [get]
func (h *PromoCodeHandler) GetPromoCode(c *gin.Context) {
	id, ok := handler.ParseID(c, "优惠码")
	if !ok {
		return
	}

	promo, err := h.promoService.GetPromoCode(c.Request.Context(), id)
	handler.MustSucceed(c, err, promo)
}

// ListPromoCodes 优惠码列表
// @Summary 优惠码列表
// @Tags 优惠码管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param enabled query bool false "是否启用"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/admin/promo-codes [get]
func (h *PromoCodeHandler) ListPromoCodes(c *gin.Context) {
	enabled, ok := handler.ParseQueryBool(c, "enabled")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	promos, total, err := h.promoService.ListPromoCodes(c.Request.Context(), p, enabled)
	handler.MustSucceedPage(c, err, promos, total, p.Page, p.PageSize)
}
