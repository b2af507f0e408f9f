// Package admin 提供运营后台的 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/handler"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
	adminService "github.com/dumeirei/house-booking-backend/internal/service/admin"
)

// HouseHandler 房屋管理处理器
type HouseHandler struct {
	houseService *adminService.HouseAdminService
}

// NewHouseHandler 创建房屋管理处理器
func NewHouseHandler(houseSvc *adminService.HouseAdminService) *HouseHandler {
	return &HouseHandler{houseService: houseSvc}
}

// CreateHouse 创建房屋
// @Summary 创建房屋
// @Tags 房屋管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body adminService.CreateHouseRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.House}
// @Router /api/v1/admin/houses [post]
func (h *HouseHandler) CreateHouse(c *gin.Context) {
	var req adminService.CreateHouseRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	house, err := h.houseService.CreateHouse(c.Request.Context(), &req)
	handler.MustSucceed(c, err, house)
}

// UpdateHouse 更新房屋
// @Summary 更新房屋
// @Tags 房屋管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "房屋ID"
// @Param request body adminService.UpdateHouseRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.House}
// @Router /api/v1/admin/houses/{id} [put]
func (h *HouseHandler) UpdateHouse(c *gin.Context) {
	id, ok := handler.ParseID(c, "房屋")
	if !ok {
		return
	}

	var req adminService.UpdateHouseRequest
	if handler.HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	house, err := h.houseService.UpdateHouse(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, house)
}

// DeactivateHouse 停用房屋，已有预订保留
// @Summary 停用房屋
// @Tags 房屋管理
// @Produce json
// @Security Bearer
// @Param id path int true "房屋ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/houses/{id} [delete]
func (h *HouseHandler) DeactivateHouse(c *gin.Context) {
	id, ok := handler.ParseID(c, "房屋")
	if !ok {
		return
	}

	if handler.HandleError(c, h.houseService.DeactivateHouse(c.Request.Context(), id)) {
		return
	}
	response.SuccessWithMessage(c, "房屋已停用", nil)
}

// GetHouse 获取房屋详情
// @Summary 获取房屋详情
// @Tags 房屋管理
// @Produce json
// @Security Bearer
// @Param id path int true "房屋ID"
// @Success 200 {object} response.Response{data=models.House}
// @Router /api/v1/admin/houses/{id} [get]
func (h *HouseHandler) GetHouse(c *gin.Context) {
	id, ok := handler.ParseID(c, "房屋")
	if !ok {
		return
	}

	house, err := h.houseService.GetHouse(c.Request.Context(), id)
	handler.MustSucceed(c, err, house)
}

// ListHouses 房屋列表
// @Summary 房屋列表
// @Tags 房屋管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param active query bool false "是否启用"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/admin/houses [get]
func (h *HouseHandler) ListHouses(c *gin.Context) {
	active, ok := handler.ParseQueryBool(c, "active")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	houses, total, err := h.houseService.ListHouses(c.Request.Context(), p, active)
	handler.MustSucceedPage(c, err, houses, total, p.Page, p.PageSize)
}
