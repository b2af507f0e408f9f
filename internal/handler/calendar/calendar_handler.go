// Package calendar 提供入住与退房日历的 HTTP Handler
package calendar

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/handler"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
	calendarService "github.com/dumeirei/house-booking-backend/internal/service/calendar"
)

// Handler 日历处理器
type Handler struct {
	calendarService *calendarService.Service
}

// NewHandler 创建日历处理器
func NewHandler(calendarSvc *calendarService.Service) *Handler {
	return &Handler{calendarService: calendarSvc}
}

// GetCalendar 按月生成入住或退房日历
// @Summary 获取日历
// @Description check_in 模式返回每天是否可入住；check_out 模式返回从 check_in_date 入住到每天退房的最低总价
// @Tags 日历
// @Produce json
// @Param house_ids query string false "房屋ID，逗号分隔，为空表示全部"
// @Param year query int true "年份"
// @Param month query int true "月份 1-12"
// @Param mode query string true "check_in 或 check_out"
// @Param check_in_date query string false "入住日期 dd-mm-yyyy，check_out 模式必填"
// @Param total_persons_amount query int false "入住人数"
// @Success 200 {object} response.Response
// @Router /api/v1/calendar [get]
func (h *Handler) GetCalendar(c *gin.Context) {
	houseIDs, ok := handler.ParseQueryIDs(c, "house_ids", "房屋")
	if !ok {
		return
	}
	checkInDate, ok := handler.ParseQueryDate(c, "check_in_date", calendarService.DateLayout)
	if !ok {
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.BadRequest(c, "无效的年份")
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.BadRequest(c, "无效的月份")
		return
	}
	persons, err := strconv.Atoi(c.DefaultQuery("total_persons_amount", "0"))
	if err != nil {
		response.BadRequest(c, "无效的入住人数")
		return
	}

	days, err := h.calendarService.Render(c.Request.Context(), &calendarService.Query{
		HouseIDs:     houseIDs,
		Year:         year,
		Month:        month,
		Mode:         calendarService.Mode(c.Query("mode")),
		CheckInDate:  checkInDate,
		TotalPersons: persons,
	})
	handler.MustSucceed(c, err, days)
}
