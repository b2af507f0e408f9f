// Package response 统一响应格式单元测试
package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	c, w := setupTest()

	Success(c, map[string]interface{}{"slug": "ABCDEF123456"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestSuccessPage(t *testing.T) {
	c, w := setupTest()

	SuccessPage(c, []int{1, 2}, 12, 2, 10)

	resp := parseResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(12), data["total"])
	assert.Equal(t, float64(2), data["page"])
}

func TestError_UsesGivenStatus(t *testing.T) {
	c, w := setupTest()

	Error(c, http.StatusConflict, 8004, "该时段房屋已被预订")

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 8004, resp.Code)
	assert.Nil(t, resp.Data)
}

func TestShortcuts(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		msg    string
	}{
		{"BadRequest", func(c *gin.Context) { BadRequest(c, "参数错误") }, http.StatusBadRequest, "参数错误"},
		{"Unauthorized默认消息", func(c *gin.Context) { Unauthorized(c, "") }, http.StatusUnauthorized, "unauthorized"},
		{"Forbidden", func(c *gin.Context) { Forbidden(c, "") }, http.StatusForbidden, "forbidden"},
		{"NotFound", func(c *gin.Context) { NotFound(c, "预订不存在") }, http.StatusNotFound, "预订不存在"},
		{"InternalError", func(c *gin.Context) { InternalError(c, "") }, http.StatusInternalServerError, "internal server error"},
		{"TooManyRequests", func(c *gin.Context) { TooManyRequests(c, "") }, http.StatusTooManyRequests, "too many requests"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTest()
			tt.call(c)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, parseResponse(t, w).Message)
		})
	}
}
