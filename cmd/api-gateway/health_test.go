package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestReadyHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.GET("/health", healthHandler)
	r.GET("/ready", readyHandler(db, client))

	ready := func() (int, HealthResponse) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w.Code, resp
	}

	t.Run("存活", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("依赖均可用", func(t *testing.T) {
		code, resp := ready()
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.Equal(t, "ok", resp.Checks["redis"])
	})

	t.Run("Redis 不可用", func(t *testing.T) {
		mr.Close()
		code, resp := ready()
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not ready", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.Contains(t, resp.Checks["redis"], "error")
	})
}
