package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"desirius_backend/internal/common"
	"desirius_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func limitedRouter(perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	rl := NewRateLimiter(perMinute, 0, zap.NewNop())
	router.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func post(router *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":40000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	router := limitedRouter(3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(router, "10.0.0.1"), "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, post(router, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, post(router, "10.0.0.2"), "other clients keep their own bucket")
}

func TestRateLimiter_DisabledWhenNotPositive(t *testing.T) {
	router := limitedRouter(0)

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, post(router, "10.0.0.1"))
	}
}

func TestRateLimiter_KeyedByProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	rl := NewWindowRateLimiter(2, time.Hour, 0, zap.NewNop())
	signIn := func(c *gin.Context) {
		if id := c.GetHeader("X-Profile"); id != "" {
			c.Set(common.ProfileKey, &shared.Profile{ID: id})
		}
	}
	router.POST("/points", signIn, rl.KeyedMiddleware(ProfileRateKey), func(c *gin.Context) { c.Status(http.StatusOK) })

	award := func(profileID string) int {
		req := httptest.NewRequest(http.MethodPost, "/points", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set("X-Profile", profileID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, award("u1"))
	assert.Equal(t, http.StatusOK, award("u1"))
	assert.Equal(t, http.StatusTooManyRequests, award("u1"), "an hourly budget does not refill within the test")
	assert.Equal(t, http.StatusOK, award("u2"), "profiles behind the same IP keep their own bucket")
}
