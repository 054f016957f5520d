package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tourbook/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitHonorsConfiguredBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.AppConfig.MaxRequestsPerMin = 3
	t.Cleanup(func() { config.AppConfig.MaxRequestsPerMin = 0 })

	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(), "request %d is inside the budget", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded chain wins", "198.51.100.4, 10.0.0.1", "", "10.0.0.2:1234", "198.51.100.4"},
		{"garbage forwarded falls through", "not-an-ip", "198.51.100.9", "10.0.0.2:1234", "198.51.100.9"},
		{"real ip", "", "198.51.100.9", "10.0.0.2:1234", "198.51.100.9"},
		{"remote addr port stripped", "", "", "10.0.0.2:1234", "10.0.0.2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				c.Request.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				c.Request.Header.Set("X-Real-IP", tc.realIP)
			}
			assert.Equal(t, tc.want, getClientIP(c))
		})
	}
}
