// internal/api/middleware_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	limiter := NewRateLimiter()

	for i := 0; i < 2; i++ {
		ok, _ := limiter.Allow("1.2.3.4", 2, time.Minute)
		assert.True(t, ok)
	}
	ok, visitor := limiter.Allow("1.2.3.4", 2, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, 0, visitor.Remaining)

	ok, _ = limiter.Allow("5.6.7.8", 2, time.Minute)
	assert.True(t, ok, "其他客户端不受影响")

	ok, _ = limiter.Allow("9.9.9.9", 1, time.Millisecond)
	assert.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	ok, _ = limiter.Allow("9.9.9.9", 1, time.Millisecond)
	assert.True(t, ok, "窗口过期后重置")
}

func TestGenerateEndpointRateLimited(t *testing.T) {
	s := newTestServer(t, nil, 1)

	w := s.do(http.MethodPost, "/generate-video", gin.H{"voiceId": "voice-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = s.do(http.MethodPost, "/generate-video", gin.H{"voiceId": "voice-1"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, ErrorRateLimited, body["code"])

	// 只读接口不限流
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newTestServer(t, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))

	w = s.do(http.MethodGet, "/health", nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, 0)

	req := httptest.NewRequest(http.MethodOptions, "/generate-video", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/generate-video", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Equal(t, "Failed to generate video", sanitizeErrorMessage("Failed to generate video"))
	assert.Equal(t, "An internal error occurred", sanitizeErrorMessage("missing xi-api-key header"))
}
