package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/armysmp/storefront/pkg/config"
	"github.com/armysmp/storefront/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		WindowSeconds:  60,
		DefaultLimit:   10,
		AnonymousLimit: 2,
		RedisPrefix:    "rl",
	}
}

func TestRateLimit(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken(testSecret, userID, "steve@example.com", "Steve", RoleCustomer, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		key           string
		count         int64
		expectedCode  int
		remaining     string
	}{
		{
			name:         "anonymous under limit",
			key:          "rl:/:192.0.2.1",
			count:        1,
			expectedCode: http.StatusOK,
			remaining:    "1",
		},
		{
			name:         "anonymous over limit",
			key:          "rl:/:192.0.2.1",
			count:        3,
			expectedCode: http.StatusTooManyRequests,
			remaining:    "0",
		},
		{
			name:          "authenticated keyed by user",
			authorization: "Bearer " + token,
			key:           "rl:/:" + userID.String(),
			count:         3,
			expectedCode:  http.StatusOK,
			remaining:     "7",
		},
		{
			name:          "invalid token falls back to ip",
			authorization: "Bearer garbage",
			key:           "rl:/:192.0.2.1",
			count:         3,
			expectedCode:  http.StatusTooManyRequests,
			remaining:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			limiter := ratelimit.NewLimiter(client, rateLimitConfig())
			mock.ExpectEvalSha(limiter.ScriptHash(), []string{tt.key}, int64(60000)).
				SetVal([]interface{}{tt.count, int64(30000)})

			r := newRouter(RateLimit(limiter, testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:4321"
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.remaining, w.Header().Get("X-RateLimit-Remaining"))
			if tt.expectedCode == http.StatusTooManyRequests {
				assert.Equal(t, "30", w.Header().Get("Retry-After"))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := ratelimit.NewLimiter(client, rateLimitConfig())
	mock.ExpectEvalSha(limiter.ScriptHash(), []string{"rl:/:192.0.2.1"}, int64(60000)).SetErr(assert.AnError)

	r := newRouter(RateLimit(limiter, testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimit_Disabled(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cfg := rateLimitConfig()
	cfg.Enabled = false

	r := newRouter(RateLimit(ratelimit.NewLimiter(client, cfg), testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
