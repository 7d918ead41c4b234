package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(string) (string, error)

func (f verifierFunc) Verify(token string) (string, error) { return f(token) }

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	verifier := verifierFunc(func(token string) (string, error) {
		if token == "good" {
			return "u1", nil
		}
		return "", errors.New("bad token")
	})
	r.GET("/me", AuthMiddleware(verifier), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	router := setupAuthRouter()

	cases := []struct {
		name   string
		header string
		query  string
		ws     bool
		status int
	}{
		{name: "valid bearer", header: "Bearer good", status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "query token on upgrade", query: "?access_token=good", ws: true, status: http.StatusOK},
		{name: "query token on plain request", query: "?access_token=good", status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.ws {
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u1", rec.Body.String())
			}
		})
	}
}

func TestLimiterStoreAllowsBurstPerKey(t *testing.T) {
	store := NewLimiterStore(1, 2, time.Minute)
	defer store.Stop()

	assert.True(t, store.Allow("a"))
	assert.True(t, store.Allow("a"))
	assert.False(t, store.Allow("a"))
	assert.True(t, store.Allow("b"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewLimiterStore(1, 1, time.Minute)
	defer store.Stop()

	r := gin.New()
	r.POST("/auth/signin", RateLimit(store), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimitBudgetsArePerRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewLimiterStore(1, 1, time.Minute)
	defer store.Stop()

	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.POST("/auth/signin", RateLimit(store), ok)
	r.POST("/auth/signup", RateLimit(store), ok)

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("/auth/signup").Code)
	throttled := send("/auth/signup")
	assert.Equal(t, http.StatusTooManyRequests, throttled.Code)
	assert.Equal(t, "60", throttled.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, send("/auth/signin").Code)
}

func TestLimiterStoreSweepsIdleKeys(t *testing.T) {
	store := NewLimiterStore(60, 1, time.Hour)
	defer store.Stop()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Allow("email:old@example.com")
	now = now.Add(idleTTL + time.Second)
	store.Allow("email:new@example.com")
	store.sweep()

	assert.Equal(t, 1, store.size())
	assert.True(t, store.Allow("email:old@example.com"))
}
