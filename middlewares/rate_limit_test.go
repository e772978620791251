package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestRouter creates a Gin engine with a single middleware and a test route.
func makeTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return r
}

func get(r http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVoteLimiter_AllowsInitialBurst(t *testing.T) {
	router := makeTestRouter(NewVoteLimiter(0.001, 5).Middleware())

	for i := 0; i < 5; i++ {
		w := get(router, "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := get(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestVoteLimiter_PerIP(t *testing.T) {
	router := makeTestRouter(NewVoteLimiter(0.001, 1).Middleware())

	assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, get(router, "10.0.0.2:1").Code)
}

func TestVoteLimiter_DisabledWhenRateIsZero(t *testing.T) {
	router := makeTestRouter(NewVoteLimiter(0, 1).Middleware())
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, get(router, "10.0.0.1:1").Code)
	}
}

func TestVoteLimiter_Sweep(t *testing.T) {
	l := NewVoteLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.getVisitor("a")
	now = now.Add(10 * time.Minute)
	l.getVisitor("b")

	assert.Equal(t, 1, l.Sweep(5*time.Minute))
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "b")
}
