package middlewares

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"Scrumble/utils/apperror"
)

const hubKey = "sentry"

// ReportingMiddleware recovers panics, logs them and forwards them to Sentry.
// Each request gets its own hub so scope data never leaks between requests.
// With Sentry uninitialised the hub has no client and capture is a no-op.
func ReportingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		c.Set(hubKey, hub)

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			hub.RecoverWithContext(c.Request.Context(), rec)
			logger.Error("panic serving request",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"panic", fmt.Sprint(rec),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
				"code":  "INTERNAL",
			})
		}()

		c.Next()
	}
}

// CaptureError sends err to the request's Sentry hub. Only dependency
// failures are reported; client errors are expected traffic.
func CaptureError(c *gin.Context, err error) {
	if err == nil || apperror.KindOf(err) != apperror.KindDependencyFailure {
		return
	}
	if v, ok := c.Get(hubKey); ok {
		if hub, ok := v.(*sentry.Hub); ok {
			hub.CaptureException(err)
			return
		}
	}
	sentry.CaptureException(err)
}
