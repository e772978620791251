package middlewares

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Scrumble/utils/apperror"
	"Scrumble/utils/httpctx"
)

// AdminKeyMiddleware guards admin routes with a shared key sent as
// x-admin-key or as a bearer token. Responses are never cached.
func AdminKeyMiddleware(adminKey string) gin.HandlerFunc {
	expected := []byte(adminKey)
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		if len(expected) == 0 {
			slog.Error("admin route called without ADMIN_KEY configured", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Admin key not configured",
				"code":  "ADMIN_KEY_MISSING",
			})
			return
		}

		provided := []byte(presentedKey(c.Request))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Forbidden",
				"code":  apperror.CodeUnauthorized,
			})
			return
		}

		httpctx.MarkAdmin(c)
		c.Next()
	}
}

func presentedKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("x-admin-key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
