package httpctx

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SyntheticHeader marks load-test traffic whose votes go to the synthetic tally.
const SyntheticHeader = "X-Scrumble-Synthetic"

const adminKey = "isAdmin"

// IsSynthetic reports whether the request carries a truthy synthetic header.
func IsSynthetic(c *gin.Context) bool {
	switch strings.ToLower(strings.TrimSpace(c.GetHeader(SyntheticHeader))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// MarkAdmin records that the admin key check passed for this request.
func MarkAdmin(c *gin.Context) {
	c.Set(adminKey, true)
}

// IsAdminRequest indicates whether the current request is from an admin.
func IsAdminRequest(c *gin.Context) bool {
	val, exists := c.Get(adminKey)
	if !exists {
		return false
	}
	isAdmin, ok := val.(bool)
	return ok && isAdmin
}
