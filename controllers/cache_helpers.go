package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"Scrumble/cache"
)

const visibleListingKey = cache.ListingPrefix + "matchup"

func (server *Server) publicCacheControl(c *gin.Context) {
	if ttl := server.Config.PublicCacheTTL; ttl > 0 {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
	} else {
		c.Header("Cache-Control", "no-cache")
	}
}

// serveCached writes a cached listing and reports whether it did.
func (server *Server) serveCached(c *gin.Context, key string) bool {
	body, ok, err := server.Cache.Get(c.Request.Context(), key)
	if err != nil {
		server.Logger.Warn("listing cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	server.publicCacheControl(c)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	return true
}

func (server *Server) storeCached(ctx context.Context, key string, body []byte) {
	if err := server.Cache.Set(ctx, key, body, server.Config.PublicCacheTTL); err != nil {
		server.Logger.Warn("listing cache write failed", "key", key, "error", err)
	}
}

func (server *Server) invalidateListings(ctx context.Context) {
	if err := server.Cache.DeleteByPrefix(ctx, cache.ListingPrefix); err != nil {
		server.Logger.Warn("listing cache invalidation failed", "error", err)
	}
}
