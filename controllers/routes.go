package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Scrumble/middlewares"
	"Scrumble/utils/apperror"
)

func (server *Server) initializeRoutes() {
	server.Router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if server.Metrics != nil {
		server.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(server.Metrics, promhttp.HandlerOpts{})))
	}

	// Public routes
	server.Router.GET("/matchup", server.GetMatchups)
	server.Router.GET("/history", server.GetHistory)
	server.Router.GET("/future", server.GetFuture)
	server.Router.POST("/vote", server.limiter.Middleware(), server.CastVote)

	admin := server.Router.Group("/admin", middlewares.AdminKeyMiddleware(server.Config.AdminKey))
	{
		admin.GET("/matchups", server.AdminListMatchups)
		admin.POST("/matchup", server.AdminCreateMatchup)
		admin.POST("/update", server.AdminUpdateMatchup)
		admin.POST("/activate", server.AdminActivate)
		admin.POST("/deactivate", server.AdminDeactivate)
		admin.POST("/bulk-activate", server.AdminBulkActivate)
		admin.POST("/bulk-deactivate", server.AdminBulkDeactivate)
		admin.POST("/clone", server.AdminClone)
		admin.POST("/delete", server.AdminDelete)
		admin.POST("/reset-votes", server.AdminResetVotes)
		admin.POST("/archive-ended", server.AdminArchiveEnded)
	}

	server.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "code": apperror.CodeNotFound})
	})
}
