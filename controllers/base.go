package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"Scrumble/cache"
	"Scrumble/config"
	"Scrumble/matchups"
	"Scrumble/middlewares"
	"Scrumble/voting"
)

type Server struct {
	Router  *gin.Engine
	Engine  *matchups.Engine
	Ledger  *voting.Ledger
	Cache   *cache.Cache
	Config  config.Config
	Metrics prometheus.Gatherer
	Logger  *slog.Logger

	limiter *middlewares.VoteLimiter
}

// Initialize builds the router. Engine and Ledger must be set; Cache,
// Metrics and Logger are optional.
func (server *Server) Initialize() {
	if server.Logger == nil {
		server.Logger = slog.Default()
	}
	if server.Config.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	server.limiter = middlewares.NewVoteLimiter(server.Config.VoteRateLimit, server.Config.VoteRateBurst)

	server.Router = gin.New()
	server.Router.Use(middlewares.ReportingMiddleware(server.Logger))
	server.Router.Use(middlewares.CORSMiddleware(server.Config.AllowedOrigins))
	server.initializeRoutes()
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (server *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		server.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	go server.sweepVisitors(ctx)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (server *Server) sweepVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := server.limiter.Sweep(10 * time.Minute); n > 0 {
				server.Logger.Debug("rate limiter swept idle visitors", "count", n)
			}
		}
	}
}
