package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nutri-bot/internal/bot"
	"nutri-bot/pkg/logger"
)

// StatsSource reports what the bot is currently serving.
type StatsSource interface {
	Stats() bot.Stats
}

type Server struct {
	server *http.Server
	logger *logger.Logger
}

func NewServer(port string, stats StatsSource, logger *logger.Logger) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(stats, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: logger,
	}
}

func NewRouter(stats StatsSource, logger *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats.Stats())
	})
	return r
}

func requestLogger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
