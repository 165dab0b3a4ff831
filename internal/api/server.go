// Package api provides the HTTP server for stocksim, exposing quotes,
// history, ticker validation and strategy simulation endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stocksim/internal/config"
	"stocksim/internal/gather"
	"stocksim/internal/strategy"
)

// Server is the HTTP API server.
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	http    *http.Server
	handler *Handler
	log     *slog.Logger
}

// NewServer creates a Server configured from the given Config, serving data
// from provider and simulating the strategies in registry.
func NewServer(cfg *config.Config, provider gather.Provider, registry *strategy.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		handler: NewHandler(provider, registry, cfg.Simulation),
		log:     slog.Default().With("component", "api"),
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	engine.Use(gin.Recovery())
	engine.Use(s.loggerMiddleware())
	s.setupRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.http.Addr }

func (s *Server) setupRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/quote/:symbol", s.handler.GetQuote)
		v1.GET("/bars/:symbol", s.handler.GetBars)
		v1.GET("/analysis/:symbol", s.handler.GetAnalysis)
		v1.GET("/validate/:symbol", s.handler.Validate)
		v1.GET("/strategies", s.handler.ListStrategies)
		v1.POST("/simulate", s.handler.Simulate)
	}
}

// ListenAndServe starts the HTTP listener and blocks until the context is
// cancelled or the listener fails. Cancellation triggers a graceful
// shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.log.Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
