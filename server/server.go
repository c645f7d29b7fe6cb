package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linhvu2695/aiven/ai/agent"
	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/internal/profile"
	"github.com/linhvu2695/aiven/server/metrics"
	apiv1 "github.com/linhvu2695/aiven/server/router/api/v1"
	"github.com/linhvu2695/aiven/store"
)

// Server hosts the HTTP surface of the assistant.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	s := &Server{
		Profile: p,
		Store:   st,
	}

	echoServer := echo.New()
	echoServer.Debug = p.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = false
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	// Failures are reported as {detail: string} payloads.
	echoServer.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		detail := "internal server error"
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
			detail = fmt.Sprintf("%v", httpErr.Message)
		}
		if err := c.JSON(code, map[string]string{"detail": detail}); err != nil {
			slog.Error("failed to write error response", "error", err)
		}
	}
	s.echoServer = echoServer

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	modelRegistry := llm.NewRegistry()
	clients := llm.NewClientFactory(modelRegistry, p)
	resolver := agent.NewResolver(st, modelRegistry, agent.NewBuiltinCatalog())
	runner := agent.NewRunner()
	namer := agent.NewNamer(st, resolver, clients)
	chatService := apiv1.NewChatService(st, resolver, runner, namer, clients, modelRegistry, m)

	rootGroup := echoServer.Group("")
	apiv1.NewAPIV1Service(p, st, chatService).Register(rootGroup)

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode, "version", s.Profile.Version)
	return s.echoServer.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shutdown")
}
