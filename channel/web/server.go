// Package web provides the browser chat channel: a single-page widget and
// the JSON API it talks to.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	instructagent "github.com/instructware/instruct-agent-go"
)

// ──────────────────────────────────────────────
// Web Channel — browser chat widget
// ──────────────────────────────────────────────
//
// Serves a single-page chat widget plus a small JSON API for one registered
// agent. The agent is resolved from the registry per request, so replacing
// it under the same identifier takes effect live.

// ServerConfig configures the widget server.
type ServerConfig struct {
	Host    string
	Port    int
	AgentID string
}

// Server is the widget HTTP server.
type Server struct {
	echo     *echo.Echo
	registry *instructagent.AgentRegistry
	catalog  *instructagent.AgentCatalog
	store    instructagent.MemoryStore
	sessions *SessionIndex
	appCfg   *instructagent.Config
	cfg      ServerConfig
}

// NewServer wires routes and middleware for the agent named by cfg.AgentID.
func NewServer(registry *instructagent.AgentRegistry, catalog *instructagent.AgentCatalog,
	store instructagent.MemoryStore, appCfg *instructagent.Config, cfg ServerConfig) *Server {

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLog)

	s := &Server{
		echo:     e,
		registry: registry,
		catalog:  catalog,
		store:    store,
		sessions: NewSessionIndex(store, cfg.AgentID),
		appCfg:   appCfg,
		cfg:      cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/ping", s.handlePing)
	s.echo.GET("/api/agent", s.handleAgent)
	s.echo.GET("/api/agents", s.handleAgents)
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.GET("/api/sessions", s.handleSessions)
	s.echo.GET("/api/history", s.handleHistory)
	s.echo.POST("/api/chat", s.handleChat)
	s.echo.POST("/api/session/reset", s.handleSessionReset)
}

// requestLog logs one line per request in the harness log style.
func requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		log.Printf("[WebChannel] %s %s -> %d (%s)",
			c.Request().Method, c.Request().URL.Path,
			c.Response().Status, time.Since(start).Round(time.Millisecond))
		return err
	}
}

// Handler exposes the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start begins serving and blocks until the server stops. A graceful
// Shutdown is not reported as an error.
func (s *Server) Start() error {
	addr := s.Addr()
	log.Printf("[WebChannel] Chat widget on http://%s", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web channel: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
