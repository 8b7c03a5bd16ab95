package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/slighter12/twinscene-go/commands"
	"github.com/slighter12/twinscene-go/config"
	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/transport/shared"
)

const (
	sessionTimeout  = 10 * time.Minute
	cleanupInterval = 5 * time.Minute
	keepAlive       = 25 * time.Second
)

// EventSource is where the server subscribes to editor events.
type EventSource interface {
	OnAll(h events.Handler) (off func())
}

type Server struct {
	registry       *commands.Manager
	sessionManager *SessionManager
	config         *config.Config
	echo           *echo.Echo
	info           shared.ServerInfo
	transports     []string
	keepAlive      time.Duration
	off            func()
}

// NewServer builds the HTTP transport. Events from source are fanned out to
// every /events subscriber.
func NewServer(cfg *config.Config, registry *commands.Manager, source EventSource) *Server {
	s := &Server{
		registry:       registry,
		sessionManager: NewSessionManager(),
		config:         cfg,
		echo:           echo.New(),
		info:           shared.ServerInfo{Name: cfg.Name, Version: cfg.Version},
		keepAlive:      keepAlive,
	}
	for _, t := range cfg.Transports {
		if t.Enabled {
			s.transports = append(s.transports, t.Type)
		}
	}
	if source != nil {
		s.off = source.OnAll(s.publish)
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Server.Debug
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "remote_addr", c.RealIP())
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, headerSessionID, "Last-Event-ID"},
		ExposeHeaders: []string{headerSessionID},
	}))
	RegisterRoutes(s.echo, s)
}

// publish runs on the editor loop. The payload is encoded there, before
// any later mutation.
func (s *Server) publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Failed to encode event", "event", event, "error", err)
		return
	}
	s.sessionManager.Broadcast(event, data)
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until ctx is done, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	go s.startCleanupGoroutine(ctx)

	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	logger.Info("HTTP server starting to listen", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes every event stream and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.off != nil {
		s.off()
	}
	s.sessionManager.CloseAll()
	logger.Info("HTTP server stopping")
	return s.echo.Shutdown(ctx)
}

func (s *Server) startCleanupGoroutine(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sessionManager.CleanupSessions(sessionTimeout); removed > 0 {
				logger.Debug("Expired sessions removed", "count", removed)
			}
		}
	}
}

func (s *Server) GetSessionManager() *SessionManager {
	return s.sessionManager
}
