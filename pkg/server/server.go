// Package server exposes the chat command dispatcher over HTTP so a chat
// bridge can forward "/model ..." messages to it.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/docker/model-switcher/pkg/chatcmd"
	"github.com/docker/model-switcher/pkg/history"
	"github.com/docker/model-switcher/pkg/modelconfig"
)

const shutdownTimeout = 5 * time.Second

// Reader is the read-only view of the switcher served by the API.
type Reader interface {
	Current(ctx context.Context) (modelconfig.Resolution, error)
	History() history.State
}

type Server struct {
	e          *echo.Echo
	dispatcher *chatcmd.Dispatcher
	reader     Reader
	token      string
}

type Opt func(*Server)

// WithAuthToken requires "Authorization: Bearer <token>" on every /api route except ping.
func WithAuthToken(token string) Opt {
	return func(s *Server) {
		s.token = token
	}
}

type CommandRequest struct {
	chatcmd.Sender
	Text string `json:"text"`
}

type CommandResponse struct {
	Handled bool   `json:"handled"`
	Reply   string `json:"reply,omitempty"`
}

type ModelResponse struct {
	Model        string `json:"model"`
	Source       string `json:"source"`
	GatewayError bool   `json:"gateway_error,omitempty"`
}

type HistoryResponse struct {
	Stack         []string `json:"stack"`
	LastKnownGood string   `json:"last_known_good,omitempty"`
}

func New(dispatcher *chatcmd.Dispatcher, reader Reader, opts ...Opt) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLogger())

	s := &Server{
		e:          e,
		dispatcher: dispatcher,
		reader:     reader,
	}
	for _, opt := range opts {
		opt(s)
	}

	group := e.Group("/api")
	if s.token != "" {
		group.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/api/ping"
			},
			Validator: func(key string, _ echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(s.token)) == 1, nil
			},
		}))
	}

	// Run a chat command
	group.POST("/commands", s.runCommand)
	// Get the active model
	group.GET("/model", s.getModel)
	// Get the rollback history
	group.GET("/history", s.getHistory)

	// Health check endpoint
	group.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := http.Server{
		Handler:           s.e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func (s *Server) runCommand(c echo.Context) error {
	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	reply, handled := s.dispatcher.Handle(c.Request().Context(), req.Sender, req.Text)
	return c.JSON(http.StatusOK, CommandResponse{Handled: handled, Reply: reply})
}

func (s *Server) getModel(c echo.Context) error {
	res, err := s.reader.Current(c.Request().Context())
	if err != nil {
		slog.Error("Failed to read active model", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "model configuration unavailable")
	}

	return c.JSON(http.StatusOK, ModelResponse{
		Model:        res.Model,
		Source:       res.Source.String(),
		GatewayError: res.RemoteErr != nil,
	})
}

func (s *Server) getHistory(c echo.Context) error {
	state := s.reader.History()
	resp := HistoryResponse{Stack: state.Stack}
	if resp.Stack == nil {
		resp.Stack = []string{}
	}
	if pinned, ok := state.Pinned(); ok {
		resp.LastKnownGood = pinned
	}
	return c.JSON(http.StatusOK, resp)
}
