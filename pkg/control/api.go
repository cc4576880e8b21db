// Package control is the remote automation surface: an echo HTTP API that
// reads and writes parameters, queues live MIDI, lists samples and serves
// engine statistics, state blobs and Prometheus metrics.
package control

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/justyntemme/vst3sampler/pkg/engine"
	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/framework/state"
	"github.com/justyntemme/vst3sampler/pkg/sampler/library"
)

// APIPrefix is where every route except /metrics lives
const APIPrefix = "/api/v1"

const shutdownTimeout = 5 * time.Second

// SampleLister lists the bundled samples
type SampleLister interface {
	Entries() []library.Entry
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	engine  *engine.Engine
	state   *state.Manager
	samples SampleLister
	metrics http.Handler
	log     *debug.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithSamples enables GET /samples
func WithSamples(s SampleLister) Option {
	return func(c *Controller) { c.samples = s }
}

// WithMetrics serves h at /metrics
func WithMetrics(h http.Handler) Option {
	return func(c *Controller) { c.metrics = h }
}

// WithLogger replaces the controller's logger
func WithLogger(log *debug.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a controller for e and registers its routes
func New(e *engine.Engine, opts ...Option) *Controller {
	c := &Controller{
		Echo:   echo.New(),
		engine: e,
		state:  state.NewManager(e.GetParameters()),
		log:    debug.Module("control"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.SetLogger(c.log.Module("state"))

	c.Echo.HideBanner = true
	c.Echo.HidePort = true
	c.Echo.Use(middleware.Recover())
	c.Echo.Use(c.requestLogger)

	c.Group = c.Echo.Group(APIPrefix)
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.Health)

	c.Group.GET("/params", c.ListParams)
	c.Group.GET("/params/:key", c.GetParam)
	c.Group.PUT("/params/:key", c.SetParam)

	c.Group.POST("/notes", c.PlayNote)
	c.Group.POST("/cc", c.SendController)

	c.Group.GET("/samples", c.ListSamples)
	c.Group.GET("/stats", c.GetStats)

	c.Group.GET("/state", c.GetState)
	c.Group.PUT("/state", c.PutState)
	c.Group.GET("/preset", c.GetPreset)
	c.Group.PUT("/preset", c.PutPreset)

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics))
	}
}

func (c *Controller) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		c.log.Debug("request",
			"method", ctx.Request().Method,
			"path", ctx.Request().URL.Path,
			"status", ctx.Response().Status,
			"elapsed", time.Since(start))
		return err
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleError logs err and answers with an ErrorResponse
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	c.log.Warn("API error",
		"message", message,
		"error", err,
		"path", ctx.Request().URL.Path,
		"ip", ctx.RealIP())

	resp := ErrorResponse{Message: message, Code: code}
	if err != nil {
		resp.Error = err.Error()
	}
	return ctx.JSON(code, resp)
}

// Health handles GET /health
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"plugin": c.engine.Info().String(),
	})
}

// Serve listens on addr until ctx is done, then shuts down gracefully
func (c *Controller) Serve(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Echo.Start(addr)
	}()
	c.log.Info("control API listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.Echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
