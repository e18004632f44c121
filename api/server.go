package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pbudner/halfhour/stores"
	"go.uber.org/zap"
)

type Server struct {
	echo     *echo.Echo
	listener string
	log      *zap.SugaredLogger
}

// NewServer wires the API routes and the /metrics endpoint.
func NewServer(listener, version, gitCommit, site string, catalogue *stores.Catalogue) *Server {
	log := zap.L().Sugar().With("service", "api")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debugw("request", "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	p := prometheus.NewPrometheus("halfhour", nil)
	p.Use(e)

	RegisterApiHandlers(e.Group("/api"), version, gitCommit, site, catalogue)
	return &Server{echo: e, listener: listener, log: log}
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done and then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		s.log.Infow("starting api server", "listener", s.listener)
		errs <- s.echo.Start(s.listener)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down api server")
	return s.echo.Shutdown(shutdownCtx)
}
