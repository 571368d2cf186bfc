// Package dashboard serves the browser page that shows the occupancy view
// and forwards picked or dropped images to the uploader.
package dashboard

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"parkvision/pkg/display"
	"parkvision/pkg/log"
	"parkvision/pkg/models"
	"parkvision/pkg/uploader"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	wsBufferSize           = 1024
)

// Uploads is the upload flow used by the page.
type Uploads interface {
	Select(ctx context.Context, file uploader.File) (*uploader.Result, error)
	Drop(ctx context.Context, file uploader.File) (*uploader.Result, error)
}

// HealthChecker reports the detector health.
type HealthChecker interface {
	Health(ctx context.Context) (*models.HealthResponse, error)
}

// Server is the dashboard HTTP server.
type Server struct {
	echo            *echo.Echo
	display         *display.Display
	uploads         Uploads
	health          HealthChecker
	page            *template.Template
	pageData        pageData
	upgrader        websocket.Upgrader
	shutdownTimeout time.Duration

	done     chan struct{}
	doneOnce sync.Once
}

type pageData struct {
	Title     string
	Detector  string
	IntervalS string
}

// New builds the server and registers its routes.
func New(disp *display.Display, uploads Uploads, health HealthChecker, detectorURL string, pollInterval, shutdownTimeout time.Duration) (*Server, error) {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	page, err := loadPage()
	if err != nil {
		return nil, err
	}

	srv := &Server{
		echo:    echo.New(),
		display: disp,
		uploads: uploads,
		health:  health,
		page:    page,
		pageData: pageData{
			Title:     "ParkVision",
			Detector:  detectorURL,
			IntervalS: pollInterval.String(),
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
		},
		shutdownTimeout: shutdownTimeout,
		done:            make(chan struct{}),
	}
	srv.setupRoutes()

	return srv, nil
}

// ServeHTTP exposes the router, mainly for tests.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.echo.ServeHTTP(w, r)
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down.
func (srv *Server) Start(addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("detector", srv.pageData.Detector).
			Msg("Starting dashboard")

		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	return srv.Shutdown()
}

// Shutdown stops accepting requests and ends open view streams.
func (srv *Server) Shutdown() error {
	log.Info().Msg("Shutting down dashboard...")
	srv.doneOnce.Do(func() { close(srv.done) })

	ctx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Dashboard shutdown failed")
		return err
	}

	log.Info().Msg("Dashboard stopped")
	return nil
}

func (srv *Server) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true

	srv.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/ws"
		},
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	srv.echo.Use(middleware.Recover())

	srv.echo.GET("/", srv.servePage)
	srv.echo.GET("/ws", srv.streamView)
	srv.echo.GET("/api/view", srv.getView)
	srv.echo.GET("/api/health", srv.getHealth)
	srv.echo.POST("/api/select", srv.selectFile)
	srv.echo.POST("/api/drop", srv.dropFile)
}
