// Package server exposes the export tool over HTTP: the input form, the
// export pipeline endpoint and the download handler.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mhorvat/xapiport/internal/app"
	"github.com/mhorvat/xapiport/internal/common"
)

// Server wraps the HTTP server and application reference.
type Server struct {
	app       *app.App
	server    *http.Server
	logger    *common.Logger
	downloads *downloadRegistry

	// cooldown throttles export requests the way the original tool rate
	// limited its form submissions: one request per cooldown interval.
	cooldown *rate.Limiter
}

// NewServer creates a new HTTP server.
func NewServer(a *app.App) *Server {
	cooldown := time.Duration(a.Config.Export.CooldownSeconds) * time.Second
	if cooldown <= 0 {
		cooldown = time.Second
	}

	s := &Server{
		app:       a,
		logger:    a.Logger,
		downloads: newDownloadRegistry(a.Logger, a.Config.DownloadTTL()),
		cooldown:  rate.NewLimiter(rate.Every(cooldown), 1),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := applyMiddleware(mux, a.Logger)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// registerRoutes sets up all routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/export", s.handleExport)
	mux.HandleFunc("/download", s.handleDownload)

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/endpoints", s.handleEndpoints)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting export server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and stops the download
// registry's expiry loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.downloads.Stop()
	return s.server.Shutdown(ctx)
}
