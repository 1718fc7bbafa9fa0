// Package server implements the HTTP service (component C4): routing,
// token authentication, multipart ingest, and streaming blob responses
// over a blob.Engine.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/giuppep/rustore/internal/blob"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 0 // no write deadline, so long streaming downloads are not cut off
	idleTimeout       = 60 * time.Second

	// maxUploadPartBytes bounds the size of a whole upload request body,
	// all of its multipart parts together. It is generous rather than
	// tight — the intent is to reject runaway bodies, not to cap
	// legitimate large blobs tightly.
	maxUploadPartBytes = 4 << 30 // 4 GiB
)

// Server wraps the blob engine with the HTTP surface of spec §4.4.
type Server struct {
	engine    *blob.Engine
	authToken string
	logger    *slog.Logger
}

// New creates a Server backed by engine, requiring authToken on every
// route except /status.
func New(engine *blob.Engine, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, authToken: authToken, logger: logger}
}

// Handler returns the server's http.Handler, useful for tests that want
// to drive it with httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}

// ListenAndServe starts the HTTP service on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.log().Info("starting server", "addr", addr)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return httpServer.ListenAndServe()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
