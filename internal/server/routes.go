package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Liveness probe: no auth required.
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.Handle("POST /blobs", s.withAuth(http.HandlerFunc(s.handleUpload)))
	mux.Handle("GET /blobs/{ref}", s.withAuth(http.HandlerFunc(s.handleDownload)))
	mux.Handle("HEAD /blobs/{ref}", s.withAuth(http.HandlerFunc(s.handleHead)))
	mux.Handle("DELETE /blobs/{ref}", s.withAuth(http.HandlerFunc(s.handleDelete)))

	return mux
}
