package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the query surface. Handlers are expected to be fast
// reads, so write and idle timeouts are kept short.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
