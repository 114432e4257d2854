// Package server constructs and starts the Roomcast HTTP service with
// helpers that apply sensible production defaults.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/roomcast/roomcast/internal/logger"
)

var (
	hubMu        sync.Mutex
	globalHub    *Hub
	startHubOnce sync.Once
)

// CreateServer creates and configures an HTTP server with the specified
// port and handler.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartHub starts the global hub's run loop. Safe to call more than once;
// the loop is started exactly one time.
func StartHub() {
	startHubOnce.Do(func() {
		go GetHub().Run()
		logger.Info("hub started and ready to manage websocket connections")
	})
}

// StartServer starts the HTTP server and begins listening for connections.
func StartServer(server *http.Server) error {
	logger.Infof("server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		return errors.Wrap(err, "listen and serve")
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or the timeout to be reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	logger.Info("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}

	logger.Info("http server shutdown complete")
	return nil
}

// GetHub returns the global hub, constructing it on first use so the
// default room is named from the configuration applied at startup rather
// than from package initialization order.
func GetHub() *Hub {
	hubMu.Lock()
	defer hubMu.Unlock()

	if globalHub == nil {
		globalHub = NewHub()
	}
	return globalHub
}
