package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomcast/roomcast/internal/logger"
	"github.com/roomcast/roomcast/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer logger.Sync()

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(config.Port, mux)

	server.StartHub()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server failed: %v", err)
			logger.Sync()
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
			logger.Errorf("http shutdown: %v", err)
		}
		if err := server.GetHub().Shutdown(shutdownTimeout); err != nil {
			logger.Errorf("hub shutdown: %v", err)
		}
	}
}
