package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/config"
	"github.com/MattB543/textpress-matt-test/internal/handler"
	"github.com/MattB543/textpress-matt-test/internal/observability"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	observability.RegisterMetrics()

	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           handler.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Closing sessions ends open event streams so Shutdown can drain.
	server.RegisterOnShutdown(container.Close)

	go func() {
		container.Logger.Info("Server listening", "address", server.Addr, "public_base_url", container.Config.GetPublicBaseURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		container.Logger.Error("Graceful shutdown failed", err)
		_ = server.Close()
	}
	container.Close()

	container.Logger.Info("Server exited")
}
