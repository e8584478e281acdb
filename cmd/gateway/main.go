package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"review_gateway/internal/app"
	"review_gateway/internal/config"
	"review_gateway/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	gw, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatalf("Failed to initialize gateway: %v", err)
	}
	if err := gw.Start(ctx); err != nil {
		gw.Close()
		logging.Fatalf("Failed to start gateway: %v", err)
	}

	// Provider calls can take minutes; the write timeout must outlast the
	// request timeout.
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      gw.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logging.Infof("Review gateway listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}

	if err := gw.Close(); err != nil {
		logging.Errorf("Failed to close gateway: %v", err)
	}

	logging.Infof("Server exited")
}
