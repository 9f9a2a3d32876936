package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"approval-hub/internal/realtime"
	"approval-hub/internal/store"

	"github.com/caarlos0/env/v11"
)

// Config holds server configuration, loaded from environment variables.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8420"`
	StaticDir       string        `env:"STATIC_DIR"`
	MailboxSize     int           `env:"MAILBOX_SIZE" envDefault:"100"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	// Initialize the session store with its event fan-out.
	st := store.New(cfg.MailboxSize)

	// Initialize the realtime server.
	rtServer := realtime.New(st, cfg.StaticDir)

	// Set up HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: rtServer.Handler(),
	}

	// Graceful shutdown on signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()

	log.Printf("approval-hub server running on http://localhost:%d", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
