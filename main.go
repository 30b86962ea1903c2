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

	"github.com/joho/godotenv"

	"github.com/aaronzipp/battleship/internal/config"
	"github.com/aaronzipp/battleship/internal/events"
	"github.com/aaronzipp/battleship/internal/handlers"
	"github.com/aaronzipp/battleship/internal/protocol"
	"github.com/aaronzipp/battleship/internal/store"
	"github.com/aaronzipp/battleship/internal/telemetry"
)

const (
	serviceName     = "battleship"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal("Failed to load .env:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Environment, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal("Failed to set up tracing:", err)
	}

	registry := store.NewRegistry()
	hub := events.NewHub()
	hub.Debug = cfg.Debug
	dispatcher := protocol.NewServer(registry, hub, cfg.ReconnectGrace)
	dispatcher.Debug = cfg.Debug

	runCtx, cancelRun := context.WithCancel(context.Background())
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(runCtx)
	}()

	app := handlers.New(cfg, registry, hub, dispatcher)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on http://localhost%s (environment=%s, client=%s)", cfg.Addr(), cfg.Environment, cfg.ClientURL)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	hub.CloseAll()
	cancelRun()
	<-dispatcherDone
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Trace shutdown: %v", err)
	}
	log.Printf("Server stopped")
}
