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

	"github.com/cogtrail/backend/internal/config"
	"github.com/cogtrail/backend/internal/handler"
	"github.com/cogtrail/backend/internal/handler/mcpsse"
	"github.com/cogtrail/backend/internal/handler/mcpws"
	"github.com/cogtrail/backend/internal/mcp"
	"github.com/cogtrail/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	registry := session.NewRegistry()
	mcpServer := mcp.NewServer(registry)

	sseHandler := mcpsse.New(registry, mcpServer)
	wsHandler := mcpws.New(registry, mcpServer, cfg.CORS.AllowedOrigins)

	reaper := session.NewReaper(registry, cfg.Session.SweepInterval, cfg.Session.IdleTimeout, func(sessionID string) {
		sseHandler.CloseSession(sessionID)
		wsHandler.CloseSession(sessionID)
	})
	go reaper.Run(ctx)
	log.Printf("session reaper running (sweep=%s idle=%s)", cfg.Session.SweepInterval, cfg.Session.IdleTimeout)

	router := handler.NewRouter(sseHandler, wsHandler, registry, cfg.CORS.AllowedOrigins)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("cogtrail backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
