package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"hostelcare/internal/backend"
	"hostelcare/internal/broadcast"
	"hostelcare/internal/cache"
	"hostelcare/internal/config"
	internalhttp "hostelcare/internal/http"
	"hostelcare/internal/identity"
	"hostelcare/internal/manager"
	"hostelcare/internal/resolver"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := cache.Open(cfg.CachePath, logger)
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	notifier := broadcast.New(logger)
	defer notifier.Close()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		notifier.AttachRedis(ctx, client, cfg.RedisChannel)
	}

	backendClient := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	hub := identity.NewHub()

	mgr := manager.New(manager.Options{
		Resolver: resolver.New(backendClient, store, logger),
		Cache:    store,
		Hub:      hub,
		Saver:    backendClient,
		Policy: identity.Policy{
			StudentDomains: cfg.StudentEmailDomains,
			AdminDomain:    cfg.AdminEmailDomain,
		},
		Notifier: notifier,
		Logger:   logger,
	})
	mgr.Start()
	defer mgr.Stop()

	server := internalhttp.NewServer(cfg, mgr)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("agent listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
