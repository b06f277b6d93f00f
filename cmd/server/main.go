package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/talent-bridge/internal/activecampaign"
	"github.com/ignite/talent-bridge/internal/api"
	"github.com/ignite/talent-bridge/internal/config"
	"github.com/ignite/talent-bridge/internal/importer"
	"github.com/ignite/talent-bridge/internal/pkg/logger"
	"github.com/ignite/talent-bridge/internal/vincere"

	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		logger.Error("pre-flight check failed", "err", err.Error())
		os.Exit(1)
	}

	// Stores: Redis when configured, in-process otherwise.
	var (
		jobStore   importer.JobStore
		tokenStore vincere.TokenStore
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("redis unreachable", "addr", cfg.Redis.Addr, "err", err.Error())
			os.Exit(1)
		}
		cancel()
		jobStore = importer.NewRedisJobStore(rdb)
		tokenStore = vincere.NewRedisTokenStore(rdb)
		logger.Info("using redis-backed job and token stores", "addr", cfg.Redis.Addr)
	} else {
		jobStore = importer.NewMemoryJobStore()
		tokenStore = vincere.NewMemoryTokenStore()
		logger.Info("using in-memory job and token stores")
	}

	// Seed refresh tokens from config so first runs can bootstrap auth.
	seedCtx := context.Background()
	for ownerKey, refreshToken := range cfg.Vincere.RefreshTokens {
		existing, err := tokenStore.Get(seedCtx, ownerKey)
		if err == nil && existing.RefreshToken != "" {
			continue // never clobber a rotated token with the config seed
		}
		if err := tokenStore.Put(seedCtx, ownerKey, vincere.Credentials{RefreshToken: refreshToken}); err != nil {
			logger.Error("failed to seed refresh token", "owner", ownerKey, "err", err.Error())
		}
	}

	guard := vincere.NewAuthGuard(tokenStore, cfg.Vincere.ClientID, cfg.Vincere.ClientSecret, cfg.Vincere.TokenURL)
	vinClient := vincere.NewClient(cfg.Vincere, guard)
	acClient := activecampaign.NewClient(cfg.ActiveCampaign)

	pipeline := importer.New(vinClient, acClient, jobStore, cfg.Importer)
	imports := api.NewImportHandlers(pipeline, jobStore)
	server := api.NewServer(cfg.Server, imports)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err.Error())
			os.Exit(1)
		}
	}()

	// Graceful shutdown: in-flight import pipelines are detached and
	// keep running until the process exits.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err.Error())
	}
}
