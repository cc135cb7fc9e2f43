package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/leonardcser/train-mcp/internal/cache"
	"github.com/leonardcser/train-mcp/internal/config"
	"github.com/leonardcser/train-mcp/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		panic(err)
	}

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755)
	_ = os.Remove(cfg.SocketPath)

	l, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		logger.Errorf("Failed to listen on %s: %v", cfg.SocketPath, err)
		panic(err)
	}
	_ = os.Chmod(cfg.SocketPath, 0o600)

	kv, closeKV, err := openKV(cfg)
	if err != nil {
		logger.Errorf("Failed to open cache store: %v", err)
		panic(err)
	}
	defer closeKV()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, kv, cfg.SweepInterval)

	logger.Infof("Cache daemon listening on %s", cfg.SocketPath)
	if err := cache.Serve(ctx, l, kv); err != nil {
		logger.Errorf("cache daemon error: %v", err)
	}
	logger.Infof("Cache daemon stopped")
}

func openKV(cfg config.Config) (cache.KV, func(), error) {
	if cfg.InMemory() {
		logger.Infof("Using in-memory cache store")
		return cache.NewMemoryKV(cache.Options{DefaultTTL: cfg.CacheTTL}), func() {}, nil
	}
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	store, err := cache.Open(cfg.DBPath, cache.StoreOptions{Bucket: "trains", DefaultTTL: cfg.CacheTTL})
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("Using cache store at %s", cfg.DBPath)
	return store, func() { _ = store.Close() }, nil
}

// sweepLoop evicts expired entries so keys that are never read again do not accumulate.
func sweepLoop(ctx context.Context, kv cache.KV, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := kv.Sweep()
			if err != nil {
				logger.Warnf("Sweep failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("Swept %d expired entries", n)
			}
		}
	}
}
