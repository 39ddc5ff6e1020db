package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"price-oracle-dashboard/internal/cache"
	"price-oracle-dashboard/internal/config"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/mcptools"
	"price-oracle-dashboard/pkg/tracing"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initRedisFunc     = cache.InitRedis
	newViewSourceFunc = func() mcptools.ViewSource {
		return cache.NewViewCache(cache.Client, cache.DefaultViewTTL)
	}
	runStdioFunc = func(ctx context.Context, server *mcp.Server) error {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	listenAndServeFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
	setupSignalNotify  = ossignal.Notify
)

func main() {
	if err := run(); err != nil {
		logger.L().WithComponent("mcp").WithError(err).Error("mcp server failed")
		os.Exit(1)
	}
}

func run() error {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	// stdout carries the protocol on the stdio transport.
	if err := logger.L().Configure(cfg.LogLevel, cfg.LogFormat, logOutput(cfg), cfg.LogMaxAgeDays); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	log := logger.L().WithComponent("mcp")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			stop()
		case <-ctx.Done():
		}
	}()

	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		return err
	}
	server := mcptools.NewServer(newViewSourceFunc(), tracing.Version)

	if cfg.MCPTransport != "http" {
		log.Info("serving MCP over stdio")
		if err := runStdioFunc(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort)
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("serving MCP over streamable HTTP")
		errCh <- listenAndServeFunc(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("mcp server exited")
	return nil
}

func logOutput(cfg *config.Config) string {
	if cfg.LogFile != "" {
		return cfg.LogFile
	}
	return "stderr"
}
