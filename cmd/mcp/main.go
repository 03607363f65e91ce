package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	mcpadapter "github.com/kirillkom/game-knowledge-search/internal/adapters/mcp"
	"github.com/kirillkom/game-knowledge-search/internal/bootstrap"
	"github.com/kirillkom/game-knowledge-search/internal/config"
	"github.com/kirillkom/game-knowledge-search/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries the protocol stream.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "mcp", Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.New(app.Search, app.Planner, app.Answer, logger)
	if err := server.ServeStdio(ctx, os.Stdin, os.Stdout, os.Stderr); err != nil && ctx.Err() == nil {
		logger.Error("mcp_serve_failed", "error", err)
	}
}
