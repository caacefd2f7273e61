package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"marketplace-service/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		app.Logger.Error("Server stopped with error", zap.Error(runErr))
	}
	app.Logger.Info("Server exited")
	if err := app.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to release resources: %v\n", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
