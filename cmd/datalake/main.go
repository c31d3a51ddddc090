package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
)

func main() {
	// Load .env from the working directory if present; real env vars win.
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Default().Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
