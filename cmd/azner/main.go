package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/azner/internal/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.GetLogger().WithError(err).Error("azner failed")
		os.Exit(1)
	}
}
