package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ec2sshconfig/errors"
	"ec2sshconfig/logger"
)

const (
	packageName = "main"
)

func main() {
	// Initialize logger
	if err := logger.Initialize("info"); err != nil {
		panic(errors.New(errors.ErrConfigParse, "Failed to initialize logger",
			map[string]interface{}{
				"operation": "logger_init",
			}, err))
	}
	defer logger.Sync()

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(defaultDependencies()).ExecuteContext(ctx); err != nil {
		zap.L().Error("Application failed",
			zap.String("package", packageName),
			zap.String("operation", "shutdown"),
			zap.Error(err),
		)
		logger.Sync()
		stop()
		os.Exit(1)
	}
}
