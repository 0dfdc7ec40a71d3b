package main

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/dumpshift/internal/app"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// GetApplicationOptions returns the fx options shared by every command.
func GetApplicationOptions(cfg *config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		logger.Module,
		app.Module,
	}
}

// runWithApp builds the graph, fills targets, starts it, runs fn and stops it again.
// Only the components reachable from targets are constructed.
func runWithApp(ctx context.Context, cfg *config.Config, fn func(ctx context.Context) error, targets ...interface{}) error {
	opts := append(GetApplicationOptions(cfg), fx.Populate(targets...))
	fxApp := fx.New(opts...)
	if err := fxApp.Err(); err != nil {
		return err
	}

	startCtx, cancelStart := context.WithTimeout(ctx, fxApp.StartTimeout())
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), fxApp.StopTimeout())
	defer cancelStop()
	if err := fxApp.Stop(stopCtx); err != nil {
		logger.Warnf("Error while stopping the application: %v", err)
	}
	return runErr
}
