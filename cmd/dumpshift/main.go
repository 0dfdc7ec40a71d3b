package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// embeddedConfig is the default configuration; --config replaces it.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Stopping after the current step...", sig)
		cancel()
	}()

	// The .env file may also be given with --env-file.
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	root := NewRootCommand(embeddedConfig, envFilePath)
	err := root.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		if !isReported(err) {
			pterm.Error.Println(err)
		}
		os.Exit(1)
	}
}
