// Package main provides the entry point for the osusume HTTP server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/osusumeapp/osusume-server/internal/di"
	"github.com/osusumeapp/osusume-server/internal/logger"
)

func main() {
	// Create DI container; configuration comes from flags, environment and files
	injector := di.NewContainer()

	// Bootstrap all services and start listening
	if err := di.Serve(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The DI container shuts services down in reverse dependency order: the HTTP server
	// drains first, then the catalog client and the vocabulary index.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Bye")
}
