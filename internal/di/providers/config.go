// Package providers contains dependency injection providers for the osusume server.
package providers

import (
	"io"
	"os"

	"github.com/samber/do/v2"

	"github.com/osusumeapp/osusume-server/internal/config"
	"github.com/osusumeapp/osusume-server/internal/logger"
	"github.com/osusumeapp/osusume-server/internal/metrics"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	opts, err := do.Invoke[config.Options](i)
	if err != nil {
		return config.LoadConfig()
	}
	return config.Load(opts)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	var out io.Writer = os.Stdout
	if cfg.Logger.Output == "stderr" {
		out = os.Stderr
	}

	log := logger.New(logger.Config{
		Writer:      out,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting osusume",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"catalog", cfg.Catalog.Endpoint,
		"extraction", cfg.Extraction.Provider,
	)

	return log, nil
}

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}
