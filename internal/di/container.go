// Package di provides dependency injection configuration for the osusume server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/osusumeapp/osusume-server/internal/config"
	"github.com/osusumeapp/osusume-server/internal/di/providers"
	"github.com/osusumeapp/osusume-server/internal/logger"
	"github.com/osusumeapp/osusume-server/internal/metrics"
	"github.com/osusumeapp/osusume-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers. Without opts
// the configuration is read from command-line flags, environment and files.
func NewContainer(opts ...config.Options) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	if len(opts) > 0 {
		do.ProvideValue(injector, opts[0])
	}
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Vocabulary layer
	do.Provide(injector, providers.ProvideVocabulary)
	do.Provide(injector, providers.ProvideVocabularyIndex)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalogClient)

	// Pipeline
	do.Provide(injector, providers.ProvideProfileAggregator)
	do.Provide(injector, providers.ProvideResolver)
	do.Provide(injector, providers.ProvideExtractor)

	// Business services
	do.Provide(injector, providers.ProvideRecommendationService)
	do.Provide(injector, providers.ProvideVocabularyService)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes the services the CLI needs, without the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	if _, err := do.Invoke[*service.VocabularyService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.RecommendationService](injector); err != nil {
		return err
	}
	return nil
}

// Serve bootstraps every service and starts the HTTP server.
func Serve(injector *do.RootScope) error {
	if err := Bootstrap(injector); err != nil {
		return err
	}
	_, err := do.Invoke[*providers.HTTPServerHandle](injector)
	return err
}
