package providers

import (
	"github.com/samber/do/v2"

	"github.com/osusumeapp/osusume-server/internal/catalog"
	"github.com/osusumeapp/osusume-server/internal/config"
	"github.com/osusumeapp/osusume-server/internal/logger"
	"github.com/osusumeapp/osusume-server/internal/metrics"
)

// CatalogClientHandle wraps catalog.Client with Shutdownable.
type CatalogClientHandle struct {
	*catalog.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCatalogClient provides the rate-limited AniList client.
func ProvideCatalogClient(i do.Injector) (*CatalogClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	client := catalog.New(catalog.Options{
		Endpoint:          cfg.Catalog.Endpoint,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerMinute: cfg.Catalog.RequestsPerMinute,
		Burst:             cfg.Catalog.Burst,
		BreakerCooldown:   cfg.Catalog.BreakerCooldown,
	}, log.Component("catalog"), m)

	log.Info("Catalog client ready",
		"endpoint", cfg.Catalog.Endpoint,
		"requests_per_minute", cfg.Catalog.RequestsPerMinute,
	)
	return &CatalogClientHandle{Client: client}, nil
}
