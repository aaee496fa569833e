package api

import (
	"github.com/osusumeapp/osusume-server/internal/service"
)

// BreakerReporter reports the catalog circuit breaker state ("closed", "half-open", "open").
type BreakerReporter interface {
	BreakerState() string
}

// Services groups the business services used by the API server.
type Services struct {
	Recommendation *service.RecommendationService
	Vocabulary     *service.VocabularyService
	// Catalog is optional; without it /health reports the catalog as degraded.
	Catalog BreakerReporter
}
