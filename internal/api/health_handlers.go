package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// Health statuses.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Version    string                     `json:"version" doc:"API version"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"vocabulary": s.checkVocabulary(),
		"catalog":    s.checkCatalog(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch {
		case c.Status == statusUnhealthy:
			overall = statusUnhealthy
		case c.Status == statusDegraded && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Version:    Version,
			Components: components,
		},
	}, nil
}

// checkVocabulary reports the loaded dataset.
func (s *Server) checkVocabulary() ComponentHealth {
	if s.services == nil || s.services.Vocabulary == nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "vocabulary not loaded"}
	}
	genres := len(s.services.Vocabulary.Genres())
	if genres == 0 {
		return ComponentHealth{Status: statusUnhealthy, Message: "vocabulary has no genres"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Message: "version " + s.services.Vocabulary.Version() + ", " + strconv.Itoa(genres) + " genres",
	}
}

// checkCatalog maps the circuit breaker state onto a health status. Anything but a
// closed breaker is degraded.
func (s *Server) checkCatalog() ComponentHealth {
	if s.services == nil || s.services.Catalog == nil {
		return ComponentHealth{Status: statusDegraded, Message: "catalog not configured"}
	}
	state := s.services.Catalog.BreakerState()
	if state == "closed" {
		return ComponentHealth{Status: statusHealthy, Message: "circuit " + state}
	}
	return ComponentHealth{Status: statusDegraded, Message: "circuit " + state}
}
