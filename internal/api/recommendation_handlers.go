package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/service"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recommend",
		Method:      http.MethodPost,
		Path:        "/api/v1/recommendations",
		Summary:     "Recommend anime",
		Description: "Interprets free text, explicit filters and example titles, searches the catalog and returns ranked recommendations",
		Tags:        []string{"Recommendations"},
	}, s.handleRecommend)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveFilters",
		Method:      http.MethodPost,
		Path:        "/api/v1/filters/resolve",
		Summary:     "Resolve filters",
		Description: "Returns the filter set a recommendation request would search with, without searching",
		Tags:        []string{"Recommendations"},
	}, s.handleResolveFilters)
}

// === DTOs ===

// RecommendationRequest is the request body shared by both recommendation routes.
type RecommendationRequest struct {
	Text       string           `json:"text,omitempty" maxLength:"2000" doc:"Free-text description of what to watch"`
	Filters    filter.Candidate `json:"filters,omitempty" doc:"Explicit filters; these win over anything read from text"`
	SeedTitles []string         `json:"seed_titles,omitempty" maxItems:"20" doc:"Titles the user already likes"`
	Page       *int             `json:"page,omitempty" doc:"1-based catalog page, values below 1 become 1"`
	PerPage    *int             `json:"per_page,omitempty" doc:"Results per catalog page, clamped to the catalog maximum"`
	Limit      int              `json:"limit,omitempty" minimum:"0" maximum:"50" doc:"Maximum recommendations returned; defaults to per_page"`
}

func (r RecommendationRequest) toService() service.Request {
	return service.Request{
		Text:       r.Text,
		Filters:    r.Filters,
		SeedTitles: r.SeedTitles,
		Page:       r.Page,
		PerPage:    r.PerPage,
		Limit:      r.Limit,
	}
}

// RecommendInput wraps the recommendation request for Huma.
type RecommendInput struct {
	Body RecommendationRequest
}

// RecommendOutput wraps the recommendation response for Huma.
type RecommendOutput struct {
	RequestID string `header:"X-Osusume-Request-Id"`
	Body      *service.Result
}

// ResolveFiltersInput wraps the resolve request for Huma.
type ResolveFiltersInput struct {
	Body RecommendationRequest
}

// ResolveFiltersOutput wraps the resolved filters for Huma.
type ResolveFiltersOutput struct {
	RequestID string `header:"X-Osusume-Request-Id"`
	Body      *service.Resolved
}

// === Handlers ===

func (s *Server) handleRecommend(ctx context.Context, input *RecommendInput) (*RecommendOutput, error) {
	result, err := s.services.Recommendation.Recommend(ctx, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &RecommendOutput{RequestID: result.RequestID, Body: result}, nil
}

func (s *Server) handleResolveFilters(ctx context.Context, input *ResolveFiltersInput) (*ResolveFiltersOutput, error) {
	resolved, err := s.services.Recommendation.ResolveFilters(ctx, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &ResolveFiltersOutput{RequestID: resolved.RequestID, Body: resolved}, nil
}
