package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/osusumeapp/osusume-server/internal/search"
	"github.com/osusumeapp/osusume-server/internal/service"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

func (s *Server) registerVocabularyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGenres",
		Method:      http.MethodGet,
		Path:        "/api/v1/vocabulary/genres",
		Summary:     "List genres",
		Description: "Returns the official catalog genres",
		Tags:        []string{"Vocabulary"},
	}, s.handleListGenres)

	huma.Register(s.api, huma.Operation{
		OperationID: "listVocabularyTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/vocabulary/tags",
		Summary:     "List tags",
		Description: "Returns known catalog tags, optionally restricted to one category",
		Tags:        []string{"Vocabulary"},
	}, s.handleListVocabularyTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestVocabulary",
		Method:      http.MethodGet,
		Path:        "/api/v1/vocabulary/suggest",
		Summary:     "Suggest labels",
		Description: "Returns genres and tags resembling a partial or misspelled query",
		Tags:        []string{"Vocabulary"},
	}, s.handleSuggestVocabulary)

	huma.Register(s.api, huma.Operation{
		OperationID: "normalizeLabel",
		Method:      http.MethodGet,
		Path:        "/api/v1/vocabulary/normalize",
		Summary:     "Normalize label",
		Description: "Maps a free-form label onto official genres or a canonical tag",
		Tags:        []string{"Vocabulary"},
	}, s.handleNormalizeLabel)
}

// === DTOs ===

// GenresResponse contains the genre list in API responses.
type GenresResponse struct {
	Version string   `json:"version" doc:"Vocabulary dataset version"`
	Genres  []string `json:"genres" doc:"Official genres"`
}

// GenresOutput wraps the genre list for Huma.
type GenresOutput struct {
	Body GenresResponse
}

// ListVocabularyTagsInput contains parameters for listing tags.
type ListVocabularyTagsInput struct {
	Category string `query:"category" doc:"Only tags in this category, e.g. Theme-Action"`
}

// TagsResponse contains the tag list in API responses.
type TagsResponse struct {
	Version string               `json:"version" doc:"Vocabulary dataset version"`
	Tags    []vocabulary.TagInfo `json:"tags" doc:"Known tags"`
}

// TagsOutput wraps the tag list for Huma.
type TagsOutput struct {
	Body TagsResponse
}

// SuggestInput contains parameters for label suggestions.
type SuggestInput struct {
	Query string `query:"q" required:"true" minLength:"1" maxLength:"100" doc:"Partial or misspelled label"`
	Kind  string `query:"kind" enum:"genre,tag" doc:"Restrict to genres or tags"`
	Limit int    `query:"limit" default:"10" minimum:"1" maximum:"50" doc:"Maximum suggestions"`
}

// SuggestResponse contains suggestions in API responses.
type SuggestResponse struct {
	Suggestions []search.Suggestion `json:"suggestions" doc:"Suggestions, best first"`
}

// SuggestOutput wraps suggestions for Huma.
type SuggestOutput struct {
	Body SuggestResponse
}

// NormalizeInput contains the label to normalize.
type NormalizeInput struct {
	Label string `query:"label" required:"true" minLength:"1" maxLength:"200" doc:"Free-form genre or tag label"`
}

// NormalizeOutput wraps the normalization for Huma.
type NormalizeOutput struct {
	Body *service.Normalization
}

// === Handlers ===

func (s *Server) handleListGenres(_ context.Context, _ *struct{}) (*GenresOutput, error) {
	return &GenresOutput{
		Body: GenresResponse{
			Version: s.services.Vocabulary.Version(),
			Genres:  s.services.Vocabulary.Genres(),
		},
	}, nil
}

func (s *Server) handleListVocabularyTags(_ context.Context, input *ListVocabularyTagsInput) (*TagsOutput, error) {
	tags := s.services.Vocabulary.Tags(input.Category)
	if tags == nil {
		tags = []vocabulary.TagInfo{}
	}
	return &TagsOutput{
		Body: TagsResponse{
			Version: s.services.Vocabulary.Version(),
			Tags:    tags,
		},
	}, nil
}

func (s *Server) handleSuggestVocabulary(ctx context.Context, input *SuggestInput) (*SuggestOutput, error) {
	suggestions, err := s.services.Vocabulary.Suggest(ctx, input.Query, input.Kind, input.Limit)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []search.Suggestion{}
	}
	return &SuggestOutput{Body: SuggestResponse{Suggestions: suggestions}}, nil
}

func (s *Server) handleNormalizeLabel(_ context.Context, input *NormalizeInput) (*NormalizeOutput, error) {
	n, err := s.services.Vocabulary.Normalize(input.Label)
	if err != nil {
		return nil, err
	}
	return &NormalizeOutput{Body: n}, nil
}
