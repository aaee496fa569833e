package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/search"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// VocabularyService exposes the vocabulary and its suggestion index.
type VocabularyService struct {
	store  *vocabulary.Store
	index  *search.VocabularyIndex
	logger *slog.Logger
}

// NewVocabularyService creates a new vocabulary service.
func NewVocabularyService(store *vocabulary.Store, index *search.VocabularyIndex, logger *slog.Logger) *VocabularyService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &VocabularyService{store: store, index: index, logger: logger}
}

// Version returns the loaded dataset version.
func (s *VocabularyService) Version() string {
	return s.store.Version()
}

// Genres returns the official genres.
func (s *VocabularyService) Genres() []string {
	return s.store.Genres()
}

// Tags returns the known tags, optionally limited to one category.
func (s *VocabularyService) Tags(category string) []vocabulary.TagInfo {
	if strings.TrimSpace(category) == "" {
		return s.store.Tags()
	}
	return s.store.TagsInCategory(category)
}

// Suggest returns vocabulary labels close to q. Kind is "genre", "tag" or empty for both.
func (s *VocabularyService) Suggest(ctx context.Context, q, kind string, limit int) ([]search.Suggestion, error) {
	if strings.TrimSpace(q) == "" {
		return nil, errors.Validation("query is required")
	}

	var k vocabulary.Kind
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "":
	case string(vocabulary.KindGenre):
		k = vocabulary.KindGenre
	case string(vocabulary.KindTag):
		k = vocabulary.KindTag
	default:
		return nil, errors.Validationf("unknown kind %q", kind)
	}

	suggestions, err := s.index.Suggest(ctx, q, k, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Canceled("suggest canceled").WithCause(err)
		}
		s.logger.Error("vocabulary suggest failed", "query", q, "error", err)
		return nil, errors.Internal("could not search the vocabulary").WithCause(err)
	}
	return suggestions, nil
}

// Normalization describes how a free-form label maps onto the vocabulary.
type Normalization struct {
	Input string          `json:"input"`
	Kind  vocabulary.Kind `json:"kind"`
	// Labels holds one tag, or one or more genres for combined aliases like "rom-com".
	Labels []string `json:"labels"`
	// Known is false for tags that are not in the dataset.
	Known bool `json:"known"`
}

// Normalize maps label to official genres when it is one, otherwise to a canonical tag.
func (s *VocabularyService) Normalize(label string) (*Normalization, error) {
	if strings.TrimSpace(label) == "" {
		return nil, errors.Validation("label is required")
	}

	if genres := s.store.ResolveGenres(label); len(genres) > 0 {
		return &Normalization{Input: label, Kind: vocabulary.KindGenre, Labels: genres, Known: true}, nil
	}

	tag := s.store.NormalizeTag(label)
	_, known := s.store.Tag(tag)
	return &Normalization{Input: label, Kind: vocabulary.KindTag, Labels: []string{tag}, Known: known}, nil
}
