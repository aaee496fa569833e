package providers

import (
	"github.com/samber/do/v2"

	"github.com/osusumeapp/osusume-server/internal/config"
	"github.com/osusumeapp/osusume-server/internal/logger"
	"github.com/osusumeapp/osusume-server/internal/search"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// VocabularyIndexHandle wraps search.VocabularyIndex with Shutdownable.
type VocabularyIndexHandle struct {
	*search.VocabularyIndex
}

// Shutdown implements do.Shutdownable.
func (h *VocabularyIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideVocabulary loads the genre and tag vocabulary. Empty paths use the embedded dataset.
func ProvideVocabulary(i do.Injector) (*vocabulary.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store, err := vocabulary.Load(cfg.Vocabulary.GenresPath, cfg.Vocabulary.TagsPath)
	if err != nil {
		return nil, err
	}

	log.Info("Vocabulary loaded",
		"version", store.Version(),
		"genres", len(store.Genres()),
		"tags", len(store.Tags()),
	)
	return store, nil
}

// ProvideVocabularyIndex builds the in-memory suggestion index.
func ProvideVocabularyIndex(i do.Injector) (*VocabularyIndexHandle, error) {
	store := do.MustInvoke[*vocabulary.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewVocabularyIndex(store, log.Component("search"))
	if err != nil {
		return nil, err
	}
	return &VocabularyIndexHandle{VocabularyIndex: index}, nil
}
