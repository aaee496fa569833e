package search

import (
	"fmt"
	"log/slog"

	"github.com/blevesearch/bleve/v2"

	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// VocabularyIndex is an in-memory Bleve index over every genre and tag.
//
// Thread safety: the index is built once and only searched afterwards, which Bleve
// supports concurrently.
type VocabularyIndex struct {
	index   bleve.Index
	version string
	logger  *slog.Logger
}

// NewVocabularyIndex indexes the store's entries in memory.
func NewVocabularyIndex(store *vocabulary.Store, logger *slog.Logger) (*VocabularyIndex, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	entries := store.Entries()
	batch := index.NewBatch()
	for _, e := range entries {
		doc := NewDocument(e)
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	logger.Info("built vocabulary index",
		"version", store.Version(),
		"documents", len(entries),
	)

	return &VocabularyIndex{index: index, version: store.Version(), logger: logger}, nil
}

// Version is the vocabulary version the index was built from.
func (v *VocabularyIndex) Version() string { return v.version }

// DocumentCount returns the number of indexed labels.
func (v *VocabularyIndex) DocumentCount() (uint64, error) {
	return v.index.DocCount()
}

// Close releases the index.
func (v *VocabularyIndex) Close() error {
	return v.index.Close()
}
