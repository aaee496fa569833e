// Package search provides fuzzy lookups over the vocabulary using an in-memory Bleve index.
// It backs "did you mean" suggestions for genres and tags.
package search

import (
	"strings"

	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// Document is one vocabulary label as stored in the index.
type Document struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Kind     vocabulary.Kind `json:"kind"`
	Category string          `json:"category,omitempty"`
}

// NewDocument builds the index document for a vocabulary entry.
func NewDocument(e vocabulary.Entry) *Document {
	return &Document{
		ID:       string(e.Kind) + ":" + vocabulary.Slugify(e.Label),
		Label:    e.Label,
		Kind:     e.Kind,
		Category: e.Category,
	}
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"label":     d.Label,
		"label_key": strings.ToLower(d.Label),
		"kind":      string(d.Kind),
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	return m
}
