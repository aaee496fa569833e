package search

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

const (
	// DefaultLimit is used when Suggest is called with a non-positive limit.
	DefaultLimit = 10
	// MaxLimit caps how many suggestions a single call returns.
	MaxLimit = 50
)

// Suggestion is a vocabulary label that resembles the query.
type Suggestion struct {
	Label    string          `json:"label"`
	Kind     vocabulary.Kind `json:"kind"`
	Category string          `json:"category,omitempty"`
	Score    float64         `json:"score"`
}

// Suggest returns labels resembling q, best first. kind restricts results to genres or tags;
// an empty kind searches both. Ties are broken alphabetically so results are deterministic.
func (v *VocabularyIndex) Suggest(ctx context.Context, q string, kind vocabulary.Kind, limit int) ([]Suggestion, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	req := bleve.NewSearchRequestOptions(buildSuggestQuery(q, kind), limit, 0, false)
	req.Fields = []string{"label", "kind", "category"}
	req.SortBy([]string{"-_score", "label_key"})

	res, err := v.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute suggest: %w", err)
	}

	out := make([]Suggestion, 0, len(res.Hits))
	for _, hit := range res.Hits {
		s := Suggestion{Score: hit.Score}
		if l, ok := hit.Fields["label"].(string); ok {
			s.Label = l
		}
		if k, ok := hit.Fields["kind"].(string); ok {
			s.Kind = vocabulary.Kind(k)
		}
		if c, ok := hit.Fields["category"].(string); ok {
			s.Category = c
		}
		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Label, b.Label)
		}
	})

	return out, nil
}

// buildSuggestQuery matches whole words, the label prefix, and words within a small
// edit distance.
func buildSuggestQuery(q string, kind vocabulary.Kind) query.Query {
	lower := strings.ToLower(q)

	textQueries := []query.Query{}

	match := bleve.NewMatchQuery(q)
	match.SetField("label")
	match.SetBoost(3.0)
	textQueries = append(textQueries, match)

	prefix := bleve.NewPrefixQuery(lower)
	prefix.SetField("label_key")
	prefix.SetBoost(2.0)
	textQueries = append(textQueries, prefix)

	// Fuzzy matching runs on analyzed terms so typos are compared against stems.
	fuzzy := bleve.NewMatchQuery(q)
	fuzzy.SetField("label")
	fuzzy.SetFuzziness(fuzziness(q))
	fuzzy.SetBoost(1.0)
	textQueries = append(textQueries, fuzzy)

	text := bleve.NewDisjunctionQuery(textQueries...)
	if kind == "" {
		return text
	}

	kindQuery := bleve.NewTermQuery(string(kind))
	kindQuery.SetField("kind")
	return bleve.NewConjunctionQuery(text, kindQuery)
}

// fuzziness allows one edit for short queries and two for longer ones.
func fuzziness(q string) int {
	if len([]rune(q)) <= 4 {
		return 1
	}
	return 2
}
