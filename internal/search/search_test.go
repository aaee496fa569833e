package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// setupTestIndex builds an index over the embedded vocabulary.
func setupTestIndex(t *testing.T) *VocabularyIndex {
	t.Helper()

	index, err := NewVocabularyIndex(vocabulary.MustLoadDefault(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func labels(suggestions []Suggestion) []string {
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, s.Label)
	}
	return out
}

func TestNewVocabularyIndex(t *testing.T) {
	store := vocabulary.MustLoadDefault()
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(store.Entries())), count)
	assert.Equal(t, store.Version(), index.Version())
}

func TestSuggest_ExactWordRanksFirst(t *testing.T) {
	index := setupTestIndex(t)

	got, err := index.Suggest(context.Background(), "comedy", vocabulary.KindGenre, 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Comedy", got[0].Label)
	assert.Equal(t, vocabulary.KindGenre, got[0].Kind)
}

func TestSuggest_Typos(t *testing.T) {
	index := setupTestIndex(t)

	tests := []struct {
		query string
		kind  vocabulary.Kind
		want  string
	}{
		{query: "isekia", kind: vocabulary.KindTag, want: "Isekai"},
		{query: "fantsy", kind: vocabulary.KindGenre, want: "Fantasy"},
		{query: "psycological", kind: vocabulary.KindGenre, want: "Psychological"},
		{query: "vampyre", kind: vocabulary.KindTag, want: "Vampire"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := index.Suggest(context.Background(), tt.query, tt.kind, 10)
			require.NoError(t, err)
			assert.Contains(t, labels(got), tt.want)
		})
	}
}

func TestSuggest_Prefix(t *testing.T) {
	index := setupTestIndex(t)

	got, err := index.Suggest(context.Background(), "school", vocabulary.KindTag, 10)
	require.NoError(t, err)
	assert.Contains(t, labels(got), "School Life")
	assert.Contains(t, labels(got), "School Club")
	for _, s := range got {
		assert.Equal(t, vocabulary.KindTag, s.Kind)
	}
}

func TestSuggest_KindFilter(t *testing.T) {
	index := setupTestIndex(t)

	genres, err := index.Suggest(context.Background(), "music", vocabulary.KindGenre, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Music"}, labels(genres))

	both, err := index.Suggest(context.Background(), "music", "", 20)
	require.NoError(t, err)
	assert.Contains(t, labels(both), "Music")
	assert.Contains(t, labels(both), "Classical Music")
}

func TestSuggest_Deterministic(t *testing.T) {
	index := setupTestIndex(t)

	first, err := index.Suggest(context.Background(), "time", "", 10)
	require.NoError(t, err)
	for range 5 {
		again, err := index.Suggest(context.Background(), "time", "", 10)
		require.NoError(t, err)
		assert.Equal(t, labels(first), labels(again))
	}

	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
}

func TestSuggest_EmptyAndLimits(t *testing.T) {
	index := setupTestIndex(t)

	got, err := index.Suggest(context.Background(), "   ", "", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = index.Suggest(context.Background(), "a", "", 1000)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), MaxLimit)

	got, err = index.Suggest(context.Background(), "action", "", 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), DefaultLimit)
}

func TestDocument_ToMap(t *testing.T) {
	doc := NewDocument(vocabulary.Entry{Label: "School Life", Kind: vocabulary.KindTag, Category: "Theme-Slice of Life"})

	assert.Equal(t, "tag:school-life", doc.ID)
	m := doc.ToMap()
	assert.Equal(t, "school life", m["label_key"])
	assert.Equal(t, "tag", m["kind"])
	assert.Equal(t, "Theme-Slice of Life", m["category"])
}
