package domain

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// TasteProfile is the frequency-weighted summary of a request's seed items.
// A weight is the share of resolved seeds carrying the label, in (0, 1].
// Profiles live for a single request.
type TasteProfile struct {
	GenreWeights map[string]float64 `json:"genre_weights"`
	TagWeights   map[string]float64 `json:"tag_weights"`
	// TagRanks is the highest catalog rank seen per tag, used to break weight ties.
	TagRanks map[string]int `json:"-"`

	Seeds      []ResolvedSeed `json:"seeds"`
	Unresolved []string       `json:"unresolved,omitempty"`

	// Hints are set only when every resolved seed agrees.
	Format     string `json:"format,omitempty"`
	Season     string `json:"season,omitempty"`
	SeasonYear *int   `json:"season_year,omitempty"`
}

// ResolvedSeed links a requested seed title to the catalog item it matched.
type ResolvedSeed struct {
	Query  string `json:"query"`
	ItemID int    `json:"item_id"`
	Title  string `json:"title"`
}

// Weight is a ranked profile entry.
type Weight struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
	Rank   int     `json:"rank,omitempty"`
}

// NewTasteProfile returns an empty profile.
func NewTasteProfile() *TasteProfile {
	return &TasteProfile{
		GenreWeights: map[string]float64{},
		TagWeights:   map[string]float64{},
		TagRanks:     map[string]int{},
	}
}

// Resolved is the number of seeds that matched a catalog item.
func (p *TasteProfile) Resolved() int {
	return len(p.Seeds)
}

// Empty reports whether no seed contributed anything.
func (p *TasteProfile) Empty() bool {
	return p == nil || (len(p.GenreWeights) == 0 && len(p.TagWeights) == 0)
}

// SeedIDs returns the catalog ids of resolved seeds.
func (p *TasteProfile) SeedIDs() []int {
	if p == nil {
		return nil
	}
	ids := make([]int, 0, len(p.Seeds))
	for _, s := range p.Seeds {
		ids = append(ids, s.ItemID)
	}
	return ids
}

// TopGenres returns up to k genres by weight desc, then label.
func (p *TasteProfile) TopGenres(k int) []Weight {
	if p == nil {
		return nil
	}
	return top(p.GenreWeights, nil, k)
}

// TopTags returns up to k tags by weight desc, catalog rank desc, then label.
func (p *TasteProfile) TopTags(k int) []Weight {
	if p == nil {
		return nil
	}
	return top(p.TagWeights, p.TagRanks, k)
}

func top(weights map[string]float64, ranks map[string]int, k int) []Weight {
	if k <= 0 || len(weights) == 0 {
		return nil
	}
	out := make([]Weight, 0, len(weights))
	for _, label := range slices.Sorted(maps.Keys(weights)) {
		out = append(out, Weight{Label: label, Weight: weights[label], Rank: ranks[label]})
	}
	slices.SortStableFunc(out, func(a, b Weight) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Rank, a.Rank); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
