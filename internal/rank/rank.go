// Package rank orders catalog results and shapes them for presentation.
package rank

import (
	"cmp"
	"slices"

	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/filter"
)

// OrderFor orders a catalog page for fs. An explicit sort or a title search keeps the
// catalog's order; the default popularity query gets the Order tie-break.
func OrderFor(items []domain.CatalogItem, fs filter.FilterSet) []domain.CatalogItem {
	if len(fs.Sort) > 0 || fs.Search != "" {
		return slices.Clone(items)
	}
	return Order(items)
}

// Order returns items sorted by popularity desc, then average score desc (missing scores
// last), then id asc. The input is not modified.
func Order(items []domain.CatalogItem) []domain.CatalogItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b domain.CatalogItem) int {
		if c := cmp.Compare(b.Popularity, a.Popularity); c != 0 {
			return c
		}
		if c := cmp.Compare(score(b), score(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func score(i domain.CatalogItem) int {
	if i.AverageScore == nil {
		return -1
	}
	return *i.AverageScore
}

// Exclude drops items whose id is in ids, keeping order.
func Exclude(items []domain.CatalogItem, ids []int) []domain.CatalogItem {
	if len(ids) == 0 {
		return items
	}
	out := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if !slices.Contains(ids, item.ID) {
			out = append(out, item)
		}
	}
	return out
}

// Truncate returns at most n items. n <= 0 returns items unchanged.
func Truncate(items []domain.CatalogItem, n int) []domain.CatalogItem {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
