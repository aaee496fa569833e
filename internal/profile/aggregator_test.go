package profile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusumeapp/osusume-server/internal/catalog"
	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/errors"
)

// fakeCatalog serves lookups from a map keyed by lowercased title.
type fakeCatalog struct {
	items map[string]domain.CatalogItem
	// slow titles block until the lookup context ends.
	slow map[string]bool
	fail map[string]error

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeCatalog) LookupByTitle(ctx context.Context, title string) (*domain.CatalogItem, error) {
	f.mu.Lock()
	f.calls = append(f.calls, title)
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	key := strings.ToLower(title)
	if f.slow[key] {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", catalog.ErrTimeout, ctx.Err())
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	item, ok := f.items[key]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &item, nil
}

func intp(v int) *int { return &v }

func newCatalog() *fakeCatalog {
	return &fakeCatalog{items: map[string]domain.CatalogItem{
		"a": {
			ID: 1, Titles: domain.Titles{English: "A"},
			Genres: []string{"Comedy", "Drama"},
			Tags:   []domain.Tag{{Name: "School", Rank: 90}, {Name: "Band", Rank: 60}, {Name: "Twist", Rank: 80, Spoiler: true}},
			Format: "TV", Season: "SPRING", SeasonYear: intp(2009),
		},
		"b": {
			ID: 2, Titles: domain.Titles{Romaji: "B"},
			Genres: []string{"Comedy"},
			Tags:   []domain.Tag{{Name: "School", Rank: 70}, {Name: "Food", Rank: 20}},
			Format: "TV", Season: "FALL", SeasonYear: intp(2009),
		},
	}}
}

func TestBuild_GenreWeights(t *testing.T) {
	agg := New(newCatalog(), Options{}, nil, nil)

	p, err := agg.Build(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"Comedy": 1.0, "Drama": 0.5}, p.GenreWeights)
	assert.InDelta(t, 1.0, p.TagWeights["School"], 1e-9)
	assert.InDelta(t, 0.5, p.TagWeights["Band"], 1e-9)
	assert.Equal(t, 90, p.TagRanks["School"], "rank is the highest seen")
	assert.Equal(t, 2, p.Resolved())
	assert.Empty(t, p.Unresolved)

	top := p.TopGenres(5)
	require.Len(t, top, 2)
	assert.Equal(t, "Comedy", top[0].Label)
}

func TestBuild_Hints(t *testing.T) {
	agg := New(newCatalog(), Options{}, nil, nil)

	p, err := agg.Build(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, "TV", p.Format)
	assert.Empty(t, p.Season, "seeds disagree on season")
	require.NotNil(t, p.SeasonYear)
	assert.Equal(t, 2009, *p.SeasonYear)
}

func TestBuild_TagFilters(t *testing.T) {
	agg := New(newCatalog(), Options{MinTagRank: 50, SkipSpoilers: true}, nil, nil)

	p, err := agg.Build(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	assert.Contains(t, p.TagWeights, "School")
	assert.NotContains(t, p.TagWeights, "Food", "below min rank")
	assert.NotContains(t, p.TagWeights, "Twist", "spoiler")
}

func TestBuild_UnresolvedSeedsAreSkipped(t *testing.T) {
	cat := newCatalog()
	cat.slow = map[string]bool{"slow": true}
	cat.fail = map[string]error{"broken": fmt.Errorf("%w: status 502", catalog.ErrUnavailable)}
	agg := New(cat, Options{LookupTimeout: 20 * time.Millisecond}, nil, nil)

	p, err := agg.Build(context.Background(), []string{"A", "Nonexistent Show", "slow", "broken"})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Resolved())
	assert.Equal(t, []string{"Nonexistent Show", "slow", "broken"}, p.Unresolved)
	assert.Equal(t, map[string]float64{"Comedy": 1.0, "Drama": 1.0}, p.GenreWeights)
}

func TestBuild_AllUnresolved(t *testing.T) {
	agg := New(newCatalog(), Options{}, nil, nil)

	p, err := agg.Build(context.Background(), []string{"nope"})
	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.Equal(t, []string{"nope"}, p.Unresolved)
	assert.Empty(t, p.Format)
}

func TestBuild_DedupesTitlesAndItems(t *testing.T) {
	cat := newCatalog()
	cat.items["a alias"] = cat.items["a"]
	agg := New(cat, Options{}, nil, nil)

	p, err := agg.Build(context.Background(), []string{" A ", "a", "", "A alias"})
	require.NoError(t, err)

	assert.Len(t, cat.calls, 2, "title duplicates are looked up once")
	assert.Equal(t, 1, p.Resolved(), "two titles matching one item count once")
	assert.InDelta(t, 1.0, p.GenreWeights["Drama"], 1e-9)
}

func TestBuild_Empty(t *testing.T) {
	agg := New(newCatalog(), Options{}, nil, nil)

	p, err := agg.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.Zero(t, p.Resolved())
}

func TestBuild_WorkerLimit(t *testing.T) {
	cat := newCatalog()
	cat.delay = 20 * time.Millisecond
	agg := New(cat, Options{Workers: 2}, nil, nil)

	titles := []string{"t1", "t2", "t3", "t4", "t5", "t6"}
	_, err := agg.Build(context.Background(), titles)
	require.NoError(t, err)

	assert.LessOrEqual(t, cat.maxSeen.Load(), int32(2))
	assert.Len(t, cat.calls, len(titles))
}

func TestBuild_ParentCancellation(t *testing.T) {
	cat := newCatalog()
	cat.delay = time.Second
	agg := New(cat, Options{}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := agg.Build(ctx, []string{"A", "B"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestNew_ClampsWorkers(t *testing.T) {
	assert.Equal(t, DefaultWorkers, New(nil, Options{}, nil, nil).opts.Workers)
	assert.Equal(t, MaxWorkers, New(nil, Options{Workers: 64}, nil, nil).opts.Workers)
	assert.Equal(t, DefaultLookupTimeout, New(nil, Options{}, nil, nil).opts.LookupTimeout)
}
