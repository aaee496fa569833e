package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusumeapp/osusume-server/internal/catalog"
	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/extract"
	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/metrics"
	"github.com/osusumeapp/osusume-server/internal/profile"
	"github.com/osusumeapp/osusume-server/internal/resolver"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

func intp(v int) *int { return &v }

// stubCatalog serves both seed lookups and searches.
type stubCatalog struct {
	mu       sync.Mutex
	titles   map[string]domain.CatalogItem
	results  []domain.CatalogItem
	failures []error
	searches []filter.FilterSet
}

func (c *stubCatalog) LookupByTitle(ctx context.Context, title string) (*domain.CatalogItem, error) {
	item, ok := c.titles[strings.ToLower(title)]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &item, nil
}

func (c *stubCatalog) Search(ctx context.Context, fs filter.FilterSet) (*catalog.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searches = append(c.searches, fs.Clone())
	if len(c.failures) > 0 {
		err := c.failures[0]
		if len(c.failures) > 1 {
			c.failures = c.failures[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	return &catalog.Page{
		Items:    append([]domain.CatalogItem(nil), c.results...),
		PageInfo: catalog.PageInfo{Total: len(c.results), CurrentPage: fs.Page, PerPage: fs.PerPage},
	}, nil
}

var kOn = domain.CatalogItem{
	ID:         5680,
	Titles:     domain.Titles{Romaji: "K-On!"},
	Genres:     []string{"Comedy", "Music", "Slice of Life"},
	Tags:       []domain.Tag{{Name: "Band", Rank: 95}, {Name: "School Club", Rank: 90}},
	Popularity: 400000,
}

func catalogResults() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: 1, Titles: domain.Titles{English: "Quiet One"}, Genres: []string{"Comedy"}, Popularity: 1000, AverageScore: intp(70)},
		{ID: 21202, Titles: domain.Titles{English: "KONOSUBA"}, Genres: []string{"Comedy", "Fantasy"}, Tags: []domain.Tag{{Name: "Isekai", Rank: 94}}, Popularity: 650000, AverageScore: intp(81)},
		{ID: 5680, Titles: kOn.Titles, Genres: kOn.Genres, Popularity: 400000},
		{ID: 2, Titles: domain.Titles{English: "Middle"}, Genres: []string{"Comedy"}, Popularity: 50000},
	}
}

func newTestService(t *testing.T, cat *stubCatalog, ext extract.Extractor, opts RecommendationOptions) *RecommendationService {
	t.Helper()

	store := vocabulary.MustLoadDefault()
	validator := filter.NewValidator(store, nil)
	aggregator := profile.New(cat, profile.Options{Workers: 2, LookupTimeout: time.Second}, nil, nil)
	res := resolver.New(validator, aggregator, store, resolver.DefaultOptions(), nil)

	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = time.Millisecond
		opts.MaxBackoff = 5 * time.Millisecond
	}
	return NewRecommendationService(ext, res, cat, opts, nil, metrics.New())
}

func TestRecommend_ExplicitFiltersSortedByPopularity(t *testing.T) {
	cat := &stubCatalog{results: catalogResults()}
	svc := newTestService(t, cat, nil, RecommendationOptions{Retries: 1})

	result, err := svc.Recommend(context.Background(), Request{
		Filters: filter.Candidate{Genres: []string{"comedy"}, Tags: []string{"isekai"}},
	})
	require.NoError(t, err)

	require.Len(t, cat.searches, 1)
	assert.Equal(t, []string{"Comedy"}, cat.searches[0].Genres)
	assert.Equal(t, []string{"Isekai"}, cat.searches[0].Tags)

	require.Len(t, result.Recommendations, 4)
	var popularity []int
	for _, r := range result.Recommendations {
		popularity = append(popularity, r.Popularity)
	}
	assert.Equal(t, []int{650000, 400000, 50000, 1000}, popularity)
	assert.True(t, strings.HasPrefix(result.RequestID, "req-"))
	assert.Empty(t, result.Warnings)
	assert.NotNil(t, result.Warnings)
}

func TestRecommend_ExplicitSortKeepsCatalogOrder(t *testing.T) {
	cat := &stubCatalog{results: []domain.CatalogItem{
		{ID: 10, Titles: domain.Titles{English: "Acclaimed"}, Popularity: 100, AverageScore: intp(95)},
		{ID: 11, Titles: domain.Titles{English: "Famous"}, Popularity: 900000, AverageScore: intp(60)},
	}}
	svc := newTestService(t, cat, nil, RecommendationOptions{})

	result, err := svc.Recommend(context.Background(), Request{
		Filters: filter.Candidate{Sort: []string{"SCORE_DESC"}},
	})
	require.NoError(t, err)

	require.Len(t, cat.searches, 1)
	assert.Equal(t, []filter.Sort{filter.SortScoreDesc}, cat.searches[0].Sort)
	var got []int
	for _, r := range result.Recommendations {
		got = append(got, r.ID)
	}
	assert.Equal(t, []int{10, 11}, got)
}

func TestRecommend_TextAndSeeds(t *testing.T) {
	cat := &stubCatalog{
		titles:  map[string]domain.CatalogItem{"k-on!": kOn},
		results: catalogResults(),
	}
	svc := newTestService(t, cat, extract.NewKeyword(vocabulary.MustLoadDefault()), RecommendationOptions{})

	result, err := svc.Recommend(context.Background(), Request{
		Text:  `funny isekai like "K-On!"`,
		Limit: 2,
	})
	require.NoError(t, err)

	fs := result.Filters
	assert.Equal(t, "Comedy", fs.Genres[0], "explicit genres come first")
	assert.Contains(t, fs.Genres, "Music")
	assert.Contains(t, fs.Tags, "Isekai")
	assert.Contains(t, fs.Tags, "Band")

	require.NotNil(t, result.Profile)
	assert.Equal(t, 1, result.Profile.Resolved())

	require.Len(t, result.Recommendations, 2)
	for _, r := range result.Recommendations {
		assert.NotEqual(t, kOn.ID, r.ID, "seed items are excluded")
	}
	assert.Equal(t, 21202, result.Recommendations[0].ID)
	assert.Equal(t, []string{"Comedy"}, result.Recommendations[0].MatchedGenres[:1])
}

func TestRecommend_UnresolvableSeed(t *testing.T) {
	cat := &stubCatalog{results: catalogResults()}
	svc := newTestService(t, cat, nil, RecommendationOptions{})

	result, err := svc.Recommend(context.Background(), Request{SeedTitles: []string{"No Such Show"}})
	require.NoError(t, err)

	require.NotNil(t, result.Profile)
	assert.Equal(t, []string{"No Such Show"}, result.Profile.Unresolved)
	assert.Contains(t, result.Warnings, `no catalog match for seed title "No Such Show"`)
	assert.Len(t, result.Recommendations, 4)
}

func TestRecommend_RetriesThenSucceeds(t *testing.T) {
	cat := &stubCatalog{
		results:  catalogResults(),
		failures: []error{catalog.ErrUnavailable, catalog.ErrTimeout, nil},
	}
	svc := newTestService(t, cat, nil, RecommendationOptions{Retries: 3})

	result, err := svc.Recommend(context.Background(), Request{})
	require.NoError(t, err)
	assert.Len(t, cat.searches, 3)
	assert.Len(t, result.Recommendations, 4)
}

func TestRecommend_CatalogUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		failure  error
		searches int
		sentinel error
	}{
		{name: "retryable exhausts retries", failure: catalog.ErrUnavailable, searches: 3, sentinel: errors.ErrCatalogUnavailable},
		{name: "bad response is not retried", failure: catalog.ErrBadResponse, searches: 1, sentinel: errors.ErrCatalogUnavailable},
		{name: "rate limited", failure: catalog.ErrRateLimited, searches: 3, sentinel: errors.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &stubCatalog{failures: []error{tt.failure}}
			svc := newTestService(t, cat, nil, RecommendationOptions{Retries: 2})

			_, err := svc.Recommend(context.Background(), Request{})
			require.ErrorIs(t, err, tt.sentinel)
			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, SearchFailedMessage, domainErr.Message)
			assert.Len(t, cat.searches, tt.searches)
		})
	}
}

func TestRecommend_NotFoundIsEmpty(t *testing.T) {
	cat := &stubCatalog{failures: []error{catalog.ErrNotFound}}
	svc := newTestService(t, cat, nil, RecommendationOptions{})

	result, err := svc.Recommend(context.Background(), Request{Filters: filter.Candidate{Tags: []string{"Unheard Of"}}})
	require.NoError(t, err)
	assert.Empty(t, result.Recommendations)
	assert.NotNil(t, result.Recommendations)
}

func TestRecommend_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cat := &stubCatalog{failures: []error{context.Canceled}}
	svc := newTestService(t, cat, nil, RecommendationOptions{})

	_, err := svc.Recommend(ctx, Request{})
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestRecommend_RejectsInvalidRequest(t *testing.T) {
	svc := newTestService(t, &stubCatalog{}, nil, RecommendationOptions{})

	_, err := svc.Recommend(context.Background(), Request{Limit: 500})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, text string) (filter.Candidate, error) {
	return filter.Candidate{}, extract.ErrExtraction
}

func TestResolveFilters(t *testing.T) {
	t.Run("nothing requested", func(t *testing.T) {
		svc := newTestService(t, &stubCatalog{}, nil, RecommendationOptions{})

		resolved, err := svc.ResolveFilters(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, filter.Defaults(), resolved.Filters)
		assert.Nil(t, resolved.Profile)
	})

	t.Run("per_page clamped", func(t *testing.T) {
		cat := &stubCatalog{}
		svc := newTestService(t, cat, nil, RecommendationOptions{})

		resolved, err := svc.ResolveFilters(context.Background(), Request{PerPage: intp(9999)})
		require.NoError(t, err)
		assert.Equal(t, filter.MaxPageSize, resolved.Filters.PerPage)
		assert.NotEmpty(t, resolved.Warnings)
		assert.Empty(t, cat.searches, "dry run never searches")
	})

	t.Run("extraction failure keeps explicit filters", func(t *testing.T) {
		svc := newTestService(t, &stubCatalog{}, failingExtractor{}, RecommendationOptions{})

		resolved, err := svc.ResolveFilters(context.Background(), Request{
			Text:    "something cozy",
			Filters: filter.Candidate{Genres: []string{"Drama"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Drama"}, resolved.Filters.Genres)
		assert.Contains(t, resolved.Warnings, "request text could not be interpreted; using explicit filters only")
	})

	t.Run("explicit year beats extracted year", func(t *testing.T) {
		svc := newTestService(t, &stubCatalog{}, extract.NewKeyword(vocabulary.MustLoadDefault()), RecommendationOptions{})

		resolved, err := svc.ResolveFilters(context.Background(), Request{
			Text:    "mecha from 2008",
			Filters: filter.Candidate{Year: intp(2020)},
		})
		require.NoError(t, err)
		require.NotNil(t, resolved.Filters.Year)
		assert.Equal(t, 2020, *resolved.Filters.Year)
		assert.Equal(t, []string{"Mecha"}, resolved.Filters.Genres)
	})
}
