package api

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/osusumeapp/osusume-server/internal/catalog"
	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/extract"
	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/http/response"
	"github.com/osusumeapp/osusume-server/internal/metrics"
	"github.com/osusumeapp/osusume-server/internal/profile"
	"github.com/osusumeapp/osusume-server/internal/resolver"
	"github.com/osusumeapp/osusume-server/internal/search"
	"github.com/osusumeapp/osusume-server/internal/service"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// fakeCatalog answers seed lookups from titles and searches with items or err.
type fakeCatalog struct {
	mu       sync.Mutex
	titles   map[string]domain.CatalogItem
	items    []domain.CatalogItem
	err      error
	state    string
	searches []filter.FilterSet
}

func (c *fakeCatalog) LookupByTitle(_ context.Context, title string) (*domain.CatalogItem, error) {
	item, ok := c.titles[strings.ToLower(title)]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &item, nil
}

func (c *fakeCatalog) Search(_ context.Context, fs filter.FilterSet) (*catalog.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, fs.Clone())
	if c.err != nil {
		return nil, c.err
	}
	return &catalog.Page{
		Items:    append([]domain.CatalogItem(nil), c.items...),
		PageInfo: catalog.PageInfo{Total: len(c.items), CurrentPage: fs.Page, PerPage: fs.PerPage},
	}, nil
}

func (c *fakeCatalog) BreakerState() string {
	if c.state == "" {
		return "closed"
	}
	return c.state
}

type testServer struct {
	server  *Server
	api     humatest.TestAPI
	catalog *fakeCatalog
	metrics *metrics.Metrics
}

// setupTestServer builds a server on the real vocabulary, resolver and services with an
// in-memory catalog.
func setupTestServer(t *testing.T, cat *fakeCatalog, opts Options) *testServer {
	t.Helper()

	if cat == nil {
		cat = &fakeCatalog{}
	}
	m := metrics.New()
	store := vocabulary.MustLoadDefault()

	index, err := search.NewVocabularyIndex(store, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	aggregator := profile.New(cat, profile.Options{Workers: 2, LookupTimeout: time.Second}, nil, m)
	res := resolver.New(filter.NewValidator(store, nil), aggregator, store, resolver.DefaultOptions(), nil)
	recommendations := service.NewRecommendationService(
		extract.NewKeyword(store), res, cat,
		service.RecommendationOptions{Retries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		nil, m,
	)

	s := NewServer(&Services{
		Recommendation: recommendations,
		Vocabulary:     service.NewVocabularyService(store, index, nil),
		Catalog:        cat,
	}, opts, nil, m)

	return &testServer{
		server:  s,
		api:     humatest.Wrap(t, s.API()),
		catalog: cat,
		metrics: m,
	}
}

// decodeEnvelope unmarshals an envelope and its data into data.
func decodeEnvelope(t *testing.T, body []byte, data any) response.Envelope {
	t.Helper()

	var raw struct {
		response.Envelope
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Envelope
}
