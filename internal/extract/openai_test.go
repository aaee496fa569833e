package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/metrics"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

func newOpenAITest(t *testing.T, status int, content string) (*OpenAI, *chatCompletionRequest) {
	t.Helper()

	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "model overloaded"}}`))
			return
		}
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	o, err := NewOpenAI(OpenAIOptions{BaseURL: server.URL + "/v1/", APIKey: "sk-test"}, vocabulary.MustLoadDefault(), nil)
	require.NoError(t, err)
	return o, &captured
}

func TestOpenAI_Extract(t *testing.T) {
	content := "```json\n{\"genres\": [\"Comedy\"], \"tags\": [\"Isekai\"], \"year\": 2020, \"season\": null, \"mood\": \"cozy\"}\n```"
	o, captured := newOpenAITest(t, http.StatusOK, content)

	c, err := o.Extract(context.Background(), "funny isekai from 2020")
	require.NoError(t, err)

	assert.Equal(t, []string{"Comedy"}, c.Genres)
	assert.Equal(t, []string{"Isekai"}, c.Tags)
	require.NotNil(t, c.Year)
	assert.Equal(t, 2020, *c.Year)
	assert.Empty(t, c.Season)

	assert.Equal(t, defaultOpenAIModel, captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, `"Slice of Life"`)
	assert.Equal(t, "USER_REQUEST: funny isekai from 2020", captured.Messages[1].Content)
	assert.Equal(t, "json_object", captured.ResponseFormat["type"])
}

func TestOpenAI_Errors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		o, _ := newOpenAITest(t, http.StatusServiceUnavailable, "")
		_, err := o.Extract(context.Background(), "comedy")
		require.ErrorIs(t, err, ErrExtraction)
		assert.Contains(t, err.Error(), "model overloaded")
	})

	t.Run("answer without an object", func(t *testing.T) {
		o, _ := newOpenAITest(t, http.StatusOK, "Sorry, I cannot help with that.")
		_, err := o.Extract(context.Background(), "comedy")
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewOpenAI(OpenAIOptions{}, vocabulary.MustLoadDefault(), nil)
		assert.ErrorIs(t, err, ErrExtraction)
	})
}

func TestOpenAI_BlankTextSkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	o, err := NewOpenAI(OpenAIOptions{BaseURL: server.URL, APIKey: "k"}, vocabulary.MustLoadDefault(), nil)
	require.NoError(t, err)

	c, err := o.Extract(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

type stubExtractor struct {
	name  string
	c     filter.Candidate
	err   error
	calls int
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(ctx context.Context, text string) (filter.Candidate, error) {
	s.calls++
	return s.c, s.err
}

func TestFallback(t *testing.T) {
	good := filter.Candidate{Genres: []string{"Drama"}}

	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubExtractor{name: "openai", c: good}
		secondary := &stubExtractor{name: "keyword"}
		f := &Fallback{Primary: primary, Secondary: secondary, Metrics: metrics.New()}

		c, err := f.Extract(context.Background(), "drama")
		require.NoError(t, err)
		assert.Equal(t, good, c)
		assert.Zero(t, secondary.calls)
		assert.Equal(t, "openai+keyword", f.Name())
	})

	t.Run("primary fails", func(t *testing.T) {
		primary := &stubExtractor{name: "openai", err: ErrExtraction}
		secondary := &stubExtractor{name: "keyword", c: good}
		f := &Fallback{Primary: primary, Secondary: secondary}

		c, err := f.Extract(context.Background(), "drama")
		require.NoError(t, err)
		assert.Equal(t, good, c)
		assert.Equal(t, 1, secondary.calls)
	})

	t.Run("caller canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		primary := &stubExtractor{name: "openai", err: errors.New("boom")}
		secondary := &stubExtractor{name: "keyword", c: good}
		f := &Fallback{Primary: primary, Secondary: secondary}

		_, err := f.Extract(ctx, "drama")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, secondary.calls)
	})
}
