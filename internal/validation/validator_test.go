package validation_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/validation"
)

type TestRequest struct {
	Text    string   `json:"text" validate:"required,max=20"`
	PerPage int      `json:"per_page" validate:"gte=1,lte=50"`
	Season  string   `json:"season" validate:"omitempty,oneof=WINTER SPRING SUMMER FALL"`
	Genres  []string `json:"genres" validate:"unique"`
}

type nestedConfig struct {
	Catalog struct {
		Endpoint string        `koanf:"endpoint" validate:"required,http_url"`
		Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
	} `koanf:"catalog"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{Text: "cozy comedy", PerPage: 20, Season: "FALL", Genres: []string{"Comedy"}}

	assert.NoError(t, v.Validate(req))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       TestRequest
		wantField string
	}{
		{
			name:      "missing required field",
			req:       TestRequest{PerPage: 20},
			wantField: "text",
		},
		{
			name:      "text too long",
			req:       TestRequest{Text: "this request is far too long", PerPage: 20},
			wantField: "text",
		},
		{
			name:      "per page out of range",
			req:       TestRequest{Text: "ok", PerPage: 9999},
			wantField: "per_page",
		},
		{
			name:      "unknown season",
			req:       TestRequest{Text: "ok", PerPage: 1, Season: "MONSOON"},
			wantField: "season",
		},
		{
			name:      "duplicate genres",
			req:       TestRequest{Text: "ok", PerPage: 1, Genres: []string{"Drama", "Drama"}},
			wantField: "genres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Message, tt.wantField)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(TestRequest{PerPage: 1})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "text")
	assert.NotContains(t, err.Error(), "Text")
}

func TestValidator_FieldsUsesKoanfNamespaces(t *testing.T) {
	v := validation.New()

	var cfg nestedConfig
	cfg.Catalog.Endpoint = "not a url"

	fields := v.Fields(cfg)
	assert.Equal(t, "must be a valid http(s) URL", fields["catalog.endpoint"])
	assert.Equal(t, "must be greater than 0", fields["catalog.timeout"])

	cfg.Catalog.Endpoint = "https://graphql.anilist.co"
	cfg.Catalog.Timeout = time.Second
	assert.Nil(t, v.Fields(cfg))
}
