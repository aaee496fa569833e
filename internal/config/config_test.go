package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusumeapp/osusume-server/internal/errors"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://graphql.anilist.co", cfg.Catalog.Endpoint)
	assert.Equal(t, 90, cfg.Catalog.RequestsPerMinute)
	assert.Equal(t, 4, cfg.Profile.Workers)
	assert.Equal(t, 20, cfg.Resolver.DefaultPerPage)
	assert.True(t, cfg.Resolver.InheritFormat)
	assert.False(t, cfg.Resolver.InheritYear)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := Defaults()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errors.ErrConfiguration)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"INFO", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Defaults()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "logger.level")
			}
		})
	}
}

func TestValidate_OpenAIRequiresKey(t *testing.T) {
	cfg := Defaults()
	cfg.Extraction.Provider = ProviderOpenAI

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction.api_key")

	cfg.Extraction.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Ranges(t *testing.T) {
	cfg := Defaults()
	cfg.Profile.Workers = 32
	cfg.Resolver.DefaultPerPage = 9999
	cfg.Catalog.Endpoint = "graphql"

	err := cfg.Validate()
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "profile.workers")
	assert.Contains(t, details, "resolver.default_per_page")
	assert.Contains(t, details, "catalog.endpoint")
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 10*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "osusume.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
app:
  environment: staging
catalog:
  timeout: 4s
  retries: 1
profile:
  workers: 6
resolver:
  inherit_year: true
`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(`
# comment
OSUSUME_PROFILE__WORKERS="2"
OSUSUME_SERVER__CORS_ORIGINS=https://a.example,https://b.example
`), 0o600))

	t.Setenv("OSUSUME_CATALOG__RETRIES", "5")
	t.Setenv("OSUSUME_PROFILE__WORKERS", "")
	require.NoError(t, os.Unsetenv("OSUSUME_PROFILE__WORKERS"))
	t.Setenv("OSUSUME_SERVER__CORS_ORIGINS", "")
	require.NoError(t, os.Unsetenv("OSUSUME_SERVER__CORS_ORIGINS"))

	cfg, err := Load(Options{
		ConfigPath: yamlPath,
		EnvFile:    envPath,
		Overrides:  map[string]any{"app.environment": "production"},
	})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment, "flag override beats yaml")
	assert.Equal(t, 4*time.Second, cfg.Catalog.Timeout, "yaml beats defaults")
	assert.Equal(t, 5, cfg.Catalog.Retries, "env beats yaml")
	assert.Equal(t, 2, cfg.Profile.Workers, ".env beats yaml")
	assert.True(t, cfg.Resolver.InheritYear)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 90, cfg.Catalog.RequestsPerMinute, "untouched defaults survive")
}

func TestLoad_ListsFromEnvironment(t *testing.T) {
	t.Setenv("OSUSUME_SERVER__CORS_ORIGINS", "https://app.example,https://admin.example")
	t.Setenv("OSUSUME_CATALOG__TIMEOUT", "3s")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.example", "https://admin.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.Catalog.Timeout)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(Options{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestLoad_InvalidValueFromEnv(t *testing.T) {
	t.Setenv("OSUSUME_PROFILE__WORKERS", "0")

	_, err := Load(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile.workers")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "catalog.requests_per_minute", envKey("OSUSUME_CATALOG__REQUESTS_PER_MINUTE"))
	assert.Equal(t, "logger.level", envKey("OSUSUME_LOGGER__LEVEL"))
	assert.Empty(t, envKey(ConfigPathEnvVar))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT A PAIR\n"), 0o600))

	err := loadEnvFile(path)
	assert.Error(t, err)
}
