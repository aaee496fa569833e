// Package config loads layered application configuration: built-in defaults, an optional
// YAML file, a .env file, environment variables and finally command-line flags.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/validation"
)

const (
	// EnvPrefix is the prefix shared by every environment variable the server reads.
	EnvPrefix = "OSUSUME_"
	// ConfigPathEnvVar names the variable holding the optional YAML config path.
	ConfigPathEnvVar = EnvPrefix + "CONFIG"

	// Extraction providers.
	ProviderKeyword = "keyword"
	ProviderOpenAI  = "openai"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig        `koanf:"app"`
	Logger     LoggerConfig     `koanf:"logger"`
	Server     ServerConfig     `koanf:"server"`
	Vocabulary VocabularyConfig `koanf:"vocabulary"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Profile    ProfileConfig    `koanf:"profile"`
	Resolver   ResolverConfig   `koanf:"resolver"`
	Extraction ExtractionConfig `koanf:"extraction"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `koanf:"environment" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=json pretty"`
	// Output is stdout or stderr.
	Output string `koanf:"output" validate:"omitempty,oneof=stdout stderr"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required,numeric"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	// RateLimit is the per-IP request budget per minute on recommendation routes. Zero disables it.
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

// VocabularyConfig points at the genre and tag data files. Empty paths use the embedded dataset.
type VocabularyConfig struct {
	GenresPath string `koanf:"genres_path"`
	TagsPath   string `koanf:"tags_path"`
}

// CatalogConfig configures the AniList client.
type CatalogConfig struct {
	Endpoint          string        `koanf:"endpoint" validate:"required,http_url"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"gte=1"`
	Burst             int           `koanf:"burst" validate:"gte=1"`
	Retries           int           `koanf:"retries" validate:"gte=0,lte=10"`
	SearchTimeout     time.Duration `koanf:"search_timeout" validate:"gt=0"`
	BreakerCooldown   time.Duration `koanf:"breaker_cooldown" validate:"gt=0"`
}

// ProfileConfig tunes taste-profile aggregation.
type ProfileConfig struct {
	Workers       int           `koanf:"workers" validate:"gte=1,lte=8"`
	LookupTimeout time.Duration `koanf:"lookup_timeout" validate:"gt=0"`
	TopGenres     int           `koanf:"top_genres" validate:"gte=0"`
	TopTags       int           `koanf:"top_tags" validate:"gte=0"`
	MinTagRank    int           `koanf:"min_tag_rank" validate:"gte=0,lte=100"`
	SkipSpoilers  bool          `koanf:"skip_spoilers"`
}

// ResolverConfig tunes how explicit and profile filters are merged.
type ResolverConfig struct {
	MaxGenres      int  `koanf:"max_genres" validate:"gte=1"`
	MaxTags        int  `koanf:"max_tags" validate:"gte=1"`
	InheritFormat  bool `koanf:"inherit_format"`
	InheritYear    bool `koanf:"inherit_year"`
	DefaultPerPage int  `koanf:"default_per_page" validate:"gte=1,lte=50"`
}

// ExtractionConfig selects and configures the free-text extraction collaborator.
type ExtractionConfig struct {
	Provider string        `koanf:"provider" validate:"oneof=keyword openai"`
	BaseURL  string        `koanf:"base_url" validate:"required_if=Provider openai,omitempty,http_url"`
	APIKey   string        `koanf:"api_key" validate:"required_if=Provider openai"`
	Model    string        `koanf:"model" validate:"required_if=Provider openai"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Options controls where Load reads from.
type Options struct {
	// ConfigPath is an optional YAML file. Falls back to $OSUSUME_CONFIG.
	ConfigPath string
	// EnvFile is an optional .env file. Missing files are ignored.
	EnvFile string
	// Overrides are koanf paths set last, typically from command-line flags.
	Overrides map[string]any
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Port:           "8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 45 * time.Second,
			CORSOrigins:    []string{"*"},
			RateLimit:      30,
		},
		Catalog: CatalogConfig{
			Endpoint:          "https://graphql.anilist.co",
			Timeout:           10 * time.Second,
			RequestsPerMinute: 90,
			Burst:             5,
			Retries:           3,
			SearchTimeout:     30 * time.Second,
			BreakerCooldown:   30 * time.Second,
		},
		Profile: ProfileConfig{
			Workers:       4,
			LookupTimeout: 8 * time.Second,
			TopGenres:     5,
			TopTags:       5,
		},
		Resolver: ResolverConfig{
			MaxGenres:      6,
			MaxTags:        8,
			InheritFormat:  true,
			DefaultPerPage: 20,
		},
		Extraction: ExtractionConfig{
			Provider: ProviderKeyword,
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  15 * time.Second,
		},
	}
}

// LoadConfig parses command-line flags and loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. YAML config file.
// 5. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	configPath := flag.String("config", "", "Path to a YAML config file")
	envFile := flag.String("env-file", ".env", "Path to .env file")
	environment := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	port := flag.String("port", "", "Server port (default: 8080)")
	provider := flag.String("extractor", "", "Extraction provider (keyword, openai)")

	flag.Parse()

	overrides := map[string]any{}
	setIf := func(path, value string) {
		if value != "" {
			overrides[path] = value
		}
	}
	setIf("app.environment", *environment)
	setIf("logger.level", *logLevel)
	setIf("server.port", *port)
	setIf("extraction.provider", *provider)

	return Load(Options{ConfigPath: *configPath, EnvFile: *envFile, Overrides: overrides})
}

// Load builds a Config from the layered sources described by opts and validates it.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Configurationf("config file %s", path).WithCause(err)
		}
	}

	if opts.EnvFile != "" {
		if err := loadEnvFile(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Configurationf("env file %s", opts.EnvFile).WithCause(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for path, value := range opts.Overrides {
		if err := k.Set(path, value); err != nil {
			return nil, fmt.Errorf("apply override %s: %w", path, err)
		}
	}

	cfg := &Config{}
	// Environment values arrive as strings; lists are comma-separated.
	decode := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", cfg, decode); err != nil {
		return nil, errors.Configuration("configuration could not be decoded").WithCause(err)
	}
	cfg.Logger.Level = strings.ToLower(cfg.Logger.Level)
	cfg.Extraction.Provider = strings.ToLower(cfg.Extraction.Provider)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps OSUSUME_CATALOG__REQUESTS_PER_MINUTE to catalog.requests_per_minute.
// Returning "" makes koanf skip the variable.
func envKey(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Validate checks that all config values are present and in range.
func (c *Config) Validate() error {
	fields := validation.New().Fields(c)

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["logger.level"] = "must be one of: debug info warn error"
	}

	if len(fields) == 0 {
		return nil
	}

	keys := slices.Sorted(maps.Keys(fields))
	return errors.Configuration("invalid configuration: " + strings.Join(keys, ", ")).WithDetails(fields)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments). Variables already set win.
func loadEnvFile(path string) error {
	f, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
