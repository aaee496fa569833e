// Package vocabulary holds the closed set of catalog genres and the open set of known tags.
//
// A Store is loaded once at start-up and is read-only afterwards, so it is safe to share
// between requests without locking.
package vocabulary

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/osusumeapp/osusume-server/internal/errors"
)

//go:embed data/genres.json data/tags.json
var defaultData embed.FS

const (
	defaultGenresFile = "data/genres.json"
	defaultTagsFile   = "data/tags.json"
)

// ErrConfiguration is returned when a vocabulary file is missing or malformed.
// It matches errors.ErrConfiguration.
var ErrConfiguration = errors.Configuration("vocabulary is missing or malformed")

// Kind distinguishes genres from tags.
type Kind string

// Vocabulary kinds.
const (
	KindGenre Kind = "genre"
	KindTag   Kind = "tag"
)

// Entry is a single vocabulary label.
type Entry struct {
	Label    string `json:"label"`
	Kind     Kind   `json:"kind"`
	Category string `json:"category,omitempty"`
}

// TagInfo describes a known tag.
type TagInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Adult       bool   `json:"adult,omitempty"`
	// Rank is an optional default relevance (0-100).
	Rank *int `json:"rank,omitempty"`
}

// Store is the loaded vocabulary.
type Store struct {
	version     string
	genres      []string
	genreByKey  map[string]string // lowercased label -> label
	genreBySlug map[string]string
	tags        []TagInfo
	tagBySlug   map[string]int
}

// Load reads the genre and tag files. An empty path selects the embedded default dataset.
// Any failure is fatal for the caller and matches ErrConfiguration.
func Load(genresPath, tagsPath string) (*Store, error) {
	genreData, err := readFile(genresPath, defaultGenresFile)
	if err != nil {
		return nil, err
	}
	tagData, err := readFile(tagsPath, defaultTagsFile)
	if err != nil {
		return nil, err
	}

	genreVersion, genres, err := parseGenres(genreData)
	if err != nil {
		return nil, loadError(genresPath, defaultGenresFile, err)
	}
	tagVersion, tags, err := parseTags(tagData)
	if err != nil {
		return nil, loadError(tagsPath, defaultTagsFile, err)
	}

	version := genreVersion
	if version == "" {
		version = tagVersion
	}
	if version == "" {
		version = "unversioned"
	}

	return New(version, genres, tags)
}

// MustLoadDefault loads the embedded dataset and panics on failure. Intended for tests.
func MustLoadDefault() *Store {
	s, err := Load("", "")
	if err != nil {
		panic(err)
	}
	return s
}

// New builds a Store from in-memory data. Duplicate labels (by slug) keep their first spelling.
func New(version string, genres []string, tags []TagInfo) (*Store, error) {
	s := &Store{
		version:     version,
		genreByKey:  make(map[string]string, len(genres)),
		genreBySlug: make(map[string]string, len(genres)),
		tagBySlug:   make(map[string]int, len(tags)),
	}

	for _, g := range genres {
		g = strings.TrimSpace(g)
		slug := Slugify(g)
		if slug == "" {
			return nil, fmt.Errorf("%w: empty genre label", ErrConfiguration)
		}
		if _, dup := s.genreBySlug[slug]; dup {
			continue
		}
		s.genres = append(s.genres, g)
		s.genreByKey[strings.ToLower(g)] = g
		s.genreBySlug[slug] = g
	}
	if len(s.genres) == 0 {
		return nil, fmt.Errorf("%w: genre list is empty", ErrConfiguration)
	}

	for _, t := range tags {
		t.Name = strings.TrimSpace(t.Name)
		slug := Slugify(t.Name)
		if slug == "" {
			return nil, fmt.Errorf("%w: tag without a name", ErrConfiguration)
		}
		if _, dup := s.tagBySlug[slug]; dup {
			continue
		}
		s.tagBySlug[slug] = len(s.tags)
		s.tags = append(s.tags, t)
	}

	return s, nil
}

// Version identifies the loaded dataset.
func (s *Store) Version() string { return s.version }

// Genres returns the official genres in dataset order.
func (s *Store) Genres() []string {
	return append([]string(nil), s.genres...)
}

// Tags returns the known tags in dataset order.
func (s *Store) Tags() []TagInfo {
	return append([]TagInfo(nil), s.tags...)
}

// TagsInCategory returns known tags whose category equals or starts with category
// (case-insensitive). "theme" matches "Theme-Fantasy". An empty category returns every tag.
func (s *Store) TagsInCategory(category string) []TagInfo {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return s.Tags()
	}
	var out []TagInfo
	for _, t := range s.tags {
		if strings.HasPrefix(strings.ToLower(t.Category), category) {
			out = append(out, t)
		}
	}
	return out
}

// Entries returns every genre and tag as a flat list.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.genres)+len(s.tags))
	for _, g := range s.genres {
		out = append(out, Entry{Label: g, Kind: KindGenre})
	}
	for _, t := range s.tags {
		out = append(out, Entry{Label: t.Name, Kind: KindTag, Category: t.Category})
	}
	return out
}

// IsOfficialGenre reports whether label is an official genre. Matching is case-insensitive
// and exact; use CanonicalGenre for alias and punctuation tolerant lookups.
func (s *Store) IsOfficialGenre(label string) bool {
	_, ok := s.genreByKey[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// CanonicalGenre returns the official spelling of label, following slugs and aliases.
// "sci fi" -> "Sci-Fi", "magical girl" -> "Mahou Shoujo". Multi-genre aliases return their
// first genre; use ResolveGenres to get all of them.
func (s *Store) CanonicalGenre(label string) (string, bool) {
	genres := s.ResolveGenres(label)
	if len(genres) == 0 {
		return "", false
	}
	return genres[0], true
}

// ResolveGenres maps label onto one or more official genres, or nil when it is not a genre.
func (s *Store) ResolveGenres(label string) []string {
	if g, ok := s.genreByKey[strings.ToLower(strings.TrimSpace(label))]; ok {
		return []string{g}
	}
	slug := Slugify(label)
	if g, ok := s.genreBySlug[slug]; ok {
		return []string{g}
	}
	aliases, ok := genreAliases[slug]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if g, ok := s.genreBySlug[Slugify(a)]; ok {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Tag looks up a known tag, tolerating case, hyphen and underscore differences.
func (s *Store) Tag(label string) (TagInfo, bool) {
	i, ok := s.tagBySlug[Slugify(strings.Join(tokens(label), " "))]
	if !ok {
		return TagInfo{}, false
	}
	return s.tags[i], true
}

// NormalizeTag canonicalizes a free-form tag. Known tags get the dataset spelling
// ("cgi" -> "CGI"); anything else is title-cased word by word with hyphens and underscores
// treated as spaces ("school-life" -> "School Life"). Tags are never rejected. The result of
// NormalizeTag is a fixed point: NormalizeTag(NormalizeTag(x)) == NormalizeTag(x).
func (s *Store) NormalizeTag(label string) string {
	words := tokens(label)
	if len(words) == 0 {
		return ""
	}
	if t, ok := s.Tag(label); ok {
		return t.Name
	}

	// Casers carry state, so each call gets its own.
	caser := cases.Title(language.Und)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	titled := strings.Join(words, " ")

	// Title casing can change the slug for some scripts; keep the result stable.
	if t, ok := s.Tag(titled); ok {
		return t.Name
	}
	return titled
}

func readFile(path, embedded string) ([]byte, error) {
	if path == "" {
		data, err := defaultData.ReadFile(embedded)
		if err != nil {
			return nil, fmt.Errorf("%w: embedded %s: %v", ErrConfiguration, embedded, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) //#nosec G304 -- vocabulary path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfiguration, path, err)
	}
	return data, nil
}

func loadError(path, embedded string, err error) error {
	if path == "" {
		path = "embedded " + embedded
	}
	return fmt.Errorf("%w: %s: %v", ErrConfiguration, path, err)
}

type genreFile struct {
	Version string   `json:"version"`
	Genres  []string `json:"genres"`
}

type tagFile struct {
	Version string            `json:"version"`
	Tags    []json.RawMessage `json:"tags"`
}

func parseGenres(data []byte) (string, []string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, errors.New("file is empty")
	}
	if data[0] == '[' {
		var genres []string
		if err := json.Unmarshal(data, &genres); err != nil {
			return "", nil, err
		}
		return "", genres, nil
	}
	var f genreFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", nil, err
	}
	return f.Version, f.Genres, nil
}

func parseTags(data []byte) (string, []TagInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, errors.New("file is empty")
	}

	var (
		version string
		raw     []json.RawMessage
	)
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return "", nil, err
		}
	} else {
		var f tagFile
		if err := json.Unmarshal(data, &f); err != nil {
			return "", nil, err
		}
		version, raw = f.Version, f.Tags
	}

	tags := make([]TagInfo, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) > 0 && r[0] == '"' {
			var name string
			if err := json.Unmarshal(r, &name); err != nil {
				return "", nil, fmt.Errorf("tag %d: %w", i, err)
			}
			tags = append(tags, TagInfo{Name: name})
			continue
		}
		var t TagInfo
		if err := json.Unmarshal(r, &t); err != nil {
			return "", nil, fmt.Errorf("tag %d: %w", i, err)
		}
		tags = append(tags, t)
	}
	return version, tags, nil
}
