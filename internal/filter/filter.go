// Package filter defines the canonical catalog query (FilterSet) and turns untrusted
// candidates into valid FilterSets, repairing what it can instead of rejecting.
package filter

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/validation"
)

// Bounds on pagination and years.
const (
	MaxPageSize    = 50
	DefaultPerPage = 20
	DefaultPage    = 1
	MinYear        = 1900
)

// FilterSet is a validated catalog query. Absent fields are nil or empty and are left out
// of the remote query entirely. A FilterSet handed to the catalog client must not be
// modified; use Clone to derive a new one.
type FilterSet struct {
	Genres     []string `json:"genres,omitempty" validate:"unique,dive,required"`
	Tags       []string `json:"tags,omitempty" validate:"unique,dive,required"`
	Year       *int     `json:"year,omitempty" validate:"omitempty,gte=1900"`
	Season     Season   `json:"season,omitempty" validate:"omitempty,oneof=WINTER SPRING SUMMER FALL"`
	Format     Format   `json:"format,omitempty" validate:"omitempty,oneof=TV TV_SHORT MOVIE SPECIAL OVA ONA MUSIC"`
	Sort       []Sort   `json:"sort,omitempty" validate:"dive,oneof=POPULARITY_DESC SCORE_DESC TRENDING_DESC FAVOURITES_DESC START_DATE_DESC SEARCH_MATCH"`
	Search     string   `json:"search,omitempty"`
	SeedTitles []string `json:"seed_titles,omitempty" validate:"dive,required"`
	Page       int      `json:"page" validate:"gte=1"`
	PerPage    int      `json:"per_page" validate:"gte=1,lte=50"`
}

// Defaults is the "browse popular" query: pagination only.
func Defaults() FilterSet {
	return FilterSet{Page: DefaultPage, PerPage: DefaultPerPage}
}

// Clone returns a deep copy.
func (f FilterSet) Clone() FilterSet {
	out := f
	out.Genres = slices.Clone(f.Genres)
	out.Tags = slices.Clone(f.Tags)
	out.Sort = slices.Clone(f.Sort)
	out.SeedTitles = slices.Clone(f.SeedTitles)
	if f.Year != nil {
		y := *f.Year
		out.Year = &y
	}
	return out
}

// HasCriteria reports whether anything beyond pagination and sort is set.
func (f FilterSet) HasCriteria() bool {
	return len(f.Genres) > 0 || len(f.Tags) > 0 || f.Year != nil || f.Season != "" ||
		f.Format != "" || f.Search != ""
}

// SortOrDefault returns the sort keys to send to the catalog.
func (f FilterSet) SortOrDefault() []Sort {
	if len(f.Sort) > 0 {
		return f.Sort
	}
	if f.Search != "" {
		return []Sort{SortSearchMatch, SortPopularityDesc}
	}
	return DefaultSort
}

// Vocabulary is what validation needs from the vocabulary store.
type Vocabulary interface {
	IsOfficialGenre(label string) bool
	ResolveGenres(label string) []string
	NormalizeTag(label string) string
}

// Validator repairs candidates into FilterSets.
type Validator struct {
	vocab          Vocabulary
	check          *validation.Validator
	logger         *slog.Logger
	now            func() time.Time
	defaultPerPage int
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the clock used for the year upper bound.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithDefaultPerPage sets the page size used when a candidate has none.
func WithDefaultPerPage(n int) Option {
	return func(v *Validator) {
		if n >= 1 && n <= MaxPageSize {
			v.defaultPerPage = n
		}
	}
}

// NewValidator creates a Validator backed by vocab.
func NewValidator(vocab Vocabulary, logger *slog.Logger, opts ...Option) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	v := &Validator{
		vocab:          vocab,
		check:          validation.New(),
		logger:         logger,
		now:            time.Now,
		defaultPerPage: DefaultPerPage,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// MaxYear is the latest acceptable year: next year, so announced seasons can be queried.
func (v *Validator) MaxYear() int {
	return v.now().Year() + 1
}

// Validate repairs c into a FilterSet. The rules run in order:
//
//  1. genres outside the vocabulary become tags (InvalidGenreError); aliases are mapped
//  2. tags are normalized and de-duplicated; official genres listed as tags move to genres
//  3. a year outside [MinYear, next year] is dropped
//  4. page and per_page are defaulted and clamped to [1, MaxPageSize]
//  5. empty values are omitted
//
// Every repair is logged and listed in the Report. The error is non-nil only if the
// repaired set still breaks an invariant, which indicates a bug.
func (v *Validator) Validate(c Candidate) (FilterSet, *Report, error) {
	report := &Report{}
	fs := FilterSet{}

	var genres, tags []string
	moved := map[string]bool{}

	// 1. Genres.
	for _, raw := range c.Genres {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		resolved := v.vocab.ResolveGenres(raw)
		if len(resolved) == 0 {
			tag := v.vocab.NormalizeTag(raw)
			report.Add(&InvalidGenreError{Genre: raw, Tag: tag})
			v.logger.Warn("genre not in vocabulary, moved to tags", "genre", raw, "tag", tag)
			tags = append(tags, raw)
			continue
		}
		if len(resolved) > 1 || !strings.EqualFold(resolved[0], raw) {
			report.Add(&FieldError{Field: "genres", Value: raw, Reason: "mapped to " + strings.Join(resolved, ", "), Action: ActionNormalized})
		}
		genres = append(genres, resolved...)
	}

	// 2. Tags.
	for _, raw := range append(tags, c.Tags...) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		// Genres and genre aliases are matched on the raw label; NormalizeTag would turn
		// "Sci-Fi" into "Sci Fi".
		if resolved := v.vocab.ResolveGenres(raw); len(resolved) > 0 {
			key := strings.ToLower(strings.Join(resolved, "|"))
			if !moved[key] {
				report.Add(&FieldError{Field: "tags", Value: raw, Reason: "is a genre", Action: ActionMoved})
				v.logger.Warn("genre listed as tag, moved to genres", "tag", raw)
				moved[key] = true
			}
			genres = append(genres, resolved...)
			continue
		}
		if tag := v.vocab.NormalizeTag(raw); tag != "" {
			fs.Tags = append(fs.Tags, tag)
		}
	}
	fs.Genres = unionFold(genres)
	fs.Tags = unionFold(fs.Tags)

	// 3. Year.
	if c.Year != nil {
		year := *c.Year
		if year < MinYear || year > v.MaxYear() {
			report.Add(&FieldError{
				Field:  "year",
				Value:  strconv.Itoa(year),
				Reason: "outside " + strconv.Itoa(MinYear) + "-" + strconv.Itoa(v.MaxYear()),
				Action: ActionDropped,
			})
			v.logger.Warn("year out of range, dropped", "year", year)
		} else {
			fs.Year = &year
		}
	}

	if s := strings.TrimSpace(c.Season); s != "" {
		if season, ok := ParseSeason(s); ok {
			fs.Season = season
		} else {
			report.Add(&FieldError{Field: "season", Value: s, Reason: "unknown season", Action: ActionDropped})
			v.logger.Warn("unknown season, dropped", "season", s)
		}
	}

	if f := strings.TrimSpace(c.Format); f != "" {
		if format, ok := ParseFormat(f); ok {
			fs.Format = format
		} else {
			report.Add(&FieldError{Field: "format", Value: f, Reason: "unknown format", Action: ActionDropped})
			v.logger.Warn("unknown format, dropped", "format", f)
		}
	}

	for _, s := range c.Sort {
		if strings.TrimSpace(s) == "" {
			continue
		}
		sort, ok := ParseSort(s)
		if !ok {
			report.Add(&FieldError{Field: "sort", Value: s, Reason: "unknown sort key", Action: ActionDropped})
			v.logger.Warn("unknown sort key, dropped", "sort", s)
			continue
		}
		if !slices.Contains(fs.Sort, sort) {
			fs.Sort = append(fs.Sort, sort)
		}
	}

	fs.Search = strings.TrimSpace(c.Search)
	fs.SeedTitles = unionFold(c.SeedTitles)

	// 4. Pagination.
	fs.Page = DefaultPage
	if c.Page != nil {
		fs.Page = *c.Page
		if fs.Page < 1 {
			report.Add(&FieldError{Field: "page", Value: strconv.Itoa(*c.Page), Reason: "must be at least 1", Action: ActionClamped})
			v.logger.Warn("page clamped", "page", *c.Page)
			fs.Page = 1
		}
	}

	fs.PerPage = v.defaultPerPage
	if c.PerPage != nil {
		fs.PerPage = *c.PerPage
		switch {
		case fs.PerPage < 1:
			fs.PerPage = 1
		case fs.PerPage > MaxPageSize:
			fs.PerPage = MaxPageSize
		}
		if fs.PerPage != *c.PerPage {
			report.Add(&FieldError{
				Field:  "per_page",
				Value:  strconv.Itoa(*c.PerPage),
				Reason: "clamped to " + strconv.Itoa(fs.PerPage),
				Action: ActionClamped,
			})
			v.logger.Warn("per_page clamped", "per_page", *c.PerPage, "clamped", fs.PerPage)
		}
	}

	// 5. Empty values are already omitted: unionFold returns nil for empty lists.

	if err := v.Check(fs); err != nil {
		return FilterSet{}, report, err
	}
	return fs, report, nil
}

// Check verifies a FilterSet's invariants, including that every genre is official.
func (v *Validator) Check(fs FilterSet) error {
	if err := v.check.Validate(fs); err != nil {
		return errors.Internal("filter set violates its invariants").WithCause(err)
	}
	for _, g := range fs.Genres {
		if !v.vocab.IsOfficialGenre(g) {
			return errors.Internalf("filter set contains unofficial genre %q", g)
		}
	}
	if fs.Year != nil && *fs.Year > v.MaxYear() {
		return errors.Internalf("filter set year %d is after %d", *fs.Year, v.MaxYear())
	}
	return nil
}
