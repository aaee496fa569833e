// Package resolver merges explicit filters with a seed-derived taste profile into one
// canonical FilterSet.
package resolver

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/filter"
)

// Default caps and profile depth.
const (
	DefaultMaxGenres = 6
	DefaultMaxTags   = 8
	DefaultTopK      = 5
)

// ProfileBuilder builds a taste profile from seed titles.
type ProfileBuilder interface {
	Build(ctx context.Context, titles []string) (*domain.TasteProfile, error)
}

// Vocabulary canonicalizes profile-derived labels.
type Vocabulary interface {
	CanonicalGenre(label string) (string, bool)
	NormalizeTag(label string) string
}

// Options tunes the merge.
type Options struct {
	MaxGenres int
	MaxTags   int
	// TopGenres and TopTags are how many profile entries are considered.
	TopGenres int
	TopTags   int
	// InheritFormat fills an absent format from a unanimous profile hint.
	InheritFormat bool
	// InheritYear fills an absent year and season from unanimous profile hints.
	InheritYear bool
}

// DefaultOptions returns the standard caps with format inheritance on.
func DefaultOptions() Options {
	return Options{
		MaxGenres:     DefaultMaxGenres,
		MaxTags:       DefaultMaxTags,
		TopGenres:     DefaultTopK,
		TopTags:       DefaultTopK,
		InheritFormat: true,
	}
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Filters filter.FilterSet
	// Profile is nil when no seed titles were given.
	Profile *domain.TasteProfile
	Report  *filter.Report
}

// Resolver combines explicit filters, vocabulary repair and profile-derived filters.
type Resolver struct {
	validator *filter.Validator
	profiles  ProfileBuilder
	vocab     Vocabulary
	opts      Options
	logger    *slog.Logger
}

// New creates a Resolver. Zero caps and depths fall back to the defaults.
func New(validator *filter.Validator, profiles ProfileBuilder, vocab Vocabulary, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxGenres <= 0 {
		opts.MaxGenres = DefaultMaxGenres
	}
	if opts.MaxTags <= 0 {
		opts.MaxTags = DefaultMaxTags
	}
	if opts.TopGenres <= 0 {
		opts.TopGenres = DefaultTopK
	}
	if opts.TopTags <= 0 {
		opts.TopTags = DefaultTopK
	}
	return &Resolver{validator: validator, profiles: profiles, vocab: vocab, opts: opts, logger: logger}
}

// Resolve validates explicit, builds a profile from its seed titles followed by seeds, and
// folds the profile's top genres and tags in after the explicit ones. Explicit scalars
// always win; the profile only fills what is absent. With nothing requested at all the
// result is the pagination defaults.
func (r *Resolver) Resolve(ctx context.Context, explicit filter.Candidate, seeds []string) (*Resolution, error) {
	explicit.SeedTitles = append(append([]string(nil), explicit.SeedTitles...), seeds...)

	fs, report, err := r.validator.Validate(explicit)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Filters: fs, Report: report}
	if len(fs.SeedTitles) == 0 {
		r.capFilters(&res.Filters, report)
		if err := r.validator.Check(res.Filters); err != nil {
			return nil, err
		}
		return res, nil
	}

	profile, err := r.profiles.Build(ctx, fs.SeedTitles)
	if err != nil {
		return nil, err
	}
	res.Profile = profile

	r.merge(&res.Filters, profile)
	r.capFilters(&res.Filters, report)

	if err := r.validator.Check(res.Filters); err != nil {
		return nil, err
	}

	r.logger.Debug("filters resolved",
		"genres", res.Filters.Genres,
		"tags", res.Filters.Tags,
		"seeds_resolved", profile.Resolved(),
		"seeds_unresolved", len(profile.Unresolved),
	)

	return res, nil
}

// merge appends profile-derived genres and tags after the explicit ones and fills absent
// scalars from unanimous hints.
func (r *Resolver) merge(fs *filter.FilterSet, profile *domain.TasteProfile) {
	genres := fs.Genres
	for _, w := range profile.TopGenres(r.opts.TopGenres) {
		if g, ok := r.vocab.CanonicalGenre(w.Label); ok {
			genres = append(genres, g)
		} else {
			r.logger.Debug("profile genre outside vocabulary, skipped", "genre", w.Label)
		}
	}
	fs.Genres = foldUnique(genres)

	tags := fs.Tags
	for _, w := range profile.TopTags(r.opts.TopTags) {
		if tag := r.vocab.NormalizeTag(w.Label); tag != "" {
			tags = append(tags, tag)
		}
	}
	fs.Tags = foldUnique(tags)

	if r.opts.InheritFormat && fs.Format == "" && profile.Format != "" {
		if format, ok := filter.ParseFormat(profile.Format); ok {
			fs.Format = format
		}
	}
	if r.opts.InheritYear {
		if fs.Year == nil && profile.SeasonYear != nil {
			year := *profile.SeasonYear
			fs.Year = &year
		}
		if fs.Season == "" && profile.Season != "" {
			if season, ok := filter.ParseSeason(profile.Season); ok {
				fs.Season = season
			}
		}
	}
}

// capFilters truncates genres and tags. Explicit entries come first, so they survive.
func (r *Resolver) capFilters(fs *filter.FilterSet, report *filter.Report) {
	if len(fs.Genres) > r.opts.MaxGenres {
		r.logger.Warn("genres truncated", "count", len(fs.Genres), "cap", r.opts.MaxGenres)
		report.Add(&filter.FieldError{
			Field:  "genres",
			Value:  strings.Join(fs.Genres[r.opts.MaxGenres:], ", "),
			Reason: "more than " + strconv.Itoa(r.opts.MaxGenres) + " genres",
			Action: filter.ActionClamped,
		})
		fs.Genres = fs.Genres[:r.opts.MaxGenres]
	}
	if len(fs.Tags) > r.opts.MaxTags {
		r.logger.Warn("tags truncated", "count", len(fs.Tags), "cap", r.opts.MaxTags)
		report.Add(&filter.FieldError{
			Field:  "tags",
			Value:  strings.Join(fs.Tags[r.opts.MaxTags:], ", "),
			Reason: "more than " + strconv.Itoa(r.opts.MaxTags) + " tags",
			Action: filter.ActionClamped,
		})
		fs.Tags = fs.Tags[:r.opts.MaxTags]
	}
}

// foldUnique drops case-insensitive duplicates, keeping the first spelling and order.
func foldUnique(labels []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range labels {
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
