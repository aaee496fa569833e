// Package profile builds a request's taste profile from its seed titles.
package profile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/metrics"
)

// Worker and timeout bounds.
const (
	DefaultWorkers       = 4
	MaxWorkers           = 8
	DefaultLookupTimeout = 8 * time.Second
)

// TitleLookup finds the catalog's best match for a title.
type TitleLookup interface {
	LookupByTitle(ctx context.Context, title string) (*domain.CatalogItem, error)
}

// Options tunes an Aggregator.
type Options struct {
	// Workers caps concurrent lookups; clamped to [1, MaxWorkers].
	Workers       int
	LookupTimeout time.Duration
	// MinTagRank drops tags the catalog ranks below this value.
	MinTagRank int
	// SkipSpoilers drops tags flagged as spoilers for the item.
	SkipSpoilers bool
}

// Aggregator turns seed titles into a TasteProfile.
type Aggregator struct {
	catalog TitleLookup
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Aggregator. logger and m may be nil.
func New(catalog TitleLookup, opts Options, logger *slog.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch {
	case opts.Workers <= 0:
		opts.Workers = DefaultWorkers
	case opts.Workers > MaxWorkers:
		opts.Workers = MaxWorkers
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	return &Aggregator{catalog: catalog, opts: opts, logger: logger, metrics: m}
}

// Build looks up every seed title concurrently and weights each genre and tag by the
// share of resolved seeds carrying it. A seed that is not found, times out or hits a
// catalog error is recorded as unresolved; only cancellation of ctx fails the build.
func (a *Aggregator) Build(ctx context.Context, titles []string) (*domain.TasteProfile, error) {
	titles = dedupe(titles)
	profile := domain.NewTasteProfile()
	if len(titles) == 0 {
		return profile, nil
	}

	items := make([]*domain.CatalogItem, len(titles))

	g := new(errgroup.Group)
	g.SetLimit(a.opts.Workers)

	for i, title := range titles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			lookupCtx, cancel := context.WithTimeout(ctx, a.opts.LookupTimeout)
			defer cancel()

			item, err := a.catalog.LookupByTitle(lookupCtx, title)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.Warn("seed title unresolved", "title", title, "error", err)
				return nil
			}
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Canceled("taste profile lookup canceled").WithCause(err)
	}

	a.aggregate(profile, titles, items)
	a.metrics.Seeds(profile.Resolved(), len(profile.Unresolved))

	a.logger.Debug("taste profile built",
		"seeds", len(titles),
		"resolved", profile.Resolved(),
		"genres", len(profile.GenreWeights),
		"tags", len(profile.TagWeights),
	)

	return profile, nil
}

// aggregate folds the looked-up items into profile in seed order. Two seeds matching
// the same catalog item count once.
func (a *Aggregator) aggregate(profile *domain.TasteProfile, titles []string, items []*domain.CatalogItem) {
	seen := map[int]bool{}
	var resolved []*domain.CatalogItem

	for i, item := range items {
		if item == nil {
			profile.Unresolved = append(profile.Unresolved, titles[i])
			continue
		}
		if seen[item.ID] {
			a.logger.Debug("seed matched an item already counted", "title", titles[i], "id", item.ID)
			continue
		}
		seen[item.ID] = true
		resolved = append(resolved, item)
		profile.Seeds = append(profile.Seeds, domain.ResolvedSeed{
			Query:  titles[i],
			ItemID: item.ID,
			Title:  item.Titles.Display(),
		})
	}

	if len(resolved) == 0 {
		return
	}

	for _, item := range resolved {
		genres := map[string]bool{}
		for _, g := range item.Genres {
			if g = strings.TrimSpace(g); g != "" && !genres[strings.ToLower(g)] {
				genres[strings.ToLower(g)] = true
				profile.GenreWeights[g]++
			}
		}

		tags := map[string]bool{}
		for _, t := range item.Tags {
			name := strings.TrimSpace(t.Name)
			if name == "" || tags[strings.ToLower(name)] {
				continue
			}
			if t.Rank < a.opts.MinTagRank || (a.opts.SkipSpoilers && t.Spoiler) {
				continue
			}
			tags[strings.ToLower(name)] = true
			profile.TagWeights[name]++
			if t.Rank > profile.TagRanks[name] {
				profile.TagRanks[name] = t.Rank
			}
		}
	}

	n := float64(len(resolved))
	for g := range profile.GenreWeights {
		profile.GenreWeights[g] /= n
	}
	for t := range profile.TagWeights {
		profile.TagWeights[t] /= n
	}

	profile.Format = unanimous(resolved, func(i *domain.CatalogItem) string { return i.Format })
	profile.Season = unanimous(resolved, func(i *domain.CatalogItem) string { return i.Season })
	if year := unanimousYear(resolved); year != nil {
		profile.SeasonYear = year
	}
}

// unanimous returns the value every item agrees on, or "".
func unanimous(items []*domain.CatalogItem, field func(*domain.CatalogItem) string) string {
	value := field(items[0])
	for _, item := range items[1:] {
		if field(item) != value {
			return ""
		}
	}
	return value
}

func unanimousYear(items []*domain.CatalogItem) *int {
	first := items[0].SeasonYear
	if first == nil {
		return nil
	}
	for _, item := range items[1:] {
		if item.SeasonYear == nil || *item.SeasonYear != *first {
			return nil
		}
	}
	year := *first
	return &year
}

// dedupe trims titles and drops blanks and case-insensitive repeats, keeping order.
func dedupe(titles []string) []string {
	out := make([]string, 0, len(titles))
	seen := map[string]bool{}
	for _, t := range titles {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
