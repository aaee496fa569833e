// Package extract turns a free-text request into an untrusted filter candidate.
//
// Extractors never validate: their output goes through filter.Validator like any other
// user input.
package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/metrics"
)

// ErrExtraction is returned when an extractor could not produce a candidate.
var ErrExtraction = errors.New("extract: extraction failed")

// Extractor maps request text onto a filter candidate.
type Extractor interface {
	Extract(ctx context.Context, text string) (filter.Candidate, error)
}

// Named is implemented by extractors that report a metrics label.
type Named interface {
	Name() string
}

func nameOf(e Extractor) string {
	if n, ok := e.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// Fallback tries Primary and falls back to Secondary when Primary fails. Cancellation of
// the caller's context is returned as is.
type Fallback struct {
	Primary   Extractor
	Secondary Extractor
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Name implements Named.
func (f *Fallback) Name() string {
	return nameOf(f.Primary) + "+" + nameOf(f.Secondary)
}

// Extract implements Extractor.
func (f *Fallback) Extract(ctx context.Context, text string) (filter.Candidate, error) {
	c, err := f.Primary.Extract(ctx, text)
	if err == nil {
		f.Metrics.Extraction(nameOf(f.Primary), metrics.OutcomeSuccess)
		return c, nil
	}
	if ctx.Err() != nil {
		return filter.Candidate{}, ctx.Err()
	}

	f.Metrics.Extraction(nameOf(f.Primary), metrics.OutcomeError)
	if f.Logger != nil {
		f.Logger.Warn("extractor failed, falling back",
			"primary", nameOf(f.Primary),
			"secondary", nameOf(f.Secondary),
			"error", err,
		)
	}

	c, err = f.Secondary.Extract(ctx, text)
	if err != nil {
		f.Metrics.Extraction(nameOf(f.Secondary), metrics.OutcomeError)
		return filter.Candidate{}, err
	}
	f.Metrics.Extraction(nameOf(f.Secondary), metrics.OutcomeSuccess)
	return c, nil
}
