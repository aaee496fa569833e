// Package service orchestrates the recommendation pipeline and vocabulary lookups.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/osusumeapp/osusume-server/internal/catalog"
	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/extract"
	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/id"
	"github.com/osusumeapp/osusume-server/internal/metrics"
	"github.com/osusumeapp/osusume-server/internal/rank"
	"github.com/osusumeapp/osusume-server/internal/resolver"
	"github.com/osusumeapp/osusume-server/internal/validation"
)

// SearchFailedMessage is the only catalog failure text end users see.
const SearchFailedMessage = "could not complete search, please retry"

// Retry defaults.
const (
	DefaultSearchTimeout  = 30 * time.Second
	DefaultInitialBackoff = 250 * time.Millisecond
	DefaultMaxBackoff     = 4 * time.Second
)

// CatalogSearcher runs one catalog query.
type CatalogSearcher interface {
	Search(ctx context.Context, fs filter.FilterSet) (*catalog.Page, error)
}

// FilterResolver turns explicit filters and seed titles into one FilterSet.
type FilterResolver interface {
	Resolve(ctx context.Context, explicit filter.Candidate, seeds []string) (*resolver.Resolution, error)
}

// RecommendationOptions tunes the search stage.
type RecommendationOptions struct {
	// Retries is how many times a retryable catalog failure is retried.
	Retries        int
	SearchTimeout  time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Request is a recommendation request. Text is optional free text; Filters and
// SeedTitles are explicit and win over anything extracted from Text.
type Request struct {
	Text       string           `json:"text,omitempty" validate:"max=2000"`
	Filters    filter.Candidate `json:"filters"`
	SeedTitles []string         `json:"seed_titles,omitempty" validate:"max=20,dive,max=200"`
	Page       *int             `json:"page,omitempty"`
	PerPage    *int             `json:"per_page,omitempty"`
	// Limit caps the number of recommendations returned. Zero means the page size.
	Limit int `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// Resolved is the outcome of the resolution stages.
type Resolved struct {
	RequestID string               `json:"request_id"`
	Filters   filter.FilterSet     `json:"filters"`
	Profile   *domain.TasteProfile `json:"profile,omitempty"`
	Warnings  []string             `json:"warnings"`
}

// Result is a full recommendation response.
type Result struct {
	Resolved
	Headline        string                `json:"headline"`
	Recommendations []rank.Recommendation `json:"recommendations"`
	PageInfo        catalog.PageInfo      `json:"page_info"`
}

// RecommendationService runs extraction, resolution, search and presentation.
type RecommendationService struct {
	extractor extract.Extractor
	resolver  FilterResolver
	catalog   CatalogSearcher
	opts      RecommendationOptions
	validator *validation.Validator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewRecommendationService creates a new recommendation service. A nil extractor ignores
// request text.
func NewRecommendationService(
	extractor extract.Extractor,
	resolver FilterResolver,
	catalog CatalogSearcher,
	opts RecommendationOptions,
	logger *slog.Logger,
	m *metrics.Metrics,
) *RecommendationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	return &RecommendationService{
		extractor: extractor,
		resolver:  resolver,
		catalog:   catalog,
		opts:      opts,
		validator: validation.New(),
		logger:    logger,
		metrics:   m,
	}
}

// ResolveFilters runs extraction and resolution without searching the catalog.
func (s *RecommendationService) ResolveFilters(ctx context.Context, req Request) (*Resolved, error) {
	return s.resolve(ctx, req)
}

// Recommend answers req with ranked catalog items. An empty result is not an error;
// a catalog that stays unavailable after the retries is.
func (s *RecommendationService) Recommend(ctx context.Context, req Request) (*Result, error) {
	resolved, err := s.resolve(ctx, req)
	if err != nil {
		s.metrics.Recommendation(outcomeOf(err))
		return nil, err
	}

	logger := s.logger.With("request_id", resolved.RequestID)

	page, err := s.search(ctx, resolved.Filters, logger)
	if err != nil {
		s.metrics.Recommendation(outcomeOf(err))
		return nil, err
	}

	items := page.Items
	if resolved.Profile != nil {
		items = rank.Exclude(items, resolved.Profile.SeedIDs())
	}
	items = rank.OrderFor(items, resolved.Filters)

	limit := req.Limit
	if limit <= 0 {
		limit = resolved.Filters.PerPage
	}
	items = rank.Truncate(items, limit)

	result := &Result{
		Resolved:        *resolved,
		Headline:        rank.Headline(req.Text, resolved.Filters, len(items)),
		Recommendations: rank.Present(items, resolved.Filters, req.Text),
		PageInfo:        page.PageInfo,
	}

	s.metrics.Recommendation(metrics.OutcomeSuccess)
	logger.Info("recommendations served",
		"count", len(result.Recommendations),
		"catalog_total", page.PageInfo.Total,
		"skipped_records", page.Skipped,
	)

	return result, nil
}

// resolve runs request validation, extraction and the resolver.
func (s *RecommendationService) resolve(ctx context.Context, req Request) (*Resolved, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	requestID, err := id.Generate("req")
	if err != nil {
		return nil, errors.Internal("could not start request").WithCause(err)
	}
	logger := s.logger.With("request_id", requestID)

	var warnings []string
	candidate := req.Filters
	if text := strings.TrimSpace(req.Text); text != "" && s.extractor != nil {
		extracted, err := s.extractor.Extract(ctx, text)
		switch {
		case err == nil:
			candidate = extracted.Override(req.Filters)
		case ctx.Err() != nil:
			return nil, errors.Canceled("request canceled").WithCause(ctx.Err())
		default:
			logger.Warn("request text could not be interpreted", "error", err)
			warnings = append(warnings, "request text could not be interpreted; using explicit filters only")
		}
	}
	if req.Page != nil {
		candidate.Page = req.Page
	}
	if req.PerPage != nil {
		candidate.PerPage = req.PerPage
	}

	res, err := s.resolver.Resolve(ctx, candidate, req.SeedTitles)
	if err != nil {
		var domainErr *errors.Error
		switch {
		case errors.As(err, &domainErr):
			return nil, err
		case ctx.Err() != nil:
			return nil, errors.Canceled("request canceled").WithCause(err)
		default:
			return nil, errors.Internal("could not resolve filters").WithCause(err)
		}
	}

	s.metrics.Repairs(res.Report.Fields())
	warnings = append(warnings, res.Report.Warnings()...)
	if res.Profile != nil {
		for _, title := range res.Profile.Unresolved {
			warnings = append(warnings, "no catalog match for seed title "+quote(title))
		}
	}
	if warnings == nil {
		warnings = []string{}
	}

	return &Resolved{
		RequestID: requestID,
		Filters:   res.Filters,
		Profile:   res.Profile,
		Warnings:  warnings,
	}, nil
}

// search runs one catalog query under the search timeout, retrying retryable failures
// with exponential backoff.
func (s *RecommendationService) search(ctx context.Context, fs filter.FilterSet, logger *slog.Logger) (*catalog.Page, error) {
	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	var page *catalog.Page
	operation := func() error {
		p, err := s.catalog.Search(searchCtx, fs)
		if err != nil {
			if !catalog.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		page = p
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.InitialBackoff
	policy.MaxInterval = s.opts.MaxBackoff
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.opts.Retries)), searchCtx),
		func(err error, wait time.Duration) {
			s.metrics.Retry()
			logger.Warn("catalog search failed, retrying", "error", err, "wait", wait)
		},
	)

	switch {
	case err == nil:
		return page, nil
	case ctx.Err() != nil:
		return nil, errors.Canceled("request canceled").WithCause(err)
	case errors.Is(err, catalog.ErrNotFound):
		// The catalog reports unknown filter values as not found; that is an empty result.
		logger.Info("catalog search matched nothing", "error", err)
		return &catalog.Page{Items: []domain.CatalogItem{}, PageInfo: catalog.PageInfo{CurrentPage: fs.Page, PerPage: fs.PerPage}}, nil
	case errors.Is(err, catalog.ErrRateLimited):
		logger.Error("catalog search rate limited", "error", err)
		return nil, errors.RateLimited(SearchFailedMessage).WithCause(err)
	default:
		logger.Error("catalog search failed", "error", err)
		return nil, errors.CatalogUnavailable(SearchFailedMessage).WithCause(err)
	}
}

func outcomeOf(err error) string {
	switch errors.CodeOf(err) {
	case errors.CodeCanceled:
		return metrics.OutcomeCanceled
	case errors.CodeValidation:
		return metrics.OutcomeRejected
	case errors.CodeRateLimited:
		return metrics.OutcomeRateLimited
	case errors.CodeCatalogUnavailable:
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}

func quote(s string) string {
	return `"` + s + `"`
}
