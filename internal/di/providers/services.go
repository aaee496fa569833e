package providers

import (
	"github.com/samber/do/v2"

	"github.com/osusumeapp/osusume-server/internal/config"
	"github.com/osusumeapp/osusume-server/internal/extract"
	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/logger"
	"github.com/osusumeapp/osusume-server/internal/metrics"
	"github.com/osusumeapp/osusume-server/internal/profile"
	"github.com/osusumeapp/osusume-server/internal/resolver"
	"github.com/osusumeapp/osusume-server/internal/service"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// ProvideProfileAggregator provides the seed title aggregator.
func ProvideProfileAggregator(i do.Injector) (*profile.Aggregator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	catalogHandle := do.MustInvoke[*CatalogClientHandle](i)

	return profile.New(catalogHandle.Client, profile.Options{
		Workers:       cfg.Profile.Workers,
		LookupTimeout: cfg.Profile.LookupTimeout,
		MinTagRank:    cfg.Profile.MinTagRank,
		SkipSpoilers:  cfg.Profile.SkipSpoilers,
	}, log.Component("profile"), m), nil
}

// ProvideResolver provides the filter resolver.
func ProvideResolver(i do.Injector) (*resolver.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*vocabulary.Store](i)
	aggregator := do.MustInvoke[*profile.Aggregator](i)

	validator := filter.NewValidator(store, log.Component("filter"), filter.WithDefaultPerPage(cfg.Resolver.DefaultPerPage))
	return resolver.New(validator, aggregator, store, resolver.Options{
		MaxGenres:     cfg.Resolver.MaxGenres,
		MaxTags:       cfg.Resolver.MaxTags,
		TopGenres:     cfg.Profile.TopGenres,
		TopTags:       cfg.Profile.TopTags,
		InheritFormat: cfg.Resolver.InheritFormat,
		InheritYear:   cfg.Resolver.InheritYear,
	}, log.Component("resolver")), nil
}

// ProvideExtractor provides the free-text extractor. The OpenAI provider falls back to
// keyword matching when the model fails.
func ProvideExtractor(i do.Injector) (extract.Extractor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	store := do.MustInvoke[*vocabulary.Store](i)

	keyword := extract.NewKeyword(store)
	if cfg.Extraction.Provider != "openai" {
		log.Info("Free-text extraction ready", "extractor", keyword.Name())
		return keyword, nil
	}

	model, err := extract.NewOpenAI(extract.OpenAIOptions{
		BaseURL: cfg.Extraction.BaseURL,
		APIKey:  cfg.Extraction.APIKey,
		Model:   cfg.Extraction.Model,
		Timeout: cfg.Extraction.Timeout,
	}, store, log.Component("extract"))
	if err != nil {
		return nil, err
	}

	fallback := &extract.Fallback{Primary: model, Secondary: keyword, Logger: log.Component("extract"), Metrics: m}
	log.Info("Free-text extraction ready", "extractor", fallback.Name(), "model", cfg.Extraction.Model)
	return fallback, nil
}

// ProvideRecommendationService provides the recommendation pipeline.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	extractor := do.MustInvoke[extract.Extractor](i)
	res := do.MustInvoke[*resolver.Resolver](i)
	catalogHandle := do.MustInvoke[*CatalogClientHandle](i)

	return service.NewRecommendationService(extractor, res, catalogHandle.Client, service.RecommendationOptions{
		Retries:       cfg.Catalog.Retries,
		SearchTimeout: cfg.Catalog.SearchTimeout,
	}, log.Component("recommendation"), m), nil
}

// ProvideVocabularyService provides vocabulary lookups and suggestions.
func ProvideVocabularyService(i do.Injector) (*service.VocabularyService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*vocabulary.Store](i)
	index := do.MustInvoke[*VocabularyIndexHandle](i)

	return service.NewVocabularyService(store, index.VocabularyIndex, log.Component("vocabulary")), nil
}
