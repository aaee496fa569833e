package catalog

import (
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/osusumeapp/osusume-server/internal/domain"
)

// PageInfo describes where a result page sits in the full result set.
type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"current_page"`
	LastPage    int  `json:"last_page"`
	HasNextPage bool `json:"has_next_page"`
	PerPage     int  `json:"per_page"`
}

// Page is one page of search results.
type Page struct {
	Items    []domain.CatalogItem `json:"items"`
	PageInfo PageInfo             `json:"page_info"`
	// Skipped counts records that could not be decoded.
	Skipped int `json:"-"`
}

// Raw API response types (internal)

type rawEnvelope struct {
	Data   *rawData          `json:"data"`
	Errors []rawGraphQLError `json:"errors"`
}

type rawGraphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type rawData struct {
	Page struct {
		PageInfo rawPageInfo `json:"pageInfo"`
		// Records are kept raw so one bad record does not fail the page.
		Media []json.RawMessage `json:"media"`
	} `json:"Page"`
}

type rawPageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     int  `json:"perPage"`
}

type rawMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  *string `json:"romaji"`
		English *string `json:"english"`
		Native  *string `json:"native"`
	} `json:"title"`
	Genres       []string `json:"genres"`
	Tags         []rawTag `json:"tags"`
	AverageScore *int     `json:"averageScore"`
	Popularity   *int     `json:"popularity"`
	Episodes     *int     `json:"episodes"`
	Format       *string  `json:"format"`
	Status       *string  `json:"status"`
	Season       *string  `json:"season"`
	SeasonYear   *int     `json:"seasonYear"`
	CoverImage   struct {
		Medium *string `json:"medium"`
		Large  *string `json:"large"`
	} `json:"coverImage"`
	Description *string `json:"description"`
	SiteURL     *string `json:"siteUrl"`
}

type rawTag struct {
	Name           string  `json:"name"`
	Rank           *int    `json:"rank"`
	IsMediaSpoiler bool    `json:"isMediaSpoiler"`
	Category       *string `json:"category"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// toItem converts a decoded record. A record without an id is unusable.
func (m *rawMedia) toItem() (domain.CatalogItem, bool) {
	if m.ID <= 0 {
		return domain.CatalogItem{}, false
	}

	item := domain.CatalogItem{
		ID: m.ID,
		Titles: domain.Titles{
			Romaji:  str(m.Title.Romaji),
			English: str(m.Title.English),
			Native:  str(m.Title.Native),
		},
		Genres: m.Genres,
		CoverImage: domain.CoverImage{
			Medium: str(m.CoverImage.Medium),
			Large:  str(m.CoverImage.Large),
		},
		DescriptionHTML: str(m.Description),
		Description:     stripHTML(str(m.Description)),
		AverageScore:    m.AverageScore,
		Format:          str(m.Format),
		Status:          str(m.Status),
		Season:          str(m.Season),
		SeasonYear:      m.SeasonYear,
		Episodes:        m.Episodes,
		SiteURL:         str(m.SiteURL),
	}
	if m.Popularity != nil {
		item.Popularity = *m.Popularity
	}
	if item.Genres == nil {
		item.Genres = []string{}
	}

	item.Tags = make([]domain.Tag, 0, len(m.Tags))
	for _, t := range m.Tags {
		if t.Name == "" {
			continue
		}
		tag := domain.Tag{Name: t.Name, Spoiler: t.IsMediaSpoiler, Category: str(t.Category)}
		if t.Rank != nil {
			tag.Rank = *t.Rank
		}
		item.Tags = append(item.Tags, tag)
	}

	return item, true
}

// decodeItems decodes records one at a time, skipping any that fail.
func decodeItems(raw []json.RawMessage, logger *slog.Logger) ([]domain.CatalogItem, int) {
	items := make([]domain.CatalogItem, 0, len(raw))
	skipped := 0
	for i, r := range raw {
		var m rawMedia
		if err := json.Unmarshal(r, &m); err != nil {
			logger.Warn("skipping undecodable catalog record", "index", i, "error", err)
			skipped++
			continue
		}
		item, ok := m.toItem()
		if !ok {
			logger.Warn("skipping catalog record without id", "index", i)
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}
