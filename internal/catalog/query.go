package catalog

import (
	"github.com/osusumeapp/osusume-server/internal/filter"
)

// mediaFields is the selection shared by every media query.
const mediaFields = `
      id
      title { romaji english native }
      genres
      tags { name rank isMediaSpoiler category }
      averageScore
      popularity
      episodes
      format
      status
      season
      seasonYear
      coverImage { medium large }
      description
      siteUrl`

// pageQuery is the single GraphQL document used for searches and title lookups. Variables
// left out of the request are null, which the catalog treats as "no filter".
const pageQuery = `query ($page: Int, $perPage: Int, $search: String, $genres: [String], $tags: [String], $seasonYear: Int, $season: MediaSeason, $format: MediaFormat, $sort: [MediaSort]) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { total currentPage lastPage hasNextPage perPage }
    media(type: ANIME, search: $search, genre_in: $genres, tag_in: $tags, seasonYear: $seasonYear, season: $season, format: $format, sort: $sort) {` + mediaFields + `
    }
  }
}`

// graphQLRequest is the POST body.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// searchVariables maps a FilterSet onto query variables. Absent fields are omitted.
func searchVariables(fs filter.FilterSet) map[string]any {
	page, perPage := fs.Page, fs.PerPage
	if page < 1 {
		page = filter.DefaultPage
	}
	switch {
	case perPage < 1:
		perPage = filter.DefaultPerPage
	case perPage > filter.MaxPageSize:
		perPage = filter.MaxPageSize
	}

	vars := map[string]any{
		"page":    page,
		"perPage": perPage,
	}
	if fs.Search != "" {
		vars["search"] = fs.Search
	}
	if len(fs.Genres) > 0 {
		vars["genres"] = fs.Genres
	}
	if len(fs.Tags) > 0 {
		vars["tags"] = fs.Tags
	}
	if fs.Year != nil {
		vars["seasonYear"] = *fs.Year
	}
	if fs.Season != "" {
		vars["season"] = string(fs.Season)
	}
	if fs.Format != "" {
		vars["format"] = string(fs.Format)
	}

	sorts := fs.SortOrDefault()
	keys := make([]string, len(sorts))
	for i, s := range sorts {
		keys[i] = string(s)
	}
	vars["sort"] = keys

	return vars
}

// lookupVariables asks for the single best title match.
func lookupVariables(title string) map[string]any {
	return map[string]any{
		"page":    1,
		"perPage": 1,
		"search":  title,
		"sort":    []string{string(filter.SortSearchMatch)},
	}
}
