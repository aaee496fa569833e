package filter

import "strings"

// Season is a catalog broadcast season.
type Season string

// Seasons.
const (
	SeasonWinter Season = "WINTER"
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonFall   Season = "FALL"
)

// Seasons lists every season in calendar order.
var Seasons = []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonFall}

// ParseSeason accepts any casing and "autumn" for FALL.
func ParseSeason(s string) (Season, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WINTER":
		return SeasonWinter, true
	case "SPRING":
		return SeasonSpring, true
	case "SUMMER":
		return SeasonSummer, true
	case "FALL", "AUTUMN":
		return SeasonFall, true
	default:
		return "", false
	}
}

// Format is a catalog media format.
type Format string

// Formats.
const (
	FormatTV      Format = "TV"
	FormatTVShort Format = "TV_SHORT"
	FormatMovie   Format = "MOVIE"
	FormatSpecial Format = "SPECIAL"
	FormatOVA     Format = "OVA"
	FormatONA     Format = "ONA"
	FormatMusic   Format = "MUSIC"
)

// Formats lists every format.
var Formats = []Format{FormatTV, FormatTVShort, FormatMovie, FormatSpecial, FormatOVA, FormatONA, FormatMusic}

// ParseFormat accepts any casing plus a few spoken forms ("film", "tv short", "series").
func ParseFormat(s string) (Format, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "TV", "SERIES", "TV_SERIES", "SHOW":
		return FormatTV, true
	case "TV_SHORT", "SHORT", "SHORTS":
		return FormatTVShort, true
	case "MOVIE", "MOVIES", "FILM", "FILMS":
		return FormatMovie, true
	case "SPECIAL", "SPECIALS":
		return FormatSpecial, true
	case "OVA", "OAV":
		return FormatOVA, true
	case "ONA", "WEB":
		return FormatONA, true
	case "MUSIC", "MUSIC_VIDEO":
		return FormatMusic, true
	default:
		return "", false
	}
}

// Sort is a catalog sort key.
type Sort string

// Sort keys.
const (
	SortPopularityDesc Sort = "POPULARITY_DESC"
	SortScoreDesc      Sort = "SCORE_DESC"
	SortTrendingDesc   Sort = "TRENDING_DESC"
	SortFavouritesDesc Sort = "FAVOURITES_DESC"
	SortStartDateDesc  Sort = "START_DATE_DESC"
	SortSearchMatch    Sort = "SEARCH_MATCH"
)

// DefaultSort orders by popularity, then average score.
var DefaultSort = []Sort{SortPopularityDesc, SortScoreDesc}

// ParseSort accepts any casing and a few short names ("popular", "score", "trending", "newest").
func ParseSort(s string) (Sort, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "POPULARITY_DESC", "POPULARITY", "POPULAR":
		return SortPopularityDesc, true
	case "SCORE_DESC", "SCORE", "RATING", "TOP_RATED":
		return SortScoreDesc, true
	case "TRENDING_DESC", "TRENDING":
		return SortTrendingDesc, true
	case "FAVOURITES_DESC", "FAVORITES_DESC", "FAVOURITES", "FAVORITES":
		return SortFavouritesDesc, true
	case "START_DATE_DESC", "NEWEST", "RECENT", "LATEST":
		return SortStartDateDesc, true
	case "SEARCH_MATCH", "RELEVANCE":
		return SortSearchMatch, true
	default:
		return "", false
	}
}
