package rank

import (
	"fmt"
	"strings"

	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/filter"
)

// Recommendation is one presented result.
type Recommendation struct {
	ID     int           `json:"id"`
	Title  string        `json:"title"`
	Titles domain.Titles `json:"titles"`

	Genres []string `json:"genres"`
	Tags   []string `json:"tags"`
	// MatchedGenres and MatchedTags explain why the item was selected.
	MatchedGenres []string `json:"matched_genres"`
	MatchedTags   []string `json:"matched_tags"`

	AverageScore *int   `json:"average_score,omitempty"`
	Popularity   int    `json:"popularity"`
	Format       string `json:"format,omitempty"`
	Season       string `json:"season,omitempty"`
	SeasonYear   *int   `json:"season_year,omitempty"`
	Episodes     *int   `json:"episodes,omitempty"`

	CoverURL    string `json:"cover_url,omitempty"`
	Description string `json:"description,omitempty"`
	SiteURL     string `json:"site_url,omitempty"`
}

// Present shapes ordered items for display. An item's matched genres and tags are those
// the FilterSet asked for, plus any of its tags named in requestText. Spoiler tags are
// never shown.
func Present(items []domain.CatalogItem, fs filter.FilterSet, requestText string) []Recommendation {
	text := strings.ToLower(requestText)
	out := make([]Recommendation, 0, len(items))

	for _, item := range items {
		rec := Recommendation{
			ID:            item.ID,
			Title:         item.Titles.Display(),
			Titles:        item.Titles,
			Genres:        nonNil(item.Genres),
			Tags:          []string{},
			MatchedGenres: []string{},
			MatchedTags:   []string{},
			AverageScore:  item.AverageScore,
			Popularity:    item.Popularity,
			Format:        item.Format,
			Season:        item.Season,
			SeasonYear:    item.SeasonYear,
			Episodes:      item.Episodes,
			CoverURL:      item.CoverImage.Best(),
			Description:   description(item),
			SiteURL:       item.SiteURL,
		}

		for _, g := range fs.Genres {
			if item.HasGenre(g) {
				rec.MatchedGenres = append(rec.MatchedGenres, g)
			}
		}

		for _, t := range item.Tags {
			if t.Spoiler {
				continue
			}
			rec.Tags = append(rec.Tags, t.Name)
			if requested(fs.Tags, t.Name) || mentions(text, t.Name) {
				rec.MatchedTags = append(rec.MatchedTags, t.Name)
			}
		}

		out = append(out, rec)
	}
	return out
}

// Headline summarizes a result set in one line.
func Headline(requestText string, fs filter.FilterSet, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d recommendation", count)
	if count != 1 {
		b.WriteString("s")
	}
	if requestText = strings.TrimSpace(requestText); requestText != "" {
		fmt.Fprintf(&b, " for %q", requestText)
	}
	if !fs.HasCriteria() {
		b.WriteString(" from the most popular titles")
		return b.String()
	}

	var parts []string
	if fs.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", fs.Search))
	}
	if len(fs.Genres) > 0 {
		parts = append(parts, "genres: "+strings.Join(fs.Genres, ", "))
	}
	if len(fs.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(fs.Tags, ", "))
	}
	if fs.Year != nil {
		parts = append(parts, fmt.Sprintf("year: %d", *fs.Year))
	}
	if fs.Season != "" {
		parts = append(parts, "season: "+string(fs.Season))
	}
	if fs.Format != "" {
		parts = append(parts, "format: "+string(fs.Format))
	}
	if len(parts) > 0 {
		b.WriteString(" (" + strings.Join(parts, "; ") + ")")
	}
	return b.String()
}

// description prefers Markdown converted from the catalog's HTML.
func description(item domain.CatalogItem) string {
	if item.DescriptionHTML != "" {
		return htmlToMarkdown(item.DescriptionHTML)
	}
	return item.Description
}

func requested(tags []string, name string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// mentions reports whether text contains name as a whole phrase.
func mentions(text, name string) bool {
	if text == "" {
		return false
	}
	name = strings.ToLower(name)
	for i := 0; ; {
		j := strings.Index(text[i:], name)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(name)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		i = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
