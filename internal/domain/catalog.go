// Package domain contains the catalog entities and taste profile shared across the
// recommendation pipeline.
package domain

import "strings"

// CatalogItem is one anime as returned by the remote catalog. Items are never cached;
// every request fetches fresh records.
type CatalogItem struct {
	ID     int      `json:"id"`
	Titles Titles   `json:"titles"`
	Genres []string `json:"genres"`
	Tags   []Tag    `json:"tags"`

	CoverImage CoverImage `json:"cover_image"`
	// Description is plain text; DescriptionHTML keeps the catalog's original markup.
	Description     string `json:"description,omitempty"`
	DescriptionHTML string `json:"-"`

	Popularity   int    `json:"popularity"`
	AverageScore *int   `json:"average_score,omitempty"`
	Format       string `json:"format,omitempty"`
	Status       string `json:"status,omitempty"`
	Season       string `json:"season,omitempty"`
	SeasonYear   *int   `json:"season_year,omitempty"`
	Episodes     *int   `json:"episodes,omitempty"`
	SiteURL      string `json:"site_url,omitempty"`
}

// Titles holds the catalog's title variants. Any of them may be empty.
type Titles struct {
	Romaji  string `json:"romaji,omitempty"`
	English string `json:"english,omitempty"`
	Native  string `json:"native,omitempty"`
}

// Display returns the title to show a reader: English, then romaji, then native.
func (t Titles) Display() string {
	for _, s := range []string{t.English, t.Romaji, t.Native} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Tag is a catalog tag attached to an item. Rank is the catalog's 0-100 relevance.
type Tag struct {
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
	Spoiler  bool   `json:"spoiler,omitempty"`
	Category string `json:"category,omitempty"`
}

// CoverImage holds cover URLs by size. Any of them may be empty.
type CoverImage struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// Best returns the largest available cover URL.
func (c CoverImage) Best() string {
	switch {
	case c.Large != "":
		return c.Large
	case c.Medium != "":
		return c.Medium
	default:
		return c.Small
	}
}

// HasGenre reports whether the item carries genre, ignoring case.
func (i *CatalogItem) HasGenre(genre string) bool {
	for _, g := range i.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}
