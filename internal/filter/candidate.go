package filter

import (
	"bytes"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Candidate is an untrusted filter request, either typed by a user or produced by the
// extraction collaborator. Nil means absent; Validate turns it into a FilterSet.
type Candidate struct {
	Genres     []string `json:"genres,omitempty" doc:"Genres; labels outside the vocabulary are moved to tags"`
	Tags       []string `json:"tags,omitempty" doc:"Free-form tags; casing and hyphenation are normalized"`
	Year       *int     `json:"year,omitempty" doc:"Season year"`
	Season     string   `json:"season,omitempty" doc:"WINTER, SPRING, SUMMER or FALL"`
	Format     string   `json:"format,omitempty" doc:"TV, TV_SHORT, MOVIE, SPECIAL, OVA, ONA or MUSIC"`
	Sort       []string `json:"sort,omitempty" doc:"Catalog sort keys, e.g. POPULARITY_DESC"`
	Search     string   `json:"search,omitempty" doc:"Free-text title search"`
	SeedTitles []string `json:"seed_titles,omitempty" doc:"Titles whose genres and tags seed the taste profile"`
	Page       *int     `json:"page,omitempty" doc:"1-based page"`
	PerPage    *int     `json:"per_page,omitempty" doc:"Results per page"`
}

// IsZero reports whether nothing at all was requested.
func (c Candidate) IsZero() bool {
	return len(c.Genres) == 0 && len(c.Tags) == 0 && c.Year == nil &&
		strings.TrimSpace(c.Season) == "" && strings.TrimSpace(c.Format) == "" &&
		len(c.Sort) == 0 && strings.TrimSpace(c.Search) == "" && len(c.SeedTitles) == 0 &&
		c.Page == nil && c.PerPage == nil
}

// Override layers o on top of c: scalars present in o win, lists are unioned with o's
// entries first.
func (c Candidate) Override(o Candidate) Candidate {
	out := c
	out.Genres = unionFold(o.Genres, c.Genres)
	out.Tags = unionFold(o.Tags, c.Tags)
	out.SeedTitles = unionFold(o.SeedTitles, c.SeedTitles)
	if len(o.Sort) > 0 {
		out.Sort = slices.Clone(o.Sort)
	}
	if o.Year != nil {
		out.Year = o.Year
	}
	if strings.TrimSpace(o.Season) != "" {
		out.Season = o.Season
	}
	if strings.TrimSpace(o.Format) != "" {
		out.Format = o.Format
	}
	if strings.TrimSpace(o.Search) != "" {
		out.Search = o.Search
	}
	if o.Page != nil {
		out.Page = o.Page
	}
	if o.PerPage != nil {
		out.PerPage = o.PerPage
	}
	return out
}

// keys maps accepted JSON keys, lowercased with separators removed, to fields.
var keys = map[string]string{
	"genres":     "genres",
	"genre":      "genres",
	"tags":       "tags",
	"tag":        "tags",
	"year":       "year",
	"seasonyear": "year",
	"season":     "season",
	"format":     "format",
	"sort":       "sort",
	"search":     "search",
	"searchterm": "search",
	"seedtitles": "seed_titles",
	"likeanimes": "seed_titles",
	"likeanime":  "seed_titles",
	"similarto":  "seed_titles",
	"page":       "page",
	"perpage":    "per_page",
}

// ParseCandidate decodes the extraction collaborator's output leniently. Lists may be
// arrays or comma-separated strings, numbers may be strings, and the object may be wrapped
// in prose or a code fence. Unknown and malformed keys are dropped and reported; the
// returned Candidate holds whatever was usable.
func ParseCandidate(data []byte) (Candidate, []error) {
	var (
		c    Candidate
		errs []error
	)

	obj := extractObject(data)
	if obj == nil {
		return c, []error{&FieldError{Field: "candidate", Reason: "no JSON object found", Action: ActionDropped}}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(obj, &raw); err != nil {
		return c, []error{&FieldError{Field: "candidate", Reason: "malformed JSON object", Action: ActionDropped}}
	}

	// Map iteration order is random; walk keys sorted so reports are stable.
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	slices.Sort(names)

	for _, key := range names {
		value := raw[key]
		field, ok := keys[normalizeKey(key)]
		if !ok {
			errs = append(errs, &FieldError{Field: key, Reason: "unknown key", Action: ActionDropped})
			continue
		}
		if isNull(value) {
			continue
		}

		var err error
		switch field {
		case "genres":
			c.Genres, err = appendList(c.Genres, value)
		case "tags":
			c.Tags, err = appendList(c.Tags, value)
		case "seed_titles":
			c.SeedTitles, err = appendList(c.SeedTitles, value)
		case "sort":
			c.Sort, err = appendList(c.Sort, value)
		case "year":
			c.Year, err = parseInt(value)
		case "page":
			c.Page, err = parseInt(value)
		case "per_page":
			c.PerPage, err = parseInt(value)
		case "season":
			c.Season, err = parseString(value)
		case "format":
			c.Format, err = parseString(value)
		case "search":
			c.Search, err = parseString(value)
		}
		if err != nil {
			errs = append(errs, &FieldError{Field: key, Value: truncate(string(value), 40), Reason: err.Error(), Action: ActionDropped})
		}
	}

	return c, errs
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// extractObject returns the outermost {...} in data, or nil.
func extractObject(data []byte) []byte {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start < 0 || end <= start {
		return nil
	}
	return data[start : end+1]
}

func isNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

type parseError string

func (e parseError) Error() string { return string(e) }

const (
	errNotList   parseError = "expected a list of strings"
	errNotString parseError = "expected a string"
	errNotInt    parseError = "expected an integer"
)

func appendList(dst []string, v json.RawMessage) ([]string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				dst = append(dst, part)
			}
		}
		return dst, nil
	}

	var items []any
	if err := json.Unmarshal(v, &items); err != nil {
		return dst, errNotList
	}
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			// Non-string elements are skipped.
			continue
		}
		if str = strings.TrimSpace(str); str != "" {
			dst = append(dst, str)
		}
	}
	return dst, nil
}

func parseString(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", errNotString
	}
	return strings.TrimSpace(s), nil
}

func parseInt(v json.RawMessage) (*int, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
			return nil, errNotInt
		}
		n := int(f)
		return &n, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, errNotInt
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, errNotInt
	}
	return &n, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// unionFold concatenates lists, dropping case-insensitive duplicates and blanks.
// It returns nil when the result would be empty.
func unionFold(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range lists {
		for _, s := range l {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
