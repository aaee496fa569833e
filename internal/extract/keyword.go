package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/vocabulary"
)

// KeywordVocabulary is what the keyword extractor needs from the vocabulary store.
type KeywordVocabulary interface {
	ResolveGenres(label string) []string
	Tag(label string) (vocabulary.TagInfo, bool)
}

// Keyword extracts candidates by matching request words against the vocabulary. It needs
// no network and never fails.
type Keyword struct {
	vocab KeywordVocabulary
}

// NewKeyword creates a keyword extractor.
func NewKeyword(vocab KeywordVocabulary) *Keyword {
	return &Keyword{vocab: vocab}
}

// Name implements Named.
func (k *Keyword) Name() string { return "keyword" }

const maxWindow = 3

var (
	quotedPattern = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|「([^」]+)」`)
	seedPattern   = regexp.MustCompile(`(?i)\b(?:similar to|something like|shows like|anime like|series like|such as|reminds me of)\s+([^.;!?\n]+)`)
	seedSplit     = regexp.MustCompile(`(?i)\s*(?:,|\band\b|\bor\b)\s*`)
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'’-]*`)
	yearPattern   = regexp.MustCompile(`^(19|20)\d{2}s?$`)
)

// stopwords never match a vocabulary entry on their own.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "any": true, "anime": true, "are": true, "but": true,
	"for": true, "from": true, "give": true, "good": true, "has": true, "have": true,
	"i": true, "in": true, "is": true, "it": true, "me": true, "my": true, "of": true,
	"on": true, "or": true, "show": true, "shows": true, "some": true, "something": true,
	"that": true, "the": true, "to": true, "want": true, "watch": true, "with": true,
	"recommend": true, "please": true, "series": true, "really": true, "very": true,
	"like": true, "works": true, "rated": true, "popular": true,
}

var sortPhrases = []struct {
	phrase string
	sort   filter.Sort
}{
	{"trending", filter.SortTrendingDesc},
	{"most popular", filter.SortPopularityDesc},
	{"top rated", filter.SortScoreDesc},
	{"highest rated", filter.SortScoreDesc},
	{"best rated", filter.SortScoreDesc},
	{"newest", filter.SortStartDateDesc},
	{"latest", filter.SortStartDateDesc},
}

var formatWords = map[string]filter.Format{
	"movie": filter.FormatMovie, "movies": filter.FormatMovie,
	"film": filter.FormatMovie, "films": filter.FormatMovie,
	"ova": filter.FormatOVA, "ovas": filter.FormatOVA,
	"ona": filter.FormatONA, "onas": filter.FormatONA,
	"special": filter.FormatSpecial, "specials": filter.FormatSpecial,
}

// Extract implements Extractor.
func (k *Keyword) Extract(ctx context.Context, text string) (filter.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return filter.Candidate{}, err
	}

	var c filter.Candidate

	// Quoted phrases are titles.
	text = quotedPattern.ReplaceAllStringFunc(text, func(m string) string {
		for _, g := range quotedPattern.FindStringSubmatch(m)[1:] {
			if g = strings.TrimSpace(g); g != "" {
				c.SeedTitles = append(c.SeedTitles, g)
			}
		}
		return " , "
	})

	// "similar to X and Y" names titles too.
	text = seedPattern.ReplaceAllStringFunc(text, func(m string) string {
		phrase := seedPattern.FindStringSubmatch(m)[1]
		for _, title := range seedSplit.Split(phrase, -1) {
			if title = strings.TrimSpace(title); title != "" {
				c.SeedTitles = append(c.SeedTitles, title)
			}
		}
		return " , "
	})

	lower := strings.ToLower(text)
	for _, sp := range sortPhrases {
		if strings.Contains(lower, sp.phrase) {
			c.Sort = appendUnique(c.Sort, string(sp.sort))
		}
	}

	words := wordPattern.FindAllString(lower, -1)
	used := make([]bool, len(words))

	for i, w := range words {
		switch {
		case yearPattern.MatchString(w):
			if c.Year == nil {
				if y, err := strconv.Atoi(w[:4]); err == nil {
					c.Year = &y
				}
			}
			used[i] = true
		case c.Season == "" && isSeason(w):
			season, _ := filter.ParseSeason(w)
			c.Season = string(season)
			used[i] = true
		case c.Format == "" && formatWords[w] != "":
			c.Format = string(formatWords[w])
			used[i] = true
		}
	}

	// Longest vocabulary phrase first.
	for size := maxWindow; size >= 1; size-- {
		for i := 0; i+size <= len(words); i++ {
			if anyUsed(used[i : i+size]) {
				continue
			}
			phrase := strings.Join(words[i:i+size], " ")
			if size == 1 && (stopwords[phrase] || len([]rune(phrase)) < 3) {
				continue
			}
			if k.match(&c, phrase) || (size == 1 && k.matchSingular(&c, phrase)) {
				for j := i; j < i+size; j++ {
					used[j] = true
				}
			}
		}
	}

	return c, nil
}

func (k *Keyword) match(c *filter.Candidate, phrase string) bool {
	if genres := k.vocab.ResolveGenres(phrase); len(genres) > 0 {
		for _, g := range genres {
			c.Genres = appendUnique(c.Genres, g)
		}
		return true
	}
	if tag, ok := k.vocab.Tag(phrase); ok {
		c.Tags = appendUnique(c.Tags, tag.Name)
		return true
	}
	return false
}

// matchSingular retries a plural word without its trailing "s".
func (k *Keyword) matchSingular(c *filter.Candidate, word string) bool {
	if len(word) < 4 || !strings.HasSuffix(word, "s") {
		return false
	}
	return k.match(c, strings.TrimSuffix(word, "s"))
}

func isSeason(w string) bool {
	_, ok := filter.ParseSeason(w)
	return ok
}

func anyUsed(used []bool) bool {
	for _, u := range used {
		if u {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return list
		}
	}
	return append(list, s)
}
