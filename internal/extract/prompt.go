package extract

import (
	"strings"

	"github.com/goccy/go-json"
)

// GenreLister lists the official genres.
type GenreLister interface {
	Genres() []string
}

// systemPrompt instructs the model to emit a minimal candidate object. Only official
// genres may appear in "genres"; everything descriptive goes to "tags".
func systemPrompt(genres []string) string {
	list, _ := json.Marshal(genres)

	var b strings.Builder
	b.WriteString("You extract anime search filters from a user's request.\n")
	b.WriteString("Produce exactly one JSON object using only these keys: ")
	b.WriteString(`"search", "season", "year", "genres", "tags", "format", "sort", "seed_titles".` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Only items in this list may appear in \"genres\": ")
	b.Write(list)
	b.WriteString(".\n")
	b.WriteString("- Any other descriptive phrase (moods, sub-genres like 'School Life', adjectives like 'Wholesome') must go into \"tags\".\n")
	b.WriteString("- Title-case every word (e.g. 'school-life' -> 'School Life').\n")
	b.WriteString("- Do not add genres the request does not ask for.\n")
	b.WriteString("- \"season\" is one of WINTER, SPRING, SUMMER, FALL. \"format\" is one of TV, TV_SHORT, MOVIE, SPECIAL, OVA, ONA, MUSIC.\n")
	b.WriteString("- Titles the user names as examples (\"like K-On!\", \"similar to Mushishi\") go into \"seed_titles\".\n")
	b.WriteString("- Omit every key whose value would be null or empty.\n\n")
	b.WriteString("Example:\n")
	b.WriteString("USER_REQUEST: Recommend a dark fantasy from 2020.\n")
	b.WriteString(`OUTPUT: {"genres": ["Fantasy"], "tags": ["Dark"], "year": 2020}`)
	return b.String()
}
