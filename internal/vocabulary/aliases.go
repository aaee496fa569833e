package vocabulary

// genreAliases maps slugs of common variations to canonical genre labels.
// A single alias may expand to several genres ("rom-com" is both Romance and Comedy).
var genreAliases = map[string][]string{
	// Sci-Fi variations
	"scifi":           {"Sci-Fi"},
	"sf":              {"Sci-Fi"},
	"science-fiction": {"Sci-Fi"},

	// Slice of Life
	"sol":           {"Slice of Life"},
	"slice-of-life": {"Slice of Life"},

	// Mahou Shoujo
	"magical-girl":  {"Mahou Shoujo"},
	"magical-girls": {"Mahou Shoujo"},
	"mahou-shojo":   {"Mahou Shoujo"},

	// Comedy
	"humor":   {"Comedy"},
	"humour":  {"Comedy"},
	"funny":   {"Comedy"},
	"comedic": {"Comedy"},

	// Combined genres -> multiple
	"romcom":                 {"Romance", "Comedy"},
	"rom-com":                {"Romance", "Comedy"},
	"romantic-comedy":        {"Romance", "Comedy"},
	"action-adventure":       {"Action", "Adventure"},
	"fantasy-romance":        {"Fantasy", "Romance"},
	"sci-fi-fantasy":         {"Sci-Fi", "Fantasy"},
	"mystery-thriller":       {"Mystery", "Thriller"},
	"psychological-thriller": {"Psychological", "Thriller"},

	// Singular/plural and near-misses
	"sport":     {"Sports"},
	"musical":   {"Music"},
	"mysteries": {"Mystery"},
	"romantic":  {"Romance"},
	"scary":     {"Horror"},
	"suspense":  {"Thriller"},
	"mechas":    {"Mecha"},
}
