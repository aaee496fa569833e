// Package main provides a one-shot command that prints recommendations for a request.
//
// Usage:
//
//	go run ./cmd/recommend "cozy slice of life like Yuru Camp"
//	go run ./cmd/recommend -genre Comedy -tag Isekai -limit 5
//	go run ./cmd/recommend -seed "Cowboy Bebop" -json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/samber/do/v2"

	"github.com/osusumeapp/osusume-server/internal/config"
	"github.com/osusumeapp/osusume-server/internal/di"
	"github.com/osusumeapp/osusume-server/internal/filter"
	"github.com/osusumeapp/osusume-server/internal/service"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var genres, tags, seeds listFlag
	flag.Var(&genres, "genre", "genre filter (repeatable)")
	flag.Var(&tags, "tag", "tag filter (repeatable)")
	flag.Var(&seeds, "seed", "title the result should resemble (repeatable)")
	year := flag.Int("year", 0, "season year")
	format := flag.String("format", "", "format, e.g. TV or MOVIE")
	limit := flag.Int("limit", 10, "maximum recommendations")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	dryRun := flag.Bool("dry-run", false, "print the resolved filters without searching")
	configPath := flag.String("config", "", "YAML configuration file (default $OSUSUME_CONFIG)")
	flag.Parse()

	req := service.Request{
		Text:       strings.Join(flag.Args(), " "),
		SeedTitles: seeds,
		Limit:      *limit,
		Filters: filter.Candidate{
			Genres: genres,
			Tags:   tags,
			Format: *format,
		},
	}
	if *year > 0 {
		req.Filters.Year = year
	}

	// Logs go to stderr at warn level so stdout only carries the result.
	injector := di.NewContainer(config.Options{
		ConfigPath: *configPath,
		Overrides:  map[string]any{"logger.level": "warn", "logger.format": "json", "logger.output": "stderr"},
	})
	defer func() { _ = injector.Shutdown() }()

	if err := di.Bootstrap(injector); err != nil {
		fatal(err)
	}
	svc := do.MustInvoke[*service.RecommendationService](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		resolved, err := svc.ResolveFilters(ctx, req)
		if err != nil {
			fatal(err)
		}
		printJSON(resolved)
		return
	}

	result, err := svc.Recommend(ctx, req)
	if err != nil {
		fatal(err)
	}
	if *asJSON {
		printJSON(result)
		return
	}

	fmt.Println(result.Headline)
	for _, w := range result.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
	fmt.Println()
	for i, r := range result.Recommendations {
		fmt.Printf("%2d. %s", i+1, r.Title)
		if r.SeasonYear != nil {
			fmt.Printf(" (%d)", *r.SeasonYear)
		}
		if r.AverageScore != nil {
			fmt.Printf("  %d%%", *r.AverageScore)
		}
		fmt.Println()
		if len(r.MatchedGenres)+len(r.MatchedTags) > 0 {
			fmt.Printf("    matches: %s\n", strings.Join(append(append([]string{}, r.MatchedGenres...), r.MatchedTags...), ", "))
		}
		if r.SiteURL != "" {
			fmt.Printf("    %s\n", r.SiteURL)
		}
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "recommend: %v\n", err)
	os.Exit(1)
}
