package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jlevy/kash-media/pkg/presenter"
	"github.com/jlevy/kash-media/pkg/wiki"
)

type WikiSearchConfig struct {
	Language string
	Limit    int
}

func NewWikiSearchConfig() *WikiSearchConfig {
	return &WikiSearchConfig{
		Language: "en",
		Limit:    wiki.DefaultMaxResults,
	}
}

func getWikiSearchConfigFromFlags(cmd *cobra.Command) *WikiSearchConfig {
	config := NewWikiSearchConfig()
	if language, err := cmd.Flags().GetString("language"); err == nil && language != "" {
		config.Language = language
	}
	if limit, err := cmd.Flags().GetInt("limit"); err == nil && limit > 0 {
		config.Limit = limit
	}
	return config
}

func newWikiSearchCommand() *cobra.Command {
	defaults := NewWikiSearchConfig()
	cmd := &cobra.Command{
		Use:   "wiki_search <concept>",
		Short: "Look up a concept on Wikipedia",
		Long: `Search Wikipedia for a concept and score the candidate pages by title
match and notability. Reports whether the top match is unambiguous.
Responses are cached, so repeated lookups are free for a day.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			config := getWikiSearchConfigFromFlags(cmd)
			runWikiSearchCommand(cmd.Context(), args[0], config)
		},
	}
	cmd.Flags().String("language", defaults.Language, "Wikipedia language edition")
	cmd.Flags().Int("limit", defaults.Limit, "Maximum search results to score")
	return cmd
}

func runWikiSearchCommand(ctx context.Context, concept string, config *WikiSearchConfig) {
	store, err := openCache(ctx, nil)
	if err != nil {
		fatal(err, "failed to open cache")
	}
	defer store.Close()

	client := wiki.New(store,
		wiki.WithLanguage(config.Language),
		wiki.WithMaxResults(config.Limit),
	)

	results, err := client.Search(ctx, concept)
	if err != nil {
		fatal(err, "Wikipedia search failed")
	}

	if len(results.Pages) == 0 && results.DisambiguationPage == nil {
		presenter.Info("No results for " + concept)
		return
	}

	presenter.Section("Wikipedia: " + concept)
	for _, result := range results.Pages {
		presenter.Info(result.String())
		if result.Page.URL != "" {
			presenter.Info("    " + result.Page.URL)
		}
	}
	if page := results.DisambiguationPage; page != nil {
		presenter.Warning("Disambiguation page: " + page.Title)
	}

	if results.Unambiguous && len(results.Pages) > 0 {
		presenter.Success("Unambiguous match: " + results.Pages[0].Page.Title)
	} else {
		presenter.Warning("No unambiguous match")
	}
}
