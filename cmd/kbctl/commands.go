package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/game-knowledge-search/internal/bootstrap"
	"github.com/kirillkom/game-knowledge-search/internal/config"
	"github.com/kirillkom/game-knowledge-search/internal/core/usecase"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/graph/neo4j"
	natsqueue "github.com/kirillkom/game-knowledge-search/internal/infrastructure/queue/nats"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/resilience"
	"github.com/kirillkom/game-knowledge-search/internal/observability/logging"
)

type rootOptions struct {
	jsonOutput bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "kbctl",
		Short:        "Query and inspect the game knowledge search engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")

	root.AddCommand(
		newSearchCommand(opts),
		newClassifyCommand(opts),
		newAnswerCommand(opts),
		newPathCommand(opts),
		newHealthCommand(opts),
	)
	return root
}

// cliLogger keeps stdout free for command output.
func cliLogger(cfg config.Config) *slog.Logger {
	return logging.NewJSONLoggerTo(os.Stderr, "kbctl", cfg.LogLevel)
}

func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	cfg := config.Load()
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "kbctl", Logger: cliLogger(cfg)})
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var limit int
	var viaNATS bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if viaNATS {
				return searchOverNATS(cmd, opts, query, limit)
			}
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				outcome, err := app.Search.Search(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				return writeOutcome(cmd.OutOrStdout(), outcome, opts.jsonOutput)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 uses the configured default)")
	cmd.Flags().BoolVar(&viaNATS, "nats", false, "send the query to a running search worker")
	return cmd
}

func searchOverNATS(cmd *cobra.Command, opts *rootOptions, query string, limit int) error {
	cfg := config.Load()
	logger := cliLogger(cfg)
	conn, err := natsqueue.Connect(cfg.NATSURL, natsqueue.Options{Name: "kbctl", Logger: logger})
	if err != nil {
		return err
	}
	defer conn.Close()

	executor := resilience.NewExecutor(cfg.Resilience, resilience.WithLogger(logger))
	client := natsqueue.NewSearchClient(conn, cfg.NATSSearchSubject, cfg.SearchRequestTimeout, executor)
	outcome, err := client.Search(cmd.Context(), query, limit)
	if err != nil {
		return err
	}
	return writeOutcome(cmd.OutOrStdout(), outcome, opts.jsonOutput)
}

func newClassifyCommand(opts *rootOptions) *cobra.Command {
	var rulesOnly bool
	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Show the search plan for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if rulesOnly {
				cfg := config.Load()
				lexicon, err := usecase.LoadLexicon(cfg.ClassifierLexiconPath)
				if err != nil {
					return err
				}
				plan := usecase.NewRuleClassifier(lexicon).Classify(query)
				return writePlan(cmd.OutOrStdout(), plan, opts.jsonOutput)
			}
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				return writePlan(cmd.OutOrStdout(), app.Planner.Classify(cmd.Context(), query), opts.jsonOutput)
			})
		},
	}
	cmd.Flags().BoolVar(&rulesOnly, "rules", false, "use the lexicon rules without the language model")
	return cmd
}

func newAnswerCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "answer <question>",
		Short: "Answer a question from knowledge base evidence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				answer, err := app.Answer.Answer(cmd.Context(), question, limit)
				if err != nil {
					return err
				}
				return writeAnswer(cmd.OutOrStdout(), answer, opts.jsonOutput)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "evidence results to consider")
	return cmd
}

func newPathCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path <start-map> <end-map>",
		Short: "Find the shortest route between two maps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			client, err := neo4j.New(cmd.Context(), neo4j.Config{
				URI:      cfg.Neo4jURI,
				Username: cfg.Neo4jUser,
				Password: cfg.Neo4jPassword,
				Database: cfg.Neo4jDatabase,
			}, cliLogger(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close(context.Background()) }()

			path, err := client.FindPath(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writePath(cmd.OutOrStdout(), args[0], args[1], path, opts.jsonOutput)
		},
	}
}

var errUnhealthy = errors.New("one or more dependencies are unhealthy")

func newHealthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the configured backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				results := make(map[string]error, len(app.Checks))
				for name, check := range app.Checks {
					results[name] = check(cmd.Context())
				}
				if err := writeChecks(cmd.OutOrStdout(), results, opts.jsonOutput); err != nil {
					return err
				}
				for name, err := range results {
					if err != nil {
						return fmt.Errorf("%w: %s", errUnhealthy, name)
					}
				}
				return nil
			})
		},
	}
}
