package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ArticleFactory/internal/app"
	"ArticleFactory/internal/config"
	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/logging"
	"ArticleFactory/internal/report"
	"ArticleFactory/internal/usecase"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "articlefactory",
		Short:         "Generate, score, enrich and gate content artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "log at debug level")

	backlog := &cobra.Command{Use: "backlog", Short: "Manage the keyword backlog"}
	backlog.AddCommand(newBacklogAddCmd(), newBacklogListCmd())

	root.AddCommand(
		newRunCmd(),
		newScoreCmd(),
		newArchiveCmd(),
		backlog,
		newScheduleCmd(),
		newHistoryCmd(),
	)
	return root
}

// openApp wires the application from cfg. The caller closes it.
func openApp(cmd *cobra.Command, cfg config.Config, opts app.Options) (*app.Application, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logging.NewWriter(cmd.ErrOrStderr(), logging.Level(cfg.Logging.Level, verbose))
	return app.New(cmd.Context(), cfg, logger, opts)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "plan the run without generating, enriching, archiving or persisting")
	cmd.Flags().Int("generate", 2, "number of backlog keywords to generate (defaults to pipeline.generate)")
	cmd.Flags().Int("enrich-limit", 3, "maximum artifacts to enrich (defaults to pipeline.enrichLimit)")
	cmd.Flags().Bool("skip-generate", false, "skip the generate stage")
	cmd.Flags().Bool("skip-enrich", false, "skip the enrich stage")
	cmd.Flags().Bool("notify", false, "send the run summary to the configured notifiers")
	cmd.Flags().Bool("validate-wines", false, "validate recommendation names against the catalog")
}

// runOptions reads the run flags; counts not given on the command line come
// from configuration. Negative counts are rejected.
func runOptions(cmd *cobra.Command, cfg config.Config) (domain.RunOptions, error) {
	flags := cmd.Flags()
	opts := domain.RunOptions{
		GenerateCount: cfg.Pipeline.Generate,
		EnrichLimit:   cfg.Pipeline.EnrichLimit,
	}
	opts.DryRun, _ = flags.GetBool("dry-run")
	opts.SkipGenerate, _ = flags.GetBool("skip-generate")
	opts.SkipEnrich, _ = flags.GetBool("skip-enrich")
	opts.Notify, _ = flags.GetBool("notify")
	opts.ValidateFacts, _ = flags.GetBool("validate-wines")
	if flags.Changed("generate") {
		opts.GenerateCount, _ = flags.GetInt("generate")
	}
	if flags.Changed("enrich-limit") {
		opts.EnrichLimit, _ = flags.GetInt("enrich-limit")
	}
	if opts.GenerateCount < 0 {
		return opts, fmt.Errorf("--generate must not be negative (got %d)", opts.GenerateCount)
	}
	if opts.EnrichLimit < 0 {
		return opts, fmt.Errorf("--enrich-limit must not be negative (got %d)", opts.EnrichLimit)
	}
	return opts, nil
}

// --- run ---

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the run report",
		Long: `Run the pipeline once: generate from the backlog, score the corpus,
enrich the weakest artifacts, then publish or reject.

Examples:
  articlefactory run --dry-run
  articlefactory run --generate=5 --enrich-limit=2 --notify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			opts, err := runOptions(cmd, cfg)
			if err != nil {
				return err
			}
			application, err := openApp(cmd, cfg, app.Options{ValidateFacts: opts.ValidateFacts, ReadOnly: opts.DryRun})
			if err != nil {
				return err
			}
			defer application.Close()

			record, err := application.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return report.Run(cmd.OutOrStdout(), record)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// --- score ---

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score artifacts without running the pipeline",
		Long: `Score artifacts without running the pipeline.

Examples:
  articlefactory score --article best-wine-with-salmon
  articlefactory score --category pairings --json
  articlefactory score --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var q usecase.ScoreQuery
			q.Article, _ = flags.GetString("article")
			q.Category, _ = flags.GetString("category")
			q.All, _ = flags.GetBool("all")
			asJSON, _ := flags.GetBool("json")
			issues, _ := flags.GetBool("issues")
			validate, _ := flags.GetBool("validate-wines")

			application, err := openApp(cmd, config.Load(), app.Options{ValidateFacts: validate})
			if err != nil {
				return err
			}
			defer application.Close()

			scores, err := application.Pipeline().Score(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(scores)
			}
			return report.Scores(cmd.OutOrStdout(), scores, issues || q.Article != "")
		},
	}
	cmd.Flags().String("article", "", "slug of one artifact")
	cmd.Flags().String("category", "", "score every artifact in a category")
	cmd.Flags().Bool("all", false, "score the whole corpus")
	cmd.Flags().Bool("json", false, "print scores as JSON")
	cmd.Flags().Bool("issues", false, "list every issue instead of the first")
	cmd.Flags().Bool("validate-wines", false, "validate recommendation names against the catalog")
	return cmd
}

// --- archive ---

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move artifacts out of the live set",
		Long: `Move artifacts out of the live set.

Examples:
  articlefactory archive --article best-wine-with-salmon --reason "duplicate topic"
  articlefactory archive --rejected`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, _ := cmd.Flags().GetString("article")
			reason, _ := cmd.Flags().GetString("reason")
			rejected, _ := cmd.Flags().GetBool("rejected")
			if (slug == "") == !rejected {
				return errors.New("exactly one of --article or --rejected is required")
			}

			application, err := openApp(cmd, config.Load(), app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			out := cmd.OutOrStdout()
			if slug != "" {
				a, err := application.Pipeline().Archive(cmd.Context(), slug, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "archived %s (%d) -> %s\n", a.Score.Ref, a.Score.TotalScore, a.Destination)
				return nil
			}

			archived, err := application.Pipeline().ArchiveRejected(cmd.Context())
			for _, a := range archived {
				fmt.Fprintf(out, "archived %s (%d): %s\n", a.Score.Ref, a.Score.TotalScore, report.Truncate(a.Reason, 80))
			}
			if len(archived) == 0 && err == nil {
				fmt.Fprintln(out, "nothing below the reject threshold")
			}
			return err
		},
	}
	cmd.Flags().String("article", "", "slug of the artifact to archive")
	cmd.Flags().String("reason", "", "reason recorded in the archive header")
	cmd.Flags().Bool("rejected", false, "archive every artifact below pipeline.reject")
	return cmd
}

// --- backlog ---

func newBacklogAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a keyword or update its priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			kw, _ := cmd.Flags().GetString("keyword")
			priority, _ := cmd.Flags().GetInt("priority")
			category, _ := cmd.Flags().GetString("category")
			if strings.TrimSpace(kw) == "" {
				return errors.New("--keyword is required")
			}

			cfg := config.Load()
			application, err := openApp(cmd, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			if category == "" {
				category = cfg.Content.DefaultCategory
			}
			if err := application.Backlog().Add(cmd.Context(), domain.KeywordOpportunity{
				Keyword:  kw,
				Category: category,
				Priority: priority,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %q (priority %d, category %s)\n", kw, priority, category)
			return nil
		},
	}
	cmd.Flags().String("keyword", "", "keyword to add")
	cmd.Flags().Int("priority", 0, "higher priorities are generated first")
	cmd.Flags().String("category", "", "category of the generated artifact (defaults to content.defaultCategory)")
	return cmd
}

func newBacklogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backlog keywords by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			switch domain.KeywordStatus(status) {
			case "", domain.KeywordActive, domain.KeywordUsed:
			default:
				return fmt.Errorf("unknown status %q (want active or used)", status)
			}

			application, err := openApp(cmd, config.Load(), app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			items, err := application.Backlog().List(cmd.Context(), domain.KeywordStatus(status))
			if err != nil {
				return err
			}
			return report.Backlog(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().String("status", "", "only list active or used keywords")
	return cmd
}

// --- schedule ---

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline repeatedly until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			cfg := config.Load()
			if cmd.Flags().Changed("every") {
				cfg.Scheduler.Every, _ = cmd.Flags().GetDuration("every")
			}
			opts, err := runOptions(cmd, cfg)
			if err != nil {
				return err
			}
			application, err := openApp(cmd, cfg, app.Options{ValidateFacts: opts.ValidateFacts, ReadOnly: opts.DryRun})
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Schedule(ctx, cfg.Scheduler, opts)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Duration("every", 24*time.Hour, "interval between runs (defaults to scheduler.every)")
	return cmd
}

// --- history ---

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			application, err := openApp(cmd, config.Load(), app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			rows, err := application.History().Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.History(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Int("limit", 10, "number of runs to show")
	return cmd
}
