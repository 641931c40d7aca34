package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coolbeans/redline/pkg/config"
	"github.com/coolbeans/redline/pkg/export"
	"github.com/coolbeans/redline/pkg/group"
	"github.com/coolbeans/redline/pkg/normalize"
	"github.com/coolbeans/redline/pkg/records"
	"github.com/coolbeans/redline/pkg/redline"
	"github.com/coolbeans/redline/pkg/server"
	"github.com/coolbeans/redline/pkg/watch"
	"github.com/coolbeans/redline/pkg/worddiff"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "redline",
		Short: "Legislative text redlining",
		Long: `Redline compares competing versions of a bill section against the
final enrolled text and shows every word that was struck or inserted.

It reads bill-reference datasets (JSON, YAML, CSV or TSV) and produces:
  - Word-level redlines for one section or a whole bill
  - Standalone HTML and Markdown reports
  - A JSON API for presentation layers`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to redline.yaml (default: ./redline.yaml if present)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable development logging at debug level")

	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(diffCmd())
	rootCmd.AddCommand(groupsCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

// app holds what every subcommand builds from configuration.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	normalizer *normalize.Normalizer
	builder    *redline.Builder
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg, verbose)
	if err != nil {
		return nil, err
	}

	normalizer := normalize.New(cfg.NormalizeOptions(), logger)
	builder := redline.NewBuilder(
		redline.WithNormalizer(normalizer),
		redline.WithLogger(logger),
		redline.WithFinalLabel(cfg.Labels.Final),
		redline.WithSourceLabels(cfg.Labels.Sources),
	)

	return &app{cfg: cfg, logger: logger, normalizer: normalizer, builder: builder}, nil
}

func buildLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	if verbose || cfg.Log.Development {
		return zap.NewDevelopment()
	}
	level, err := cfg.ZapLevel()
	if err != nil {
		return nil, err
	}
	productionConfig := zap.NewProductionConfig()
	productionConfig.Level = zap.NewAtomicLevelAt(level)
	logger, err := productionConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func (a *app) exportOptions(title string) export.Options {
	if a.cfg.Output.Title != "" {
		title = a.cfg.Output.Title
	}
	return export.Options{
		Title:             title,
		IncludeCommentary: a.cfg.Output.IncludeCommentary,
		GeneratedAt:       time.Now(),
	}
}

// datasetPath picks the dataset argument or the configured default.
func (a *app) datasetPath(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if a.cfg.Dataset != "" {
		return a.cfg.Dataset, nil
	}
	return "", fmt.Errorf("a dataset file is required (argument or dataset: in redline.yaml)")
}

// outputFormat resolves the --format flag, falling back to the configured
// output format.
func (a *app) outputFormat(cmd *cobra.Command) (export.Format, error) {
	formatStr, _ := cmd.Flags().GetString("format")
	if formatStr == "" {
		formatStr = a.cfg.Output.Format
	}
	return export.ParseFormat(formatStr)
}

func normalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [text]",
		Short: "Normalize legislative text",
		Long: `Normalize legislative text the way every comparison does before diffing:
section markers are spaced, whitespace runs collapse, and the ends are trimmed.

Reads the argument, --file, or standard input.

Example:
  redline normalize "SEC. 2.Definitions.  In this Act"
  redline normalize --file section.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			filePath, _ := cmd.Flags().GetString("file")
			text, err := readTextInput(cmd, args, filePath)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), a.normalizer.Normalize(text))
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read text from this file")
	return cmd
}

func diffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [before] [after]",
		Short: "Word-level diff of two texts",
		Long: `Compare two texts word by word after normalization.

Text output marks removed words as [-word-] and added words as {+word+}.

Example:
  redline diff "The Secretary shall act." "The Secretary shall promptly act."
  redline diff --before house.txt --after enrolled.txt --format json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			beforePath, _ := cmd.Flags().GetString("before")
			afterPath, _ := cmd.Flags().GetString("after")
			formatStr, _ := cmd.Flags().GetString("format")

			before, after, err := readDiffInputs(args, beforePath, afterPath)
			if err != nil {
				return err
			}

			tokens, err := worddiff.New(a.normalizer).Diff(before, after)
			if err != nil {
				return err
			}
			result := redline.Render(tokens)
			out := cmd.OutOrStdout()

			switch formatStr {
			case "json":
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]any{"tokens": tokens, "result": result})
			case "text", "":
				writeTextDiff(out, tokens, result)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text or json)", formatStr)
			}
		},
	}
	cmd.Flags().String("before", "", "Read the earlier text from this file")
	cmd.Flags().String("after", "", "Read the later text from this file")
	cmd.Flags().String("format", "text", "Output format: text, json")
	return cmd
}

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups [dataset]",
		Short: "List the section groups of a dataset",
		Long: `Group dataset records by section header and list the groups in section
number order.

Example:
  redline groups bill.json
  redline groups bill.csv --versions-only --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			jsonOutput, _ := cmd.Flags().GetBool("json")
			versionsOnly, _ := cmd.Flags().GetBool("versions-only")

			snapshot, err := a.loadSnapshot(args)
			if err != nil {
				return err
			}

			groups := snapshot.Groups
			if versionsOnly {
				groups = filterVersioned(groups)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]any{
					"groups": groups,
					"stats":  group.Summarize(snapshot.Groups),
				})
			}

			stats := group.Summarize(snapshot.Groups)
			fmt.Fprintf(out, "%d records in %d groups (%d with multiple versions, %d with final text)\n\n",
				stats.Records, stats.Groups, stats.MultiVersion, stats.WithFinalText)
			for _, g := range groups {
				section := g.RepresentativeSectionNumber
				if section == "" {
					section = "-"
				}
				finalMarker := " "
				if group.FinalText(g) != "" {
					finalMarker = "*"
				}
				fmt.Fprintf(out, "%-8s %s %2d  %s\n", truncateString(section, 8), finalMarker, len(g.Rows), g.Key)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output groups as JSON")
	cmd.Flags().Bool("versions-only", false, "Only list groups with more than one version")
	return cmd
}

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [dataset]",
		Short: "Compare source versions against the final text",
		Long: `Build a multi-panel redline: one panel per source version and one for the
final text.

Either pick a group from a dataset with --key, or give sources and the final
text as files.

Example:
  redline compare bill.json --key "Sec. 101. Authorization" --format html --output sec101.html
  redline compare --source House=house.txt --source Senate=senate.txt --final enrolled.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			key, _ := cmd.Flags().GetString("key")
			sourceSpecs, _ := cmd.Flags().GetStringArray("source")
			finalPath, _ := cmd.Flags().GetString("final")
			phrasesStr, _ := cmd.Flags().GetString("phrases")
			output, _ := cmd.Flags().GetString("output")

			format, err := a.outputFormat(cmd)
			if err != nil {
				return err
			}

			var payload redline.Payload
			switch {
			case len(sourceSpecs) > 0:
				if finalPath == "" {
					return fmt.Errorf("--final is required with --source")
				}
				sources, err := readSources(sourceSpecs)
				if err != nil {
					return err
				}
				finalText, err := readFile(finalPath)
				if err != nil {
					return err
				}
				payload = a.builder.Build(sources, finalText, records.ParsePhrases(phrasesStr))

			case key != "":
				snapshot, err := a.loadSnapshot(args)
				if err != nil {
					return err
				}
				found, ok := group.Find(snapshot.Groups, key)
				if !ok {
					return fmt.Errorf("group %q not found in %s", key, snapshot.Path)
				}
				payload = a.builder.BuildGroup(found)

			default:
				return fmt.Errorf("either --key or --source/--final is required")
			}

			rendered, err := export.Render(payload, format, a.exportOptions(""))
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, rendered)
		},
	}
	cmd.Flags().String("key", "", "Section header of the group to compare")
	cmd.Flags().StringArray("source", nil, "Source version as Label=path (repeatable)")
	cmd.Flags().String("final", "", "Path to the final text")
	cmd.Flags().String("phrases", "", "Agreement phrases, e.g. '[\"Agreed\", \"Modified\"]'")
	cmd.Flags().String("format", "", "Output format: html, markdown, json, yaml (default from config)")
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of standard output")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [dataset]",
		Short: "Render a redline report for every section",
		Long: `Render one document holding the redline of every group in the dataset,
in section number order.

With --watch the report is regenerated whenever the dataset changes.

Example:
  redline report bill.json --output report.html
  redline report bill.json --format markdown --versions-only
  redline report bill.json --output report.html --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			output, _ := cmd.Flags().GetString("output")
			title, _ := cmd.Flags().GetString("title")
			versionsOnly, _ := cmd.Flags().GetBool("versions-only")
			watchDataset, _ := cmd.Flags().GetBool("watch")

			formatStr, _ := cmd.Flags().GetString("format")
			if formatStr == "" {
				formatStr = a.cfg.Output.Format
			}
			format, err := export.ParseFormat(formatStr)
			if err != nil {
				return err
			}
			if format != export.FormatHTML && format != export.FormatMarkdown {
				return fmt.Errorf("report supports html and markdown output, got %s", format)
			}

			renderReport := func(snapshot *watch.Snapshot) error {
				groups := snapshot.Groups
				if versionsOnly {
					groups = filterVersioned(groups)
				}
				sections := make([]export.Section, 0, len(groups))
				for _, g := range groups {
					sections = append(sections, export.Section{Key: g.Key, Payload: a.builder.BuildGroup(g)})
				}

				options := a.exportOptions(title)
				if format == export.FormatMarkdown {
					return writeOutput(cmd, output, export.ReportMarkdown(sections, options))
				}
				rendered, renderErr := export.Report(sections, options)
				if renderErr != nil {
					return renderErr
				}
				return writeOutput(cmd, output, rendered)
			}

			if !watchDataset {
				snapshot, err := a.loadSnapshot(args)
				if err != nil {
					return err
				}
				return renderReport(snapshot)
			}

			if output == "" {
				return fmt.Errorf("--watch requires --output")
			}
			path, err := a.datasetPath(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			watcher, err := watch.New(path,
				watch.WithLogger(a.logger),
				watch.OnChange(func(snapshot *watch.Snapshot) {
					if err := renderReport(snapshot); err != nil {
						a.logger.Error("failed to render report", zap.String("output", output), zap.Error(err))
						return
					}
					a.logger.Info("report written", zap.String("output", output), zap.Int("groups", len(snapshot.Groups)))
				}),
			)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s, press Ctrl+C to stop\n", path)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of standard output")
	cmd.Flags().String("format", "", "Output format: html, markdown (default from config)")
	cmd.Flags().String("title", "", "Report title")
	cmd.Flags().Bool("versions-only", false, "Only include groups with more than one version")
	cmd.Flags().Bool("watch", false, "Regenerate the report when the dataset changes")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [dataset]",
		Short: "Serve comparisons over HTTP",
		Long: `Start the HTTP API. When a dataset is given it is loaded, watched, and
reloaded on change; without one only the POST endpoints are useful.

Example:
  redline serve bill.json --addr :8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.builder, a.normalizer, a.logger, server.Options{
				MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
				Export:       a.exportOptions(""),
			})

			if path, err := a.datasetPath(args); err == nil {
				watcher, err := watch.New(path, watch.WithLogger(a.logger), watch.OnChange(srv.SetSnapshot))
				if err != nil {
					return err
				}
				if err := watcher.Start(ctx); err != nil {
					return err
				}
				defer watcher.Stop()
			} else {
				a.logger.Info("no dataset configured, serving POST endpoints only")
			}

			httpServer := &http.Server{
				Addr:         addr,
				Handler:      srv,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown.
			go func() {
				<-ctx.Done()
				a.logger.Info("shutting down...")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
				defer shutdownCancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					a.logger.Warn("shutdown did not complete", zap.Error(err))
				}
			}()

			a.logger.Info("starting redline", zap.String("addr", addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func (a *app) loadSnapshot(args []string) (*watch.Snapshot, error) {
	path, err := a.datasetPath(args)
	if err != nil {
		return nil, err
	}
	snapshot, err := watch.LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("dataset loaded",
		zap.String("path", path),
		zap.Int("records", len(snapshot.Records)),
		zap.Int("groups", len(snapshot.Groups)),
	)
	return snapshot, nil
}

func filterVersioned(groups []group.Group) []group.Group {
	filtered := make([]group.Group, 0, len(groups))
	for _, g := range groups {
		if g.HasVersions() {
			filtered = append(filtered, g)
		}
	}
	return filtered
}

func readTextInput(cmd *cobra.Command, args []string, filePath string) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case filePath != "":
		return readFile(filePath)
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
}

func readDiffInputs(args []string, beforePath, afterPath string) (string, string, error) {
	if beforePath != "" || afterPath != "" {
		if beforePath == "" || afterPath == "" {
			return "", "", fmt.Errorf("--before and --after must be given together")
		}
		before, err := readFile(beforePath)
		if err != nil {
			return "", "", err
		}
		after, err := readFile(afterPath)
		if err != nil {
			return "", "", err
		}
		return before, after, nil
	}
	if len(args) != 2 {
		return "", "", fmt.Errorf("diff needs two texts or --before and --after")
	}
	return args[0], args[1], nil
}

// readSources parses Label=path source specs in order.
func readSources(specs []string) ([]redline.Source, error) {
	sources := make([]redline.Source, 0, len(specs))
	for _, spec := range specs {
		label, path, found := strings.Cut(spec, "=")
		if !found {
			label, path = "", spec
		}
		text, err := readFile(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		sources = append(sources, redline.Source{Label: strings.TrimSpace(label), Text: text})
	}
	return sources, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func writeOutput(cmd *cobra.Command, output, rendered string) error {
	if output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), rendered)
		return err
	}
	if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
	return nil
}

// writeTextDiff prints the edit script on one line, removed words as
// [-word-] and added words as {+word+}, followed by a summary.
func writeTextDiff(out io.Writer, tokens []worddiff.Token, result redline.Result) {
	if result.NoContent {
		fmt.Fprintln(out, "No text available for comparison.")
		return
	}
	if result.Identical {
		fmt.Fprintln(out, "No differences.")
		return
	}

	var sb strings.Builder
	for _, token := range tokens {
		switch token.Kind {
		case worddiff.Removed:
			sb.WriteString("[-" + token.Value + "-]")
		case worddiff.Added:
			sb.WriteString("{+" + token.Value + "+}")
		default:
			sb.WriteString(token.Value)
		}
	}
	fmt.Fprintln(out, sb.String())
	fmt.Fprintf(out, "%d changes (%d words removed, %d words added)\n", result.ChangeCount, result.RemovedWords, result.AddedWords)
}

func truncateString(inputStr string, maxLength int) string {
	if len(inputStr) <= maxLength {
		return inputStr
	}
	if maxLength <= 3 {
		return inputStr[:maxLength]
	}
	return inputStr[:maxLength-3] + "..."
}
