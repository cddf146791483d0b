// awslate: translate a JSON locale file into many languages with Amazon
// Translate, preserving the document's shape.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/awstranslate"
	"github.com/minios-linux/awslate/config"
	"github.com/minios-linux/awslate/i18n"
	"github.com/minios-linux/awslate/jsontree"
	"github.com/minios-linux/awslate/langmeta"
	"github.com/minios-linux/awslate/localefile"
	"github.com/minios-linux/awslate/pipeline"
	"github.com/minios-linux/awslate/report"
	"github.com/minios-linux/awslate/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// errRunFailed is returned after the summary has already explained what
// went wrong.
var errRunFailed = errors.New("run failed")

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "awslate",
		Short: "Translate JSON locale files with Amazon Translate",
		Long: `awslate translates every string in a JSON locale file into many languages
using Amazon Translate. Keys, nesting, array order and non-string values are
kept exactly; one output file is written per target language.

Commands:
  translate   Translate the source file into every target language
  languages   List the languages Amazon Translate supports
  inspect     Show every translatable string of the source file
  version     Show version information

Settings are read from .awslate.yaml or .awslate.toml in the project root,
then AWSLATE_PROFILE, AWSLATE_REGION and AWSLATE_ENDPOINT, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newTranslateCmd(),
		newLanguagesCmd(),
		newInspectCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			logError("%v", err)
		}
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("awslate version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Settings from file, environment and flags
// ---------------------------------------------------------------------------

// settingsFlags are the flags shared by commands that read settings.
type settingsFlags struct {
	profile  string
	region   string
	endpoint string
	input    string
	source   string
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS shared config profile (default: AWS_PROFILE, then \"default\")")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (default: AWS_REGION or the profile's region, then \"us-east-1\")")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Override the Amazon Translate endpoint URL")
	cmd.Flags().StringVar(&f.input, "input", "", "Source locale file (default \"assets/original/en.json\")")
	cmd.Flags().StringVar(&f.source, "source", "", "Source language code (default \"en\")")
}

func (f *settingsFlags) apply(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("profile") {
		s.Profile = f.profile
	}
	if flags.Changed("region") {
		s.Region = f.region
	}
	if flags.Changed("endpoint") {
		s.Endpoint = f.endpoint
	}
	if flags.Changed("input") {
		s.Input = f.input
	}
	if flags.Changed("source") {
		s.SourceLang = langmeta.Canonicalize(f.source)
	}
}

// loadSettings resolves settings for the current --root. extra applies
// command-specific flags before paths are resolved and validated.
func loadSettings(cmd *cobra.Command, f *settingsFlags, extra func(*config.Settings)) (config.Settings, error) {
	s, err := config.Load(rootDir, os.Getenv)
	if err != nil {
		return s, err
	}
	if s.Source != "" {
		logInfo(i18n.T("Using settings from %s"), s.Source)
	}
	f.apply(cmd, &s)
	if extra != nil {
		extra(&s)
	}
	s.Resolve(rootDir)
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func newClient(ctx context.Context, s config.Settings) (*awstranslate.Client, error) {
	return awstranslate.New(ctx, awstranslate.Options{
		Profile:  s.Profile,
		Region:   s.Region,
		Endpoint: s.Endpoint,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	settingsFlags

	langs         string
	exclude       string
	outputDir     string
	outputPattern string
	indent        string
	reportPath    string

	maxConcurrent int
	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	timeout       time.Duration

	dryRun  bool
	strict  bool
	verbose bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate the source file into every target language",
		Long: `Translate every string leaf of the source JSON file into each target
language and write <output-dir>/<lang>.json.

Strings that cannot be translated after all retries keep their original text
and are listed in the summary. The command fails if any language could not be
written, or with --strict if any string kept its original text.

Examples:
  # Translate into every language Amazon Translate supports
  awslate translate

  # Translate specific languages with a named AWS profile
  awslate translate --profile translator --lang fr,de,ja

  # Everything except two languages, with a YAML run report
  awslate translate --exclude fa,ps --report translate-report.yaml

  # Show what would be translated without calling the service
  awslate translate --lang fr --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, &a)
		},
	}

	a.registerFlags(cmd)

	return cmd
}

// registerFlags registers the translate command's flags on cmd.
func (a *translateArgs) registerFlags(cmd *cobra.Command) {
	a.register(cmd)

	// Target selection
	cmd.Flags().StringVar(&a.langs, "lang", "", "Target languages (comma-separated, default: all supported)")
	cmd.Flags().StringVar(&a.exclude, "exclude", "", "Languages to skip (comma-separated)")

	// Output
	cmd.Flags().StringVar(&a.outputDir, "output-dir", "", "Directory for translated files (default \"assets/translated\")")
	cmd.Flags().StringVar(&a.outputPattern, "output-pattern", "", "Output file name, {lang} is the language code (default \"{lang}.json\")")
	cmd.Flags().StringVar(&a.indent, "indent", "", "Output indentation (default two spaces, \"\" for compact)")
	cmd.Flags().StringVar(&a.reportPath, "report", "", "Write a YAML run report to this file")

	// Dispatch
	cmd.Flags().IntVar(&a.maxConcurrent, "max-concurrent", 0, "Maximum concurrent requests across all languages (default 5)")
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 0, "Retries per string after the first attempt (default 5)")
	cmd.Flags().DurationVar(&a.retryDelay, "retry-delay", 0, "Backoff before the first retry, doubled each retry (default 1s)")
	cmd.Flags().DurationVar(&a.maxRetryDelay, "max-retry-delay", 0, "Maximum backoff between retries (default 30s)")
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, "Per-request timeout (default none)")

	// Behavior
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be translated without calling the service")
	cmd.Flags().BoolVar(&a.strict, "strict", false, "Fail if any string kept its original text")
	cmd.Flags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every retry")
}

// applyTranslateFlags copies explicitly set translate flags into s.
func applyTranslateFlags(cmd *cobra.Command, a *translateArgs, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("lang") {
		s.Languages = splitList(a.langs)
	}
	if flags.Changed("exclude") {
		s.ExcludeLanguages = splitList(a.exclude)
	}
	if flags.Changed("output-dir") {
		s.OutputDir = a.outputDir
	}
	if flags.Changed("output-pattern") {
		s.OutputPattern = a.outputPattern
	}
	if flags.Changed("indent") {
		s.Indent = a.indent
	}
	if flags.Changed("report") {
		s.Report = a.reportPath
	}
	if flags.Changed("max-concurrent") {
		s.MaxConcurrent = a.maxConcurrent
	}
	if flags.Changed("max-retries") {
		s.MaxRetries = a.maxRetries
	}
	if flags.Changed("retry-delay") {
		s.RetryDelay = a.retryDelay
	}
	if flags.Changed("max-retry-delay") {
		s.MaxRetryDelay = a.maxRetryDelay
	}
	if flags.Changed("timeout") {
		s.Timeout = a.timeout
	}
}

func runTranslate(cmd *cobra.Command, a *translateArgs) error {
	s, err := loadSettings(cmd, &a.settingsFlags, func(s *config.Settings) {
		applyTranslateFlags(cmd, a, s)
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	// An explicit language list needs no service call for a dry run.
	var client *awstranslate.Client
	if !a.dryRun || len(s.Languages) == 0 {
		if client, err = newClient(ctx, s); err != nil {
			return err
		}
	}

	targets, err := translate.Targets(ctx, client, s.SourceLang, s.Languages, s.ExcludeLanguages)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return apperr.Config("no target languages left after filtering", nil)
	}

	logInfo(i18n.T("Source: %s (%s)"), s.Input, langmeta.Resolve(s.SourceLang).Name)
	logInfo(i18n.N("Translating into %d language", "Translating into %d languages", len(targets)), len(targets))

	plan := pipeline.Plan{
		Input:         s.Input,
		SourceLang:    s.SourceLang,
		Targets:       targets,
		OutputDir:     s.OutputDir,
		OutputPattern: s.OutputPattern,
		Indent:        s.Indent,
		DryRun:        a.dryRun,
		Options: translate.Options{
			MaxConcurrent: s.MaxConcurrent,
			MaxRetries:    s.MaxRetries,
			RetryDelay:    s.RetryDelay,
			MaxRetryDelay: s.MaxRetryDelay,
			Timeout:       s.Timeout,
			Verbose:       a.verbose,
			OnProgress:    progressLogger(),
			OnLog: func(format string, args ...any) {
				logInfo(format, args...)
			},
		},
	}

	start := time.Now()
	var svc translate.Service
	if client != nil {
		svc = client
	}
	rep, err := pipeline.Run(ctx, plan, svc)
	if err != nil {
		if ctx.Err() != nil {
			logWarning(i18n.T("Interrupted, no files were written"))
			writeReport(rep, s.Report)
			return errRunFailed
		}
		return err
	}

	if a.dryRun {
		printDryRun(rep, s.Input, a.verbose)
		return nil
	}

	fmt.Fprintln(os.Stderr)
	rep.WriteSummary(os.Stderr)
	fmt.Fprintln(os.Stderr)
	writeReport(rep, s.Report)

	elapsed := time.Since(start).Round(time.Millisecond)
	written := rep.Written()
	logSuccess(i18n.N("Completed %d translation in %s", "Completed %d translations in %s", written), written, elapsed)

	if failed := rep.FailedLanguages(); len(failed) > 0 {
		logError(i18n.T("Not written: %s"), strings.Join(failed, ", "))
		return errRunFailed
	}
	if rep.HasLeafFailures() {
		n := len(rep.Failures)
		if a.strict {
			logError(i18n.N("%d string kept its original text", "%d strings kept their original text", n), n)
			return errRunFailed
		}
		logWarning(i18n.N("%d string kept its original text", "%d strings kept their original text", n), n)
	}
	return nil
}

// progressLogger reports each language at every quarter of its leaves.
func progressLogger() func(lang string, done, total int) {
	return func(lang string, done, total int) {
		step := max(total/4, 1)
		if done != total && done%step != 0 {
			return
		}
		percent := 0
		if total > 0 {
			percent = done * 100 / total
		}
		logInfo("  %-7s %s  %d/%d", lang, progressBar(percent, 20), done, total)
	}
}

func printDryRun(rep *report.Report, input string, verbose bool) {
	for _, l := range rep.Languages {
		logInfo(i18n.T("%s (%s): %d strings -> %s"), l.Lang, l.Name, l.Leaves, l.Output)
	}
	if !verbose {
		return
	}
	root, err := localefile.ReadFile(input)
	if err != nil {
		logError("%v", err)
		return
	}
	for _, leaf := range jsontree.Walk(root) {
		fmt.Fprintf(os.Stderr, "  %s\n", leaf.Path)
	}
}

func writeReport(rep *report.Report, path string) {
	if rep == nil || path == "" {
		return
	}
	if err := rep.WriteFile(path); err != nil {
		logError(i18n.T("Writing report: %v"), err)
		return
	}
	logInfo(i18n.T("Report written to %s"), path)
}

// ---------------------------------------------------------------------------
// languages
// ---------------------------------------------------------------------------

func newLanguagesCmd() *cobra.Command {
	var f settingsFlags

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the languages Amazon Translate supports",
		Long: `Query Amazon Translate for its supported languages. The source language
is marked with *; auto (language detection) is never used as a target.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, &f, nil)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			client, err := newClient(ctx, s)
			if err != nil {
				return err
			}
			langs, err := client.ListLanguages(ctx)
			if err != nil {
				return err
			}
			sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })

			width := langColumnWidth(langs)
			for _, l := range langs {
				mark := " "
				if langmeta.Canonicalize(l.Code) == s.SourceLang {
					mark = "*"
				}
				fmt.Printf("%s %-*s  %-28s %s\n", mark, width, l.Code, l.Name, langmeta.Resolve(l.Code).Native)
			}
			logInfo(i18n.N("%d language", "%d languages", len(langs)), len(langs))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// ---------------------------------------------------------------------------
// inspect
// ---------------------------------------------------------------------------

func newInspectCmd() *cobra.Command {
	var f settingsFlags

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show every translatable string of the source file",
		Long: `Print the path and text of every string leaf in the source file, in the
order they would be translated. Empty or whitespace-only strings are marked;
they are copied unchanged and never sent to the service.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, &f, func(s *config.Settings) {
				if len(args) == 1 {
					s.Input = args[0]
				}
			})
			if err != nil {
				return err
			}
			root, err := localefile.ReadFile(s.Input)
			if err != nil {
				return err
			}
			leaves := jsontree.Walk(root)
			skipped := 0
			for _, leaf := range leaves {
				mark := ""
				if strings.TrimSpace(leaf.Text) == "" {
					mark = "  (skipped)"
					skipped++
				}
				fmt.Printf("%s\t%s%s\n", leaf.Path, strconv.Quote(leaf.Text), mark)
			}
			logInfo(i18n.N("%d string leaf", "%d string leaves", len(leaves)), len(leaves))
			if skipped > 0 {
				logInfo(i18n.N("%d empty string is copied unchanged", "%d empty strings are copied unchanged", skipped), skipped)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = langmeta.Canonicalize(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func langColumnWidth(langs []langmeta.Language) int {
	width := 4
	for _, l := range langs {
		width = max(width, len(l.Code))
	}
	return width
}

func progressBar(percent, width int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 40:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset + fmt.Sprintf(" %3d%%", percent)
}
