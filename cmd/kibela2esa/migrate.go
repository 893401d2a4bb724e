package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	kibela2esa "github.com/alnah/go-kibela2esa"
	"github.com/alnah/go-kibela2esa/internal/checkpoint"
	"github.com/alnah/go-kibela2esa/internal/config"
	"github.com/alnah/go-kibela2esa/internal/esa"
	"github.com/alnah/go-kibela2esa/internal/hints"
	"github.com/alnah/go-kibela2esa/internal/kibela"
	"github.com/alnah/go-kibela2esa/internal/logging"
)

// Sentinel errors for CLI operations.
var (
	ErrMissingSecrets = errors.New("missing required secrets")
	ErrInvalidFlag    = errors.New("invalid flag value")
	ErrUnexpectedArgs = errors.New("unexpected arguments")
	ErrIncomplete     = errors.New("migration incomplete")
)

// runMigrateCmd parses flags, runs the migration and returns an exit code.
func runMigrateCmd(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseMigrateFlags(args, env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		return exitCodeFor(fmt.Errorf("%w: %w", ErrInvalidFlag, err))
	}
	if len(positional) > 0 {
		fmt.Fprintf(env.Stderr, "%v: %s\n", ErrUnexpectedArgs, strings.Join(positional, " "))
		return ExitUsage
	}

	if err := runMigrate(ctx, flags, env); err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runMigrate orchestrates one migration run.
func runMigrate(ctx context.Context, flags *migrateFlags, env *Environment) error {
	warnUnknownEnvVars(env.Stderr, env.Environ())
	envCfg := loadEnvConfig(env.Getenv)

	cfg, err := resolveConfig(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	if err := mergeMigrateFlags(flags, cfg); err != nil {
		return err
	}
	if err := cfg.RequireComplete(); err != nil {
		return err
	}

	envFile := flags.common.envFile
	if envFile == "" {
		envFile = envCfg.EnvFile
	}
	secrets, err := config.LoadSecrets(envFile)
	if err != nil {
		return err
	}
	if missing := secrets.Missing(flags.dryRun); len(missing) > 0 {
		return fmt.Errorf("%w: %s%s", ErrMissingSecrets, strings.Join(missing, ", "), hints.ForMissingSecrets(missing))
	}

	runLog, err := logging.OpenRunLog(cfg.Migration.LogDir, env.Now())
	if err != nil {
		return fmt.Errorf("%w%s", err, hints.ForOutputDirectory())
	}
	defer func() { _ = runLog.Close() }()

	runID := logging.NewRunID()
	logger := logging.New(logging.Options{
		Console:      env.Stderr,
		ConsoleLevel: consoleLevel(flags.common),
		File:         runLog,
		RunID:        runID,
	})
	logger.Info("migration starting",
		slog.String("source_team", cfg.Source.Team),
		slog.String("destination_team", cfg.Destination.Team),
		slog.Bool("dry_run", flags.dryRun),
		slog.String("run_log", runLog.Name()))

	settings := cfg.Settings()
	corpus, err := loadCorpus(cfg, settings, logger)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(ctx, checkpoint.Config{
		Driver: cfg.Checkpoint.Driver,
		DSN:    cfg.Checkpoint.DSN,
		Prefix: cfg.Destination.Team,
	})
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	opts := []kibela2esa.MigratorOption{
		kibela2esa.WithLogger(logger),
		kibela2esa.WithDryRun(flags.dryRun),
		kibela2esa.WithPacing(cfg.Migration.Pacing),
		kibela2esa.WithRetry(uint(max(cfg.Migration.Attempts, 1)), cfg.Migration.RetryDelay), // #nosec G115 -- clamped to >= 1
		kibela2esa.WithMaxRetryDelay(cfg.Migration.MaxRetryDelay),
		kibela2esa.WithReportPath(cfg.Migration.ReportPath),
	}
	if store != nil {
		opts = append(opts, kibela2esa.WithLedger(store))
	}

	if !flags.dryRun {
		lookup, err := newRedirectLookup(cfg, secrets, logger)
		if err != nil {
			return err
		}
		if lookup != nil {
			opts = append(opts, kibela2esa.WithRedirectLookup(lookup))
		}
	}

	var dest kibela2esa.Destination
	if !flags.dryRun {
		client, err := esa.NewClient(esa.Config{
			Team:        cfg.Destination.Team,
			AccessToken: secrets.ESAAccessToken,
			BaseURL:     cfg.Destination.APIURL,
			Timeout:     cfg.Destination.Timeout,
		})
		if err != nil {
			return err
		}
		dest = &esaDestination{client: client}
	}

	migrator, err := kibela2esa.NewMigrator(settings, corpus, dest, opts...)
	if err != nil {
		return err
	}

	summary, runErr := migrator.Run(ctx)
	if summary != nil && !flags.common.quiet {
		printSummary(env.Stdout, corpus, summary, cfg.Migration.ReportPath)
	}
	if runErr != nil {
		if errors.Is(runErr, kibela2esa.ErrReport) {
			return fmt.Errorf("%w%s", runErr, hints.ForOutputDirectory())
		}
		return runErr
	}
	return summaryError(summary)
}

// resolveConfig loads the config file named by flag or environment, or
// starts from defaults, then applies environment overrides.
func resolveConfig(flagConfig string, envCfg *envConfig) (*config.Config, error) {
	name := flagConfig
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(strings.Split(err.Error(), ", ")))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	return cfg, nil
}

// mergeSourceFlags applies source flags to cfg (flags win).
func mergeSourceFlags(f sourceFlags, cfg *config.Config) {
	setIfNotEmpty(&cfg.Source.Dir, f.dir)
	setIfNotEmpty(&cfg.Source.Team, f.team)
	setIfNotEmpty(&cfg.Migration.OnParseError, f.onParseError)
}

// mergeMigrateFlags applies migrate flags to cfg (flags win).
func mergeMigrateFlags(f *migrateFlags, cfg *config.Config) error {
	mergeSourceFlags(f.source, cfg)
	setIfNotEmpty(&cfg.Migration.ReportPath, f.report)
	setIfNotEmpty(&cfg.Migration.LogDir, f.logDir)
	setIfNotEmpty(&cfg.Checkpoint.Driver, f.checkpoint.driver)
	setIfNotEmpty(&cfg.Checkpoint.DSN, f.checkpoint.dsn)

	if f.pacing != "" {
		d, err := time.ParseDuration(f.pacing)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: --pacing %q (use a duration like 500ms)", ErrInvalidFlag, f.pacing)
		}
		cfg.Migration.Pacing = d
	}
	if f.attempts != attemptsUnset {
		if f.attempts < 1 {
			return fmt.Errorf("%w: --attempts must be at least 1, got %d", ErrInvalidFlag, f.attempts)
		}
		cfg.Migration.Attempts = f.attempts
	}
	return nil
}

// consoleLevel maps --quiet and --verbose to a console log level.
func consoleLevel(f commonFlags) slog.Level {
	switch {
	case f.quiet:
		return slog.LevelError
	case f.verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// loadCorpus parses the export named by cfg.
func loadCorpus(cfg *config.Config, settings kibela2esa.Settings, logger *slog.Logger) (*kibela2esa.Corpus, error) {
	parser, err := kibela2esa.NewParser(settings)
	if err != nil {
		return nil, err
	}
	policy := kibela2esa.SkipOnParseError
	if cfg.Migration.OnParseError == config.OnParseErrorAbort {
		policy = kibela2esa.AbortOnParseError
	}

	corpus, err := kibela2esa.LoadCorpus(cfg.Source.Dir, parser, policy, logger)
	if err != nil {
		if errors.Is(err, kibela2esa.ErrNoExports) {
			return nil, fmt.Errorf("%w%s", err, hints.ForSourceDir(cfg.Source.Team))
		}
		return nil, err
	}
	return corpus, nil
}

// newRedirectLookup returns the wiki redirect client, or nil when no
// session is available; wiki links then stay unresolved.
func newRedirectLookup(cfg *config.Config, secrets config.Secrets, logger *slog.Logger) (*kibela.Client, error) {
	if secrets.KibelaSessionID == "" {
		logger.Warn("wiki links will not be resolved",
			slog.String("hint", strings.TrimSpace(hints.ForRedirectLookup(false))))
		return nil, nil
	}
	opts := []kibela.Option{}
	if cfg.Destination.Timeout > 0 {
		opts = append(opts, kibela.WithTimeout(cfg.Destination.Timeout))
	}
	return kibela.NewClient(cfg.Source.BaseURL, secrets.KibelaSessionID, opts...)
}

// summaryError turns per-document failures into a run error. Any
// destination failure makes it a destination error.
func summaryError(summary *kibela2esa.Summary) error {
	if summary == nil || !summary.Failed() {
		return nil
	}
	err := fmt.Errorf("%w: %d failures", ErrIncomplete, len(summary.Failures))
	for _, f := range summary.Failures {
		if errors.Is(f, kibela2esa.ErrDestination) {
			var apiErr *esa.APIError
			hint := ""
			if errors.As(f, &apiErr) {
				hint = hints.ForDestinationStatus(apiErr.StatusCode)
			}
			return fmt.Errorf("%w; first: %w%s", err, f, hint)
		}
	}
	return err
}

// printSummary writes the run counters.
func printSummary(w io.Writer, corpus *kibela2esa.Corpus, s *kibela2esa.Summary, reportPath string) {
	title := "Migration summary"
	if s.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  documents:   %d parsed, %d skipped\n", len(corpus.Documents), len(corpus.Skipped))
	fmt.Fprintf(w, "  attachments: %d uploaded, %d resumed, %d rejected\n",
		s.AttachmentsUploaded, s.AttachmentsResumed, s.AttachmentsRejected)
	fmt.Fprintf(w, "  posts:       %d created, %d resumed, %d updated\n",
		s.PostsCreated, s.PostsResumed, s.PostsUpdated)
	fmt.Fprintf(w, "  comments:    %d created\n", s.CommentsCreated)
	fmt.Fprintf(w, "  unresolved:  %d attachment refs, %d links\n", s.UnresolvedAttachments, s.UnresolvedLinks)
	fmt.Fprintf(w, "  failures:    %d\n", len(s.Failures))
	for _, f := range s.Failures {
		fmt.Fprintf(w, "    - %v\n", f)
	}
	if !s.DryRun && s.ReportLines > 0 {
		fmt.Fprintf(w, "  report:      %s (%d lines)\n", reportPath, s.ReportLines)
	}
}
