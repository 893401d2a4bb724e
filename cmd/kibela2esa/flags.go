package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// attemptsUnset detects if --attempts was explicitly set.
const attemptsUnset = -1

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	envFile string
	quiet   bool
	verbose bool
}

// sourceFlags holds flags locating and parsing the export.
type sourceFlags struct {
	dir          string
	team         string
	onParseError string
}

// checkpointFlags holds resume ledger flags.
type checkpointFlags struct {
	driver string
	dsn    string
}

// migrateFlags holds all flags for the migrate command.
type migrateFlags struct {
	common     commonFlags
	source     sourceFlags
	checkpoint checkpointFlags
	dryRun     bool
	report     string
	logDir     string
	pacing     string
	attempts   int
}

// checkFlags holds all flags for the check command.
type checkFlags struct {
	common commonFlags
	source sourceFlags
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.envFile, "env-file", "", "file holding ESA_ACCESS_TOKEN and KIBELA_SESSION_ID (default: .env if present)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show every request payload")
}

// addSourceFlags adds export location flags to a FlagSet.
func addSourceFlags(fs *flag.FlagSet, f *sourceFlags) {
	fs.StringVarP(&f.dir, "source-dir", "s", "", "directory holding kibela-<team>-<n> exports")
	fs.StringVar(&f.team, "source-team", "", "source team name")
	fs.StringVar(&f.onParseError, "on-parse-error", "", "skip or abort when a document cannot be parsed")
}

// addCheckpointFlags adds resume ledger flags to a FlagSet.
func addCheckpointFlags(fs *flag.FlagSet, f *checkpointFlags) {
	fs.StringVar(&f.driver, "checkpoint", "", "resume ledger: none, memory, sqlite, redis")
	fs.StringVar(&f.dsn, "checkpoint-dsn", "", "SQLite file or redis:// URL for the resume ledger")
}

// parseMigrateFlags parses migrate command flags and returns positional args.
func parseMigrateFlags(args []string, usage io.Writer) (*migrateFlags, []string, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &migrateFlags{}

	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "log every request without sending it")
	fs.StringVarP(&f.report, "report", "o", "", "report file path")
	fs.StringVar(&f.logDir, "log-dir", "", "directory for the run log")
	fs.StringVar(&f.pacing, "pacing", "", "minimum interval between writes (e.g. 500ms, 1s)")
	fs.IntVar(&f.attempts, "attempts", attemptsUnset, "tries per destination call")

	addCommonFlags(fs, &f.common)
	addSourceFlags(fs, &f.source)
	addCheckpointFlags(fs, &f.checkpoint)

	fs.Usage = func() { printMigrateUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseCheckFlags parses check command flags and returns positional args.
func parseCheckFlags(args []string, usage io.Writer) (*checkFlags, []string, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &checkFlags{}

	fs.BoolVar(&f.json, "json", false, "print the result as JSON")
	addCommonFlags(fs, &f.common)
	addSourceFlags(fs, &f.source)

	fs.Usage = func() { printCheckUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
