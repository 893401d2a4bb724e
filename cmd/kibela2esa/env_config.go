package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-kibela2esa/internal/config"
)

const envPrefix = "KIBELA2ESA_"

// envConfig holds configuration from environment variables.
// Precedence: config file < environment < flags.
type envConfig struct {
	ConfigPath string // KIBELA2ESA_CONFIG
	EnvFile    string // KIBELA2ESA_ENV_FILE

	SourceDir  string // KIBELA2ESA_SOURCE_DIR
	SourceTeam string // KIBELA2ESA_SOURCE_TEAM
	SourceURL  string // KIBELA2ESA_SOURCE_URL
	DestTeam   string // KIBELA2ESA_DEST_TEAM
	DestURL    string // KIBELA2ESA_DEST_URL
	BotUser    string // KIBELA2ESA_BOT_USER

	ReportPath    string        // KIBELA2ESA_REPORT
	LogDir        string        // KIBELA2ESA_LOG_DIR
	Pacing        time.Duration // KIBELA2ESA_PACING
	Attempts      int           // KIBELA2ESA_ATTEMPTS
	Checkpoint    string        // KIBELA2ESA_CHECKPOINT
	CheckpointDSN string        // KIBELA2ESA_CHECKPOINT_DSN
}

// knownEnvVars lists valid KIBELA2ESA_* environment variables with their
// description. Used to detect typos and for 'help env'.
var knownEnvVars = map[string]string{
	"KIBELA2ESA_CONFIG":         "config file name or path",
	"KIBELA2ESA_ENV_FILE":       "secrets file",
	"KIBELA2ESA_SOURCE_DIR":     "source.dir",
	"KIBELA2ESA_SOURCE_TEAM":    "source.team",
	"KIBELA2ESA_SOURCE_URL":     "source.baseURL",
	"KIBELA2ESA_DEST_TEAM":      "destination.team",
	"KIBELA2ESA_DEST_URL":       "destination.baseURL",
	"KIBELA2ESA_BOT_USER":       "destination.botUser",
	"KIBELA2ESA_REPORT":         "migration.reportPath",
	"KIBELA2ESA_LOG_DIR":        "migration.logDir",
	"KIBELA2ESA_PACING":         "migration.pacing (duration)",
	"KIBELA2ESA_ATTEMPTS":       "migration.attempts (integer)",
	"KIBELA2ESA_CHECKPOINT":     "checkpoint.driver",
	"KIBELA2ESA_CHECKPOINT_DSN": "checkpoint.dsn",
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath:    getenv("KIBELA2ESA_CONFIG"),
		EnvFile:       getenv("KIBELA2ESA_ENV_FILE"),
		SourceDir:     getenv("KIBELA2ESA_SOURCE_DIR"),
		SourceTeam:    getenv("KIBELA2ESA_SOURCE_TEAM"),
		SourceURL:     getenv("KIBELA2ESA_SOURCE_URL"),
		DestTeam:      getenv("KIBELA2ESA_DEST_TEAM"),
		DestURL:       getenv("KIBELA2ESA_DEST_URL"),
		BotUser:       getenv("KIBELA2ESA_BOT_USER"),
		ReportPath:    getenv("KIBELA2ESA_REPORT"),
		LogDir:        getenv("KIBELA2ESA_LOG_DIR"),
		Checkpoint:    getenv("KIBELA2ESA_CHECKPOINT"),
		CheckpointDSN: getenv("KIBELA2ESA_CHECKPOINT_DSN"),
	}

	if pacing := getenv("KIBELA2ESA_PACING"); pacing != "" {
		if d, err := time.ParseDuration(pacing); err == nil && d > 0 {
			cfg.Pacing = d
		}
	}
	if attempts := getenv("KIBELA2ESA_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil && n > 0 {
			cfg.Attempts = n
		}
	}

	return cfg
}

// warnUnknownEnvVars writes a warning for every unrecognized KIBELA2ESA_*
// variable. Helps catch typos like KIBELA2ESA_SOURCE_DIRS.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := knownEnvVars[name]; !ok {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overrides config values with the variables that are set.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setIfNotEmpty(&cfg.Source.Dir, env.SourceDir)
	setIfNotEmpty(&cfg.Source.Team, env.SourceTeam)
	setIfNotEmpty(&cfg.Source.BaseURL, env.SourceURL)
	setIfNotEmpty(&cfg.Destination.Team, env.DestTeam)
	setIfNotEmpty(&cfg.Destination.BaseURL, env.DestURL)
	setIfNotEmpty(&cfg.Destination.BotUser, env.BotUser)
	setIfNotEmpty(&cfg.Migration.ReportPath, env.ReportPath)
	setIfNotEmpty(&cfg.Migration.LogDir, env.LogDir)
	setIfNotEmpty(&cfg.Checkpoint.Driver, env.Checkpoint)
	setIfNotEmpty(&cfg.Checkpoint.DSN, env.CheckpointDSN)

	if env.Pacing > 0 {
		cfg.Migration.Pacing = env.Pacing
	}
	if env.Attempts > 0 {
		cfg.Migration.Attempts = env.Attempts
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// printEnvUsage lists the recognized environment variables.
func printEnvUsage(w io.Writer) {
	fmt.Fprintln(w, "Environment variables (config file < environment < flags):")
	fmt.Fprintln(w)
	names := make([]string, 0, len(knownEnvVars))
	for name := range knownEnvVars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-27s %s\n", name, knownEnvVars[name])
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-27s %s\n", config.EnvESAAccessToken, "esa API token (secret)")
	fmt.Fprintf(w, "  %-27s %s\n", config.EnvKibelaSessionID, "Kibela browser session (secret)")
}
