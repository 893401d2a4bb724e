package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	kibela2esa "github.com/alnah/go-kibela2esa"
	"github.com/alnah/go-kibela2esa/internal/checkpoint"
	"github.com/alnah/go-kibela2esa/internal/fileutil"
	"github.com/alnah/go-kibela2esa/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrConfigInvalid   = errors.New("invalid config")
)

// Parse error policies.
const (
	OnParseErrorSkip  = "skip"
	OnParseErrorAbort = "abort"
)

// Field length limits.
const (
	MaxTeamLength     = 100
	MaxURLLength      = 2048
	MaxUserLength     = 100
	MaxCategoryLength = 255
	MaxTemplateLength = 2000
	MaxMessageLength  = 500
)

// Config holds everything a migration run needs besides secrets.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	// Users maps source author handles to destination screen names.
	Users      map[string]string `yaml:"users"`
	Content    ContentConfig     `yaml:"content"`
	Migration  MigrationConfig   `yaml:"migration"`
	Checkpoint CheckpointConfig  `yaml:"checkpoint"`
}

// SourceConfig describes the exported team.
type SourceConfig struct {
	Team    string `yaml:"team"`
	BaseURL string `yaml:"baseURL"` // e.g. https://acme.kibe.la
	Dir     string `yaml:"dir"`     // directory holding kibela-<team>-<n> exports
	Name    string `yaml:"name"`    // shown in the footer (default: Kibela)
}

// DestinationConfig describes the team content is written to.
type DestinationConfig struct {
	Team          string        `yaml:"team"`
	BaseURL       string        `yaml:"baseURL"` // default: https://<team>.esa.io
	APIURL        string        `yaml:"apiURL"`  // default: https://api.esa.io
	BotUser       string        `yaml:"botUser"`
	CommitMessage string        `yaml:"commitMessage"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ContentConfig tunes the content transform.
type ContentConfig struct {
	MigrationRoot       string            `yaml:"migrationRoot"`
	FooterTemplate      string            `yaml:"footerTemplate"`
	FooterDateFormat    string            `yaml:"footerDateFormat"`
	AttributionTemplate string            `yaml:"attributionTemplate"`
	FenceDialects       map[string]string `yaml:"fenceDialects"`
}

// MigrationConfig tunes the run itself.
type MigrationConfig struct {
	Pacing        time.Duration `yaml:"pacing"`
	Attempts      int           `yaml:"attempts"` // tries per destination call
	RetryDelay    time.Duration `yaml:"retryDelay"`
	MaxRetryDelay time.Duration `yaml:"maxRetryDelay"`
	OnParseError  string        `yaml:"onParseError"` // skip (default) or abort
	ReportPath    string        `yaml:"reportPath"`
	LogDir        string        `yaml:"logDir"`
}

// CheckpointConfig selects the resume ledger.
type CheckpointConfig struct {
	Driver string `yaml:"driver"` // none, memory (default), sqlite, redis
	DSN    string `yaml:"dsn"`
}

// DefaultConfig returns a configuration with every optional field set.
// Team names and URLs are left empty.
func DefaultConfig() *Config {
	s := kibela2esa.DefaultSettings()
	return &Config{
		Source: SourceConfig{
			Dir:  ".",
			Name: s.SourceName,
		},
		Destination: DestinationConfig{
			BotUser:       s.BotUser,
			CommitMessage: s.CommitMessage,
		},
		Users: map[string]string{},
		Content: ContentConfig{
			MigrationRoot:       "Kibela",
			FooterTemplate:      s.FooterTemplate,
			FooterDateFormat:    s.FooterDateFormat,
			AttributionTemplate: s.AttributionTemplate,
			FenceDialects:       s.FenceDialects,
		},
		Migration: MigrationConfig{
			Pacing:        kibela2esa.DefaultPacing,
			Attempts:      kibela2esa.DefaultRetryAttempts,
			RetryDelay:    kibela2esa.DefaultRetryDelay,
			MaxRetryDelay: kibela2esa.DefaultMaxRetryDelay,
			OnParseError:  OnParseErrorSkip,
			ReportPath:    "report.tsv",
			LogDir:        ".",
		},
		Checkpoint: CheckpointConfig{Driver: checkpoint.DriverMemory},
	}
}

// Validate checks formats and enumerations. Fields left empty are not
// reported; see RequireComplete for that.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Source,
		validation.Field(&c.Source.Team, validation.Length(0, MaxTeamLength), is.Subdomain),
		validation.Field(&c.Source.BaseURL, validation.Length(0, MaxURLLength), is.URL),
	); err != nil {
		return fmt.Errorf("%w: source: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(&c.Destination,
		validation.Field(&c.Destination.Team, validation.Length(0, MaxTeamLength), is.Subdomain),
		validation.Field(&c.Destination.BaseURL, validation.Length(0, MaxURLLength), is.URL),
		validation.Field(&c.Destination.APIURL, validation.Length(0, MaxURLLength), is.URL),
		validation.Field(&c.Destination.BotUser, validation.Length(0, MaxUserLength)),
		validation.Field(&c.Destination.CommitMessage, validation.Length(0, MaxMessageLength)),
		validation.Field(&c.Destination.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("%w: destination: %v", ErrConfigInvalid, err)
	}

	for handle, user := range c.Users {
		if err := validation.Validate(user, validation.Required, validation.Length(1, MaxUserLength)); err != nil {
			return fmt.Errorf("%w: users.%s: %v", ErrConfigInvalid, handle, err)
		}
	}

	if err := validation.ValidateStruct(&c.Content,
		validation.Field(&c.Content.MigrationRoot, validation.Length(0, MaxCategoryLength)),
		validation.Field(&c.Content.FooterTemplate, validation.Length(0, MaxTemplateLength)),
		validation.Field(&c.Content.AttributionTemplate, validation.Length(0, MaxTemplateLength)),
	); err != nil {
		return fmt.Errorf("%w: content: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(&c.Migration,
		validation.Field(&c.Migration.Pacing, validation.Min(time.Duration(0))),
		validation.Field(&c.Migration.Attempts, validation.Min(0)),
		validation.Field(&c.Migration.RetryDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.Migration.MaxRetryDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.Migration.OnParseError, validation.In(OnParseErrorSkip, OnParseErrorAbort)),
	); err != nil {
		return fmt.Errorf("%w: migration: %v", ErrConfigInvalid, err)
	}

	if err := validation.ValidateStruct(&c.Checkpoint,
		validation.Field(&c.Checkpoint.Driver, validation.In(
			checkpoint.DriverNone, checkpoint.DriverMemory, checkpoint.DriverSQLite, checkpoint.DriverRedis,
		)),
		validation.Field(&c.Checkpoint.DSN, validation.When(
			c.Checkpoint.Driver == checkpoint.DriverSQLite || c.Checkpoint.Driver == checkpoint.DriverRedis,
			validation.Required,
		)),
	); err != nil {
		return fmt.Errorf("%w: checkpoint: %v", ErrConfigInvalid, err)
	}

	return nil
}

// RequireComplete checks the fields a run cannot do without. It is called
// after flags and environment overrides have been merged.
func (c *Config) RequireComplete() error {
	if err := validation.ValidateStruct(&c.Source,
		validation.Field(&c.Source.Team, validation.Required),
		validation.Field(&c.Source.BaseURL, validation.Required),
		validation.Field(&c.Source.Dir, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: source: %v", ErrConfigInvalid, err)
	}
	if err := validation.ValidateStruct(&c.Destination,
		validation.Field(&c.Destination.Team, validation.Required),
		validation.Field(&c.Destination.BotUser, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: destination: %v", ErrConfigInvalid, err)
	}
	return c.Validate()
}

// DestinationBaseURL returns the configured destination URL or the team's
// default esa.io address.
func (c *Config) DestinationBaseURL() string {
	if c.Destination.BaseURL != "" {
		return c.Destination.BaseURL
	}
	if c.Destination.Team == "" {
		return ""
	}
	return "https://" + c.Destination.Team + ".esa.io"
}

// Settings converts the configuration into the library's Settings. Empty
// optional fields fall back to kibela2esa.DefaultSettings.
func (c *Config) Settings() kibela2esa.Settings {
	s := kibela2esa.DefaultSettings()
	s.SourceTeam = c.Source.Team
	s.SourceBaseURL = c.Source.BaseURL
	s.DestinationBaseURL = c.DestinationBaseURL()
	s.MigrationRoot = c.Content.MigrationRoot

	setIfNotEmpty(&s.SourceName, c.Source.Name)
	setIfNotEmpty(&s.BotUser, c.Destination.BotUser)
	setIfNotEmpty(&s.CommitMessage, c.Destination.CommitMessage)
	setIfNotEmpty(&s.FooterTemplate, c.Content.FooterTemplate)
	setIfNotEmpty(&s.FooterDateFormat, c.Content.FooterDateFormat)
	setIfNotEmpty(&s.AttributionTemplate, c.Content.AttributionTemplate)

	if c.Content.FenceDialects != nil {
		s.FenceDialects = c.Content.FenceDialects
	}
	for handle, user := range c.Users {
		s.UserMappings[strings.TrimPrefix(handle, "@")] = user
	}
	return s
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their DefaultConfig value.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var file Config
	if err := yamlutil.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	cfg := DefaultConfig()
	cfg.merge(&file)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// merge copies every non-zero field of other onto c.
func (c *Config) merge(other *Config) {
	setIfNotEmpty(&c.Source.Team, other.Source.Team)
	setIfNotEmpty(&c.Source.BaseURL, other.Source.BaseURL)
	setIfNotEmpty(&c.Source.Dir, other.Source.Dir)
	setIfNotEmpty(&c.Source.Name, other.Source.Name)

	setIfNotEmpty(&c.Destination.Team, other.Destination.Team)
	setIfNotEmpty(&c.Destination.BaseURL, other.Destination.BaseURL)
	setIfNotEmpty(&c.Destination.APIURL, other.Destination.APIURL)
	setIfNotEmpty(&c.Destination.BotUser, other.Destination.BotUser)
	setIfNotEmpty(&c.Destination.CommitMessage, other.Destination.CommitMessage)
	if other.Destination.Timeout != 0 {
		c.Destination.Timeout = other.Destination.Timeout
	}

	for handle, user := range other.Users {
		c.Users[handle] = user
	}

	setIfNotEmpty(&c.Content.MigrationRoot, other.Content.MigrationRoot)
	setIfNotEmpty(&c.Content.FooterTemplate, other.Content.FooterTemplate)
	setIfNotEmpty(&c.Content.FooterDateFormat, other.Content.FooterDateFormat)
	setIfNotEmpty(&c.Content.AttributionTemplate, other.Content.AttributionTemplate)
	if other.Content.FenceDialects != nil {
		c.Content.FenceDialects = other.Content.FenceDialects
	}

	if other.Migration.Pacing != 0 {
		c.Migration.Pacing = other.Migration.Pacing
	}
	if other.Migration.Attempts != 0 {
		c.Migration.Attempts = other.Migration.Attempts
	}
	if other.Migration.RetryDelay != 0 {
		c.Migration.RetryDelay = other.Migration.RetryDelay
	}
	if other.Migration.MaxRetryDelay != 0 {
		c.Migration.MaxRetryDelay = other.Migration.MaxRetryDelay
	}
	setIfNotEmpty(&c.Migration.OnParseError, other.Migration.OnParseError)
	setIfNotEmpty(&c.Migration.ReportPath, other.Migration.ReportPath)
	setIfNotEmpty(&c.Migration.LogDir, other.Migration.LogDir)

	setIfNotEmpty(&c.Checkpoint.Driver, other.Checkpoint.Driver)
	setIfNotEmpty(&c.Checkpoint.DSN, other.Checkpoint.DSN)
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-kibela2esa/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-kibela2esa", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
