package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	flag "github.com/spf13/pflag"

	kibela2esa "github.com/alnah/go-kibela2esa"
	"github.com/alnah/go-kibela2esa/internal/config"
	"github.com/alnah/go-kibela2esa/internal/logging"
)

// Check statuses.
const (
	checkOK       = "ok"
	checkWarnings = "warnings"
	checkErrors   = "errors"
)

// checkResult is what the check command found in an export.
type checkResult struct {
	Status             string            `json:"status"`
	Documents          int               `json:"documents"`
	Attachments        int               `json:"attachments"`
	Comments           int               `json:"comments"`
	Skipped            []checkIssue      `json:"skipped,omitempty"`
	MissingAttachments []checkIssue      `json:"missing_attachments,omitempty"`
	ByKind             map[string]int    `json:"by_kind"`
	Unmapped           []string          `json:"unmapped_authors,omitempty"`
	Categories         map[string]int    `json:"categories,omitempty"`
}

// checkIssue locates one problem.
type checkIssue struct {
	Path    string `json:"path"`
	ID      string `json:"id,omitempty"`
	Problem string `json:"problem"`
}

// runCheckCmd executes the check command and returns an exit code.
// Exit codes: 0 = no parse failures, 1 = parse failures, 2/3 = setup errors.
func runCheckCmd(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseCheckFlags(args, env.Stderr)
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

	result, err := runCheck(ctx, flags, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return exitCodeFor(err)
	}

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else if !flags.common.quiet || result.Status != checkOK {
		printCheckResult(env.Stdout, result)
	}

	if result.Status == checkErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runCheck loads the corpus without touching the network.
func runCheck(ctx context.Context, flags *checkFlags, env *Environment) (*checkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	warnUnknownEnvVars(env.Stderr, env.Environ())
	envCfg := loadEnvConfig(env.Getenv)

	cfg, err := resolveConfig(flags.common.config, envCfg)
	if err != nil {
		return nil, err
	}
	mergeSourceFlags(flags.source, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := consoleLevel(flags.common)
	if flags.json {
		level = slog.LevelError
	}
	logger := logging.New(logging.Options{Console: env.Stderr, ConsoleLevel: level})

	settings := cfg.Settings()
	// check always collects every parse failure.
	cfg.Migration.OnParseError = config.OnParseErrorSkip
	corpus, err := loadCorpus(cfg, settings, logger)
	if err != nil {
		return nil, err
	}
	return inspectCorpus(corpus, settings), nil
}

// inspectCorpus summarizes corpus problems.
func inspectCorpus(corpus *kibela2esa.Corpus, settings kibela2esa.Settings) *checkResult {
	result := &checkResult{
		Status:      checkOK,
		Documents:   len(corpus.Documents),
		Attachments: corpus.Attachments.Len(),
		ByKind:      map[string]int{},
		Categories:  map[string]int{},
	}

	unmapped := map[string]bool{}
	for _, doc := range corpus.Documents {
		result.ByKind[string(doc.Kind)]++
		result.Categories[doc.Category]++
		result.Comments += len(doc.Comments)

		handles := []string{doc.AuthorHandle}
		for _, c := range doc.Comments {
			handles = append(handles, c.AuthorHandle)
		}
		for _, h := range handles {
			if _, ok := settings.MappedUser(h); !ok && h != "" && !unmapped[h] {
				unmapped[h] = true
				result.Unmapped = append(result.Unmapped, h)
			}
		}
	}

	for _, skipped := range corpus.Skipped {
		result.Skipped = append(result.Skipped, checkIssue{
			Path:    skipped.Path,
			ID:      skipped.ID,
			Problem: skipped.Err.Error(),
		})
	}
	for _, m := range corpus.MissingAttachments() {
		result.MissingAttachments = append(result.MissingAttachments, checkIssue{
			Path:    m.Path,
			ID:      m.DocumentID,
			Problem: "no attachment for " + m.Ref,
		})
	}

	switch {
	case len(result.Skipped) > 0:
		result.Status = checkErrors
	case len(result.MissingAttachments) > 0 || len(result.Unmapped) > 0:
		result.Status = checkWarnings
	}
	return result
}

// printCheckResult writes a human-readable check report.
func printCheckResult(w io.Writer, r *checkResult) {
	fmt.Fprintf(w, "Status: %s\n", r.Status)
	fmt.Fprintf(w, "  documents:   %d (wikis %d, blogs %d, notes %d)\n",
		r.Documents, r.ByKind[string(kibela2esa.KindWiki)], r.ByKind[string(kibela2esa.KindBlog)], r.ByKind[string(kibela2esa.KindNote)])
	fmt.Fprintf(w, "  comments:    %d\n", r.Comments)
	fmt.Fprintf(w, "  attachments: %d\n", r.Attachments)
	fmt.Fprintf(w, "  categories:  %d\n", len(r.Categories))

	if len(r.Skipped) > 0 {
		fmt.Fprintln(w, "\nParse failures (documents will be skipped):")
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", s.Path, s.Problem)
		}
	}
	if len(r.MissingAttachments) > 0 {
		fmt.Fprintln(w, "\nMissing attachments (references stay unchanged):")
		for _, m := range r.MissingAttachments {
			fmt.Fprintf(w, "  %s (id %s): %s\n", m.Path, m.ID, m.Problem)
		}
	}
	if len(r.Unmapped) > 0 {
		fmt.Fprintln(w, "\nAuthors without a user mapping (posted as the bot user):")
		fmt.Fprintf(w, "  %s\n", strings.Join(r.Unmapped, ", "))
	}
}
