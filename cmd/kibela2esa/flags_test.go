package main

// Notes:
// - parseMigrateFlags, parseCheckFlags: we test short and long forms, the
//   attempts sentinel, and positional arguments.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	flag "github.com/spf13/pflag"
)

// ---------------------------------------------------------------------------
// TestParseMigrateFlags - migrate flag parsing
// ---------------------------------------------------------------------------

func TestParseMigrateFlags(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		f, rest, err := parseMigrateFlags(nil, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		if f.attempts != attemptsUnset || f.dryRun || f.pacing != "" || len(rest) != 0 {
			t.Errorf("defaults = %+v, rest %v", f, rest)
		}
	})

	t.Run("all flags", func(t *testing.T) {
		t.Parallel()
		args := []string{
			"-c", "prod", "--env-file", "x.env", "-q", "-v",
			"-s", "/exports", "--source-team", "acme", "--on-parse-error", "abort",
			"-n", "-o", "out.tsv", "--log-dir", "logs", "--pacing", "1s", "--attempts", "3",
			"--checkpoint", "redis", "--checkpoint-dsn", "redis://localhost:6379/0",
			"extra",
		}
		f, rest, err := parseMigrateFlags(args, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		want := migrateFlags{
			common:     commonFlags{config: "prod", envFile: "x.env", quiet: true, verbose: true},
			source:     sourceFlags{dir: "/exports", team: "acme", onParseError: "abort"},
			checkpoint: checkpointFlags{driver: "redis", dsn: "redis://localhost:6379/0"},
			dryRun:     true,
			report:     "out.tsv",
			logDir:     "logs",
			pacing:     "1s",
			attempts:   3,
		}
		if *f != want {
			t.Errorf("flags = %+v\nwant    %+v", *f, want)
		}
		if !slices.Equal(rest, []string{"extra"}) {
			t.Errorf("rest = %v", rest)
		}
	})

	t.Run("help", func(t *testing.T) {
		t.Parallel()
		var usage bytes.Buffer
		_, _, err := parseMigrateFlags([]string{"--help"}, &usage)
		if !errors.Is(err, flag.ErrHelp) {
			t.Fatalf("err = %v, want ErrHelp", err)
		}
		if !bytes.Contains(usage.Bytes(), []byte("kibela2esa migrate")) {
			t.Errorf("usage not printed: %s", usage.String())
		}
	})

	t.Run("bad attempts", func(t *testing.T) {
		t.Parallel()
		if _, _, err := parseMigrateFlags([]string{"--attempts", "many"}, &bytes.Buffer{}); err == nil {
			t.Error("expected error")
		}
	})
}

// ---------------------------------------------------------------------------
// TestParseCheckFlags - check flag parsing
// ---------------------------------------------------------------------------

func TestParseCheckFlags(t *testing.T) {
	t.Parallel()

	f, rest, err := parseCheckFlags([]string{"--json", "-s", "dir", "--source-team", "acme"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if !f.json || f.source.dir != "dir" || f.source.team != "acme" || len(rest) != 0 {
		t.Errorf("flags = %+v, rest %v", f, rest)
	}

	if _, _, err := parseCheckFlags([]string{"--dry-run"}, &bytes.Buffer{}); err == nil {
		t.Error("check should not accept --dry-run")
	}
}
