package main

// Notes:
// - runMain: we test command dispatch and exit codes. Migration and check
//   behavior is covered in migrate_test.go and check_test.go.
// - hasVerboseFlag: we test both spellings.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunMain - Command dispatch
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no command", []string{"kibela2esa"}, ExitUsage, "", "Usage:"},
		{"unknown command", []string{"kibela2esa", "convert"}, ExitUsage, "", `unknown command "convert"`},
		{"version", []string{"kibela2esa", "version"}, ExitSuccess, "kibela2esa dev", ""},
		{"--version", []string{"kibela2esa", "--version"}, ExitSuccess, "kibela2esa dev", ""},
		{"help", []string{"kibela2esa", "help"}, ExitSuccess, "Usage:", ""},
		{"help migrate", []string{"kibela2esa", "help", "migrate"}, ExitSuccess, "--dry-run", ""},
		{"help check", []string{"kibela2esa", "help", "check"}, ExitSuccess, "--json", ""},
		{"help env", []string{"kibela2esa", "help", "env"}, ExitSuccess, "KIBELA2ESA_SOURCE_DIR", ""},
		{"help unknown", []string{"kibela2esa", "help", "nope"}, ExitUsage, "", "nope"},
		{"check usage error", []string{"kibela2esa", "check", "--bogus"}, ExitUsage, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, stdout, stderr := testEnv(nil)

			code := runMain(context.Background(), tt.args, env)
			if code != tt.wantCode {
				t.Errorf("exit = %d, want %d\nstderr: %s", code, tt.wantCode, stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout missing %q:\n%s", tt.wantStdout, stdout.String())
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantStderr, stderr.String())
			}
		})
	}
}

func TestHasVerboseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"kibela2esa", "migrate"}, false},
		{[]string{"kibela2esa", "migrate", "-v"}, true},
		{[]string{"kibela2esa", "check", "--verbose"}, true},
		{[]string{"kibela2esa", "migrate", "-vq"}, false},
	}
	for _, tt := range tests {
		if got := hasVerboseFlag(tt.args); got != tt.want {
			t.Errorf("hasVerboseFlag(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
