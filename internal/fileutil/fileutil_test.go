package fileutil_test

// Notes:
// - The Write, Close and Chmod error branches in WriteFileAtomic are not tested
//   because triggering disk write failures is platform-specific.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alnah/go-kibela2esa/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestWriteFileAtomic - Atomic file replacement
// ---------------------------------------------------------------------------

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing string
		content  string
	}{
		{
			name:    "new file",
			content: "\"a\"\t\"b\"\t\"c\"\n",
		},
		{
			name:     "replaces existing file",
			existing: "stale",
			content:  "fresh",
		},
		{
			name:    "empty content",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "report.tsv")
			if tt.existing != "" {
				if err := os.WriteFile(path, []byte(tt.existing), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			if err := fileutil.WriteFileAtomic(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFileAtomic() unexpected error: %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.content {
				t.Errorf("content = %q, want %q", got, tt.content)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("directory has %d entries, want 1 (temp file leaked)", len(entries))
			}
		})
	}
}

func TestWriteFileAtomic_Errors(t *testing.T) {
	t.Parallel()

	if err := fileutil.WriteFileAtomic("", nil, 0o644); !errors.Is(err, fileutil.ErrEmptyPath) {
		t.Errorf("empty path error = %v, want %v", err, fileutil.ErrEmptyPath)
	}

	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "report.tsv")
	if err := fileutil.WriteFileAtomic(missing, []byte("x"), 0o644); err == nil {
		t.Error("expected error for missing parent directory, got nil")
	}
}

// ---------------------------------------------------------------------------
// TestEnsureDir - Directory creation
// ---------------------------------------------------------------------------

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs", "2024")
	if err := fileutil.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() unexpected error: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("EnsureDir(%q) did not create a directory: %v", dir, err)
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir() on existing dir: %v", err)
	}
	if err := fileutil.EnsureDir(""); err != nil {
		t.Errorf("EnsureDir(\"\") = %v, want nil", err)
	}
}

// ---------------------------------------------------------------------------
// TestFileExists - Regular file detection
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.md")
	if err := os.WriteFile(file, []byte("# a"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		wantFile bool
	}{
		{name: "regular file", path: file, wantFile: true},
		{name: "directory", path: dir},
		{name: "missing", path: filepath.Join(dir, "missing")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := fileutil.FileExists(tt.path); got != tt.wantFile {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.wantFile)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestIsFilePath - Name vs path detection
// ---------------------------------------------------------------------------

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"migration", false},
		{"my-config", false},
		{"./migration.yaml", true},
		{"../shared/migration.yaml", true},
		{"/etc/kibela2esa/prod.yaml", true},
		{"C:\\config\\prod.yaml", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := fileutil.IsFilePath(tt.input); got != tt.want {
				t.Errorf("IsFilePath(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
