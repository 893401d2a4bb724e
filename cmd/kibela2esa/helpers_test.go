package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Shared fixtures
// ---------------------------------------------------------------------------

// testEnv returns an Environment with captured output and the given
// variables. Variables not in vars read as empty.
func testEnv(vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	environ := make([]string, 0, len(vars))
	for k, v := range vars {
		environ = append(environ, k+"="+v)
	}
	return &Environment{
		Now:     func() time.Time { return time.Unix(1700000000, 0) },
		Stdout:  stdout,
		Stderr:  stderr,
		Getenv:  func(k string) string { return vars[k] },
		Environ: func() []string { return environ },
	}, stdout, stderr
}

const exportFrontMatter = `author: "@alice"
folders:
  - "Engineering"
published_at: "2020-04-01T10:20:30.000+09:00"
coediting: false
comments:
  - content: "nice"
    author: "@bob"
    published_at: "2020-04-02T10:20:30.000+09:00"
`

// writeExport creates a one-export corpus under dir and returns dir.
func writeExport(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func exportDoc(title, body string) string {
	return "---\n" + exportFrontMatter + "---\n# " + title + "\n\n" + body
}

// writeConfig writes a config file into dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "kibela2esa.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------------------------------------------------------------------------
// Fake esa API
// ---------------------------------------------------------------------------

type esaRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeESA records requests and answers like the esa v1 API.
type fakeESA struct {
	mu       sync.Mutex
	requests []esaRequest
	next     int
	status   int // non-zero forces every response to this status
}

func newFakeESA(t *testing.T) (*fakeESA, *httptest.Server) {
	t.Helper()
	f := &fakeESA{}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeESA) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.requests = append(f.requests, esaRequest{Method: r.Method, Path: r.URL.Path, Body: body})

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":"forbidden","message":"not allowed"}`))
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/comments"):
		f.next++
		_ = json.NewEncoder(w).Encode(map[string]any{"id": f.next, "url": "https://acme.esa.io/comments"})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/posts"):
		f.next++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number": f.next,
			"url":    fmt.Sprintf("https://acme.esa.io/posts/%d", f.next),
		})
	case r.Method == http.MethodPatch:
		_ = json.NewEncoder(w).Encode(map[string]any{"number": 1, "url": "https://acme.esa.io/posts/1"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// count returns how many requests matched method and path suffix.
func (f *fakeESA) count(method, suffix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			n++
		}
	}
	return n
}

func (f *fakeESA) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
