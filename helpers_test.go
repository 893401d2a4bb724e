package kibela2esa

import (
	"context"
	"errors"
	"fmt"
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

const testTeam = "acme"

func testSettings() Settings {
	s := DefaultSettings()
	s.SourceTeam = testTeam
	s.SourceBaseURL = "https://acme.kibe.la"
	s.DestinationBaseURL = "https://acme.esa.io"
	s.MigrationRoot = "Kibela"
	s.UserMappings = map[string]string{"alice": "alice_esa"}
	return s
}

// exportPath returns a path inside a fake export root.
func exportPath(kind Kind, id, name string) string {
	return filepath.Join("/data", "kibela-"+testTeam+"-1", string(kind), id+"-"+name+".md")
}

// exportFile renders a document file with front matter.
func exportFile(frontMatter, body string) []byte {
	return []byte("---\n" + frontMatter + "---\n" + body)
}

const basicFrontMatter = `author: "@alice"
folders:
  - "Engineering/Infra"
published_at: "2020-04-01T10:20:30.000+09:00"
coediting: false
comments: []
`

// writeTree creates files relative to root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func mustParse(t *testing.T, path string, content []byte) *Document {
	t.Helper()
	p, err := NewParser(testSettings())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := p.Parse(path, content)
	if err != nil {
		t.Fatalf("Parse(%s): %v", path, err)
	}
	return doc
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// statusError is a destination error carrying retry hints.
type statusError struct {
	status     int
	retryAfter time.Duration
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.status) }
func (e *statusError) Retryable() bool { return e.status == 429 || e.status >= 500 }
func (e *statusError) RetryAfter() time.Duration { return e.retryAfter }

// localError is a destination error raised before any request was sent.
type localError struct{ msg string }

func (e *localError) Error() string   { return e.msg }
func (e *localError) Retryable() bool { return false }

type updateCall struct {
	number  int
	payload PostPayload
}

type commentCall struct {
	post    int
	payload CommentPayload
}

// fakeDestination records every call and assigns post numbers from 100.
type fakeDestination struct {
	mu sync.Mutex

	nextNumber int
	nextID     int

	posts    []PostPayload
	updates  []updateCall
	comments []commentCall
	uploads  []string

	// Hooks return an error to fail the call; nil hooks succeed.
	createErr  func(p PostPayload) error
	commentErr func(c CommentPayload) error
	uploadResp func(path string) (*UploadResponse, error)
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{nextNumber: 100, nextID: 1}
}

func (f *fakeDestination) CreatePost(_ context.Context, p PostPayload) (*PostResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		if err := f.createErr(p); err != nil {
			return nil, err
		}
	}
	f.posts = append(f.posts, p)
	n := f.nextNumber
	f.nextNumber++
	return &PostResponse{Number: n, URL: fmt.Sprintf("https://acme.esa.io/posts/%d", n)}, nil
}

func (f *fakeDestination) UpdatePost(_ context.Context, number int, p PostPayload) (*PostResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{number: number, payload: p})
	return &PostResponse{Number: number, URL: fmt.Sprintf("https://acme.esa.io/posts/%d", number)}, nil
}

func (f *fakeDestination) CreateComment(_ context.Context, post int, p CommentPayload) (*CommentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		if err := f.commentErr(p); err != nil {
			return nil, err
		}
	}
	f.comments = append(f.comments, commentCall{post: post, payload: p})
	id := f.nextID
	f.nextID++
	return &CommentResponse{ID: id}, nil
}

func (f *fakeDestination) UploadAttachment(_ context.Context, path string) (*UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	if f.uploadResp != nil {
		return f.uploadResp(path)
	}
	return &UploadResponse{URL: "https://files.esa.io/" + filepath.Base(path)}, nil
}

func (f *fakeDestination) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts) + len(f.updates) + len(f.comments) + len(f.uploads)
}

// fakeLookup resolves wiki ids from a table.
type fakeLookup struct {
	mu      sync.Mutex
	table   map[string]string
	err     error
	queries []string
}

func (l *fakeLookup) LookupNoteID(_ context.Context, wikiID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, wikiID)
	if l.err != nil {
		return "", l.err
	}
	return l.table[wikiID], nil
}

// memoryLedger is a map-backed Ledger.
type memoryLedger struct {
	mu      sync.Mutex
	entries map[string]string
	failOn  string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: make(map[string]string)}
}

func (l *memoryLedger) Lookup(_ context.Context, kind, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.entries[kind+"/"+key]
	return v, ok, nil
}

func (l *memoryLedger) Record(_ context.Context, kind, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failOn != "" && strings.HasPrefix(kind+"/"+key, l.failOn) {
		return errors.New("ledger unavailable")
	}
	l.entries[kind+"/"+key] = value
	return nil
}
