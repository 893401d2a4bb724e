package kibela2esa

import (
	"errors"
	"fmt"
	"testing"
)

// ---------------------------------------------------------------------------
// TestDocument_AssignDestination - Destination is set at most once
// ---------------------------------------------------------------------------

func TestDocument_AssignDestination(t *testing.T) {
	t.Parallel()

	doc := &Document{ID: "1"}
	if err := doc.AssignDestination(10, "https://acme.esa.io/posts/10"); err != nil {
		t.Fatalf("AssignDestination() unexpected error: %v", err)
	}
	if err := doc.AssignDestination(11, "https://acme.esa.io/posts/11"); !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("second AssignDestination() error = %v, want %v", err, ErrAlreadyAssigned)
	}

	number, ok := doc.DestinationID()
	if !ok || number != 10 {
		t.Errorf("DestinationID() = (%d, %v), want (10, true)", number, ok)
	}
	if doc.DestinationURL() != "https://acme.esa.io/posts/10" {
		t.Errorf("DestinationURL() = %q", doc.DestinationURL())
	}
}

// ---------------------------------------------------------------------------
// TestDocument_WIP - Work-in-progress marker
// ---------------------------------------------------------------------------

func TestDocument_WIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  bool
	}{
		{"[WIP] Draft", true},
		{"wip: notes", true},
		{"Swipe gestures", true},
		{"Release notes", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			doc := &Document{Title: tt.title}
			if got := doc.WIP(); got != tt.want {
				t.Errorf("WIP() for %q = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestLinkMapping - Write-once entries and freezing
// ---------------------------------------------------------------------------

func TestLinkMapping(t *testing.T) {
	t.Parallel()

	m := NewLinkMapping()
	if err := m.Set("7", LinkTarget{DestinationID: 101, Title: "Intro"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("7", LinkTarget{DestinationID: 102}); !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("duplicate Set() error = %v, want %v", err, ErrAlreadyAssigned)
	}

	m.Freeze()
	if !m.Frozen() {
		t.Error("Frozen() = false after Freeze")
	}
	if err := m.Set("8", LinkTarget{DestinationID: 103}); !errors.Is(err, ErrMappingFrozen) {
		t.Errorf("Set() after Freeze error = %v, want %v", err, ErrMappingFrozen)
	}

	got, ok := m.Get("7")
	if !ok || got.DestinationID != 101 || got.Title != "Intro" {
		t.Errorf("Get(7) = (%+v, %v)", got, ok)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

// ---------------------------------------------------------------------------
// TestSettings - User mapping and URL helpers
// ---------------------------------------------------------------------------

func TestSettings(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.SourceBaseURL += "/"

	if user, ok := s.MappedUser("alice"); !ok || user != "alice_esa" {
		t.Errorf("MappedUser(alice) = (%q, %v)", user, ok)
	}
	if user, ok := s.MappedUser("bob"); ok || user != DefaultBotUser {
		t.Errorf("MappedUser(bob) = (%q, %v), want bot user", user, ok)
	}
	if got := s.SourceURL("7"); got != "https://acme.kibe.la/notes/7" {
		t.Errorf("SourceURL() = %q", got)
	}
	if got := s.DestinationURL(101); got != "https://acme.esa.io/posts/101" {
		t.Errorf("DestinationURL() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestDocumentError - Message and unwrapping
// ---------------------------------------------------------------------------

func TestDocumentError(t *testing.T) {
	t.Parallel()

	withID := newDocumentError(StageCreate, "/x/7-a.md", "7", fmt.Errorf("boom: %w", ErrDestination))
	if got, want := withID.Error(), "create /x/7-a.md (id 7): boom: destination request failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(withID, ErrDestination) {
		t.Error("DocumentError should unwrap to its cause")
	}

	noID := newDocumentError(StageParse, "/x/readme.md", "", ErrPathFormat)
	if got, want := noID.Error(), "parse /x/readme.md: source path does not match export layout"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
