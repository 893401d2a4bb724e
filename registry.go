package kibela2esa

import (
	"fmt"
	"os"
	"path/filepath"
)

// AttachmentRegistry indexes attachment files by name. A name registered
// twice keeps its first position in All but points at the last file added.
type AttachmentRegistry struct {
	byName map[string]*Attachment
	order  []string
}

// NewAttachmentRegistry returns an empty registry.
func NewAttachmentRegistry() *AttachmentRegistry {
	return &AttachmentRegistry{byName: make(map[string]*Attachment)}
}

// Add registers a and reports whether it replaced an earlier attachment
// with the same name.
func (r *AttachmentRegistry) Add(a *Attachment) bool {
	_, replaced := r.byName[a.Name]
	if !replaced {
		r.order = append(r.order, a.Name)
	}
	r.byName[a.Name] = a
	return replaced
}

// LoadAttachments registers every regular file directly under dir and
// returns the names that replaced an earlier entry.
func (r *AttachmentRegistry) LoadAttachments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading attachments directory: %w", err)
	}

	var replaced []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		a := &Attachment{
			Name:       entry.Name(),
			SourcePath: filepath.Join(dir, entry.Name()),
		}
		if r.Add(a) {
			replaced = append(replaced, a.Name)
		}
	}
	return replaced, nil
}

// Lookup returns the attachment registered under name.
func (r *AttachmentRegistry) Lookup(name string) (*Attachment, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// All returns the attachments in registration order.
func (r *AttachmentRegistry) All() []*Attachment {
	all := make([]*Attachment, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.byName[name])
	}
	return all
}

// Len returns the number of distinct attachment names.
func (r *AttachmentRegistry) Len() int {
	return len(r.byName)
}
