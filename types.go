package kibela2esa

import (
	"regexp"
	"time"
)

// Kind is the export collection a document was found in.
type Kind string

// Export collections.
const (
	KindWiki Kind = "wikis"
	KindBlog Kind = "blogs"
	KindNote Kind = "notes"
)

// Post kinds derived from the collaborative-editing flag.
const (
	PostKindFlow  = "flow"
	PostKindStock = "stock"
)

var wipPattern = regexp.MustCompile(`(?i)wip`)

// Metadata is the front matter block of an exported document.
type Metadata struct {
	Folders     []string     `yaml:"folders"`
	PublishedAt string       `yaml:"published_at"`
	Coediting   bool         `yaml:"coediting"`
	Author      string       `yaml:"author"`
	Comments    []RawComment `yaml:"comments"`
}

// RawComment is one comment record as it appears in front matter.
type RawComment struct {
	Content     string `yaml:"content"`
	Author      string `yaml:"author"`
	PublishedAt string `yaml:"published_at"`
}

// Document is one exported wiki, blog or note page.
//
// Body is rewritten in place by the migration stages. The destination id is
// assigned at most once, see AssignDestination.
type Document struct {
	ID           string
	Kind         Kind
	Name         string // filename slug after the numeric id
	Path         string
	Title        string
	Category     string
	Body         string
	Metadata     Metadata
	AuthorHandle string
	PublishedAt  time.Time
	PostKind     string
	Comments     []*Comment

	destinationID  int
	destinationURL string
	assigned       bool
	transformed    bool
}

// AssignDestination records the post created for this document.
// A second call returns ErrAlreadyAssigned and leaves the first value intact.
func (d *Document) AssignDestination(id int, url string) error {
	if d.assigned {
		return ErrAlreadyAssigned
	}
	d.destinationID = id
	d.destinationURL = url
	d.assigned = true
	return nil
}

// DestinationID returns the destination post number, if assigned.
func (d *Document) DestinationID() (int, bool) {
	return d.destinationID, d.assigned
}

// DestinationURL returns the destination post URL, or "" if unassigned.
func (d *Document) DestinationURL() string {
	return d.destinationURL
}

// Transformed reports whether the full content transform already ran.
func (d *Document) Transformed() bool {
	return d.transformed
}

// WIP reports whether the title carries a work-in-progress marker.
func (d *Document) WIP() bool {
	return wipPattern.MatchString(d.Title)
}

// Comment belongs to exactly one Document.
type Comment struct {
	Content      string
	AuthorHandle string
	PublishedAt  time.Time
}

// Attachment is one file from an export's attachments directory.
type Attachment struct {
	Name       string
	SourcePath string

	destinationPath string
	uploaded        bool
}

// SetDestinationPath records the uploaded URL. It can only be set once.
func (a *Attachment) SetDestinationPath(path string) error {
	if a.uploaded {
		return ErrAlreadyAssigned
	}
	a.destinationPath = path
	a.uploaded = true
	return nil
}

// DestinationPath returns the uploaded URL, if any.
func (a *Attachment) DestinationPath() (string, bool) {
	return a.destinationPath, a.uploaded
}
