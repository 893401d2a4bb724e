package kibela2esa

import (
	"context"
	"time"
)

// payloadTimeLayout is the created_at format the destination accepts.
const payloadTimeLayout = "2006-01-02 15:04:05"

// PostPayload is the body of a create or update post request.
type PostPayload struct {
	Name      string   `json:"name"`
	BodyMD    string   `json:"body_md"`
	Tags      []string `json:"tags"`
	Category  string   `json:"category"`
	User      string   `json:"user"`
	WIP       bool     `json:"wip"`
	CreatedAt string   `json:"created_at"`
	Message   string   `json:"message"`
}

// CommentPayload is the body of a create comment request.
type CommentPayload struct {
	BodyMD    string `json:"body_md"`
	User      string `json:"user"`
	CreatedAt string `json:"created_at"`
}

// PostResponse identifies a created or updated post.
type PostResponse struct {
	Number int
	URL    string
}

// CommentResponse identifies a created comment.
type CommentResponse struct {
	ID  int
	URL string
}

// UploadResponse is the outcome of an attachment upload. A non-empty Error
// is an application-level rejection: the call completed but the file was
// not stored.
type UploadResponse struct {
	Error   string
	Message string
	URL     string
}

// Destination is the service migrated content is written to. Errors that
// implement Retryable() bool or RetryAfter() time.Duration steer the
// Migrator's retry policy.
type Destination interface {
	CreatePost(ctx context.Context, payload PostPayload) (*PostResponse, error)
	UpdatePost(ctx context.Context, number int, payload PostPayload) (*PostResponse, error)
	CreateComment(ctx context.Context, postNumber int, payload CommentPayload) (*CommentResponse, error)
	UploadAttachment(ctx context.Context, path string) (*UploadResponse, error)
}

type retryableError interface {
	Retryable() bool
}

type retryAfterError interface {
	RetryAfter() time.Duration
}

// Ledger kinds.
const (
	LedgerAttachment = "attachment"
	LedgerPost       = "post"
	LedgerComment    = "comment"
)

// Ledger remembers completed destination writes so an interrupted run can
// resume without creating duplicates.
type Ledger interface {
	Lookup(ctx context.Context, kind, key string) (value string, ok bool, err error)
	Record(ctx context.Context, kind, key, value string) error
}

// postPayload builds the create/update request for doc from its current body.
func postPayload(settings Settings, doc *Document) PostPayload {
	user, _ := settings.MappedUser(doc.AuthorHandle)
	return PostPayload{
		Name:      doc.Title,
		BodyMD:    doc.Body,
		Tags:      []string{},
		Category:  doc.Category,
		User:      user,
		WIP:       doc.WIP(),
		CreatedAt: doc.PublishedAt.Format(payloadTimeLayout),
		Message:   settings.CommitMessage,
	}
}

// commentPayload builds the create comment request for c with a transformed body.
func commentPayload(settings Settings, c *Comment, body string) CommentPayload {
	user, _ := settings.MappedUser(c.AuthorHandle)
	return CommentPayload{
		BodyMD:    body,
		User:      user,
		CreatedAt: c.PublishedAt.Format(payloadTimeLayout),
	}
}
