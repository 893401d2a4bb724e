package kibela2esa

import (
	"errors"
	"fmt"
)

// Sentinel errors for corpus parsing.
var (
	ErrPathFormat   = errors.New("source path does not match export layout")
	ErrParse        = errors.New("front matter missing or malformed")
	ErrMissingTitle = errors.New("no top-level heading found")
	ErrDateParse    = errors.New("malformed publication date")
	ErrDuplicateID  = errors.New("duplicate document id")
)

// Sentinel errors for the migration pipeline.
var (
	ErrDestination     = errors.New("destination request failed")
	ErrAlreadyAssigned = errors.New("destination id already assigned")
	ErrMappingFrozen   = errors.New("link mapping is read-only")
	ErrStageOrder      = errors.New("stage run out of order")
	ErrReport          = errors.New("report could not be written")
)

// Pipeline stage names, used in errors and log records.
const (
	StageParse   = "parse"
	StageUpload  = "upload"
	StageCreate  = "create"
	StageComment = "comment"
	StageRewrite = "rewrite"
	StageReport  = "report"
)

// DocumentError ties a failure to the source file and document it came from.
// ID is empty when the path could not be matched.
type DocumentError struct {
	Path  string
	ID    string
	Stage string
	Err   error
}

func (e *DocumentError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s (id %s): %v", e.Stage, e.Path, e.ID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func newDocumentError(stage, path, id string, err error) *DocumentError {
	return &DocumentError{Path: path, ID: id, Stage: stage, Err: err}
}
