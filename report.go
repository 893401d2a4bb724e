package kibela2esa

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alnah/go-kibela2esa/internal/fileutil"
)

// Summary counts what a migration run did.
type Summary struct {
	DryRun bool

	AttachmentsUploaded int
	AttachmentsResumed  int
	AttachmentsRejected int

	PostsCreated    int
	PostsResumed    int
	PostsUpdated    int
	CommentsCreated int

	UnresolvedAttachments int
	UnresolvedLinks       int

	ReportLines int

	// Failures holds per-document errors in the order they happened.
	Failures []*DocumentError
}

// Failed reports whether any document failed.
func (s *Summary) Failed() bool {
	return len(s.Failures) > 0
}

// WriteReport writes one line per document that has a destination post:
//
//	"<title>"\t"<source URL>"\t"<destination URL>"
//
// Documents keep their corpus order. It returns the number of lines written.
func WriteReport(w io.Writer, settings Settings, docs []*Document) (int, error) {
	bw := bufio.NewWriter(w)
	lines := 0
	for _, doc := range docs {
		number, ok := doc.DestinationID()
		if !ok {
			continue
		}
		dest := doc.DestinationURL()
		if settings.DestinationBaseURL != "" {
			dest = settings.DestinationURL(number)
		}
		_, err := fmt.Fprintf(bw, "%s\t%s\t%s\n",
			quoteField(doc.Title), quoteField(settings.SourceURL(doc.ID)), quoteField(dest))
		if err != nil {
			return lines, err
		}
		lines++
	}
	return lines, bw.Flush()
}

// WriteReportFile writes the report to path, replacing any previous file.
func WriteReportFile(path string, settings Settings, docs []*Document) (int, error) {
	var buf bytes.Buffer
	n, err := WriteReport(&buf, settings, docs)
	if err != nil {
		return 0, err
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("writing report: %w", err)
	}
	return n, nil
}

// quoteField wraps s in double quotes, doubling any quote inside it.
func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
