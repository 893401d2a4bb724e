package kibela2esa

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/alnah/go-kibela2esa/internal/dateutil"
)

// ErrAlreadyTransformed is returned when a document body is transformed twice.
var ErrAlreadyTransformed = errors.New("document already transformed")

// footerData is the input of Settings.FooterTemplate.
type footerData struct {
	Source string
	Author string
	Date   string
}

// attributionData is the input of Settings.AttributionTemplate.
type attributionData struct {
	Author string
}

type fenceDialect struct {
	from, to string
}

// Transformer applies the text rewriting rules that turn a source body into
// a destination body. It keeps no per-document state.
type Transformer struct {
	settings    Settings
	footer      *template.Template
	attribution *template.Template
	dateLayout  string
	fences      []fenceDialect
}

// NewTransformer compiles the footer and attribution templates in settings.
func NewTransformer(settings Settings) (*Transformer, error) {
	footer, err := template.New("footer").Parse(settings.FooterTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing footer template: %w", err)
	}
	attribution, err := template.New("attribution").Parse(settings.AttributionTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing attribution template: %w", err)
	}
	layout, err := dateutil.ParseDateFormat(settings.FooterDateFormat)
	if err != nil {
		return nil, fmt.Errorf("footer date format: %w", err)
	}

	fences := make([]fenceDialect, 0, len(settings.FenceDialects))
	for from, to := range settings.FenceDialects {
		fences = append(fences, fenceDialect{from: from, to: to})
	}
	// Longest marker first so "{plantuml}" wins over a shorter "{plant" entry.
	slices.SortFunc(fences, func(a, b fenceDialect) int {
		if n := cmp.Compare(len(b.from), len(a.from)); n != 0 {
			return n
		}
		return cmp.Compare(a.from, b.from)
	})

	return &Transformer{
		settings:    settings,
		footer:      footer,
		attribution: attribution,
		dateLayout:  layout,
		fences:      fences,
	}, nil
}

// Transform rewrites raw. When topLevel is true the title line and leading
// blank run are removed and the attribution footer naming author and
// published is appended; those steps must run once per body.
func (t *Transformer) Transform(raw string, topLevel bool, author string, published time.Time) (string, error) {
	body := normalizeLineEndings(raw)

	if topLevel {
		body = removeTitleLine(body)
		body = strings.TrimLeft(body, " \t\n")
	}

	body = t.Normalize(body)

	if !topLevel {
		return body, nil
	}

	var footer strings.Builder
	err := t.footer.Execute(&footer, footerData{
		Source: t.settings.SourceName,
		Author: author,
		Date:   published.Format(t.dateLayout),
	})
	if err != nil {
		return "", fmt.Errorf("rendering footer: %w", err)
	}
	return body + footer.String(), nil
}

// Normalize applies only the idempotent rules: heading spacing and code-fence
// dialect translation. Fenced code content is left untouched.
func (t *Transformer) Normalize(text string) string {
	return mapLinesOutsideCode(normalizeLineEndings(text), fixHeadingSpace, t.translateFence)
}

// TransformDocument runs the full transform over doc.Body exactly once.
func (t *Transformer) TransformDocument(doc *Document) error {
	if doc.transformed {
		return ErrAlreadyTransformed
	}
	body, err := t.Transform(doc.Body, true, doc.AuthorHandle, doc.PublishedAt)
	if err != nil {
		return err
	}
	doc.Body = body
	doc.transformed = true
	return nil
}

// TransformComment returns the destination body for c. Comments from authors
// without a user mapping get an inline attribution line.
func (t *Transformer) TransformComment(c *Comment) (string, error) {
	body, err := t.Transform(c.Content, false, "", time.Time{})
	if err != nil {
		return "", err
	}
	if _, mapped := t.settings.MappedUser(c.AuthorHandle); mapped {
		return body, nil
	}

	var line strings.Builder
	if err := t.attribution.Execute(&line, attributionData{Author: c.AuthorHandle}); err != nil {
		return "", fmt.Errorf("rendering attribution: %w", err)
	}
	return body + line.String(), nil
}

func (t *Transformer) translateFence(line string) string {
	marker := line[:3]
	info := line[3:]
	for _, f := range t.fences {
		if strings.HasPrefix(info, f.from) {
			return marker + f.to + info[len(f.from):]
		}
	}
	return line
}

// fixHeadingSpace inserts the space a "#" run needs to be read as a heading.
func fixHeadingSpace(line string) string {
	return unspacedHeading.ReplaceAllString(line, "$1 $2")
}

// removeTitleLine drops the title heading line and its newline.
func removeTitleLine(body string) string {
	lines := strings.Split(body, "\n")
	idx, _ := findTitleLine(lines)
	if idx < 0 {
		return body
	}
	return strings.Join(append(lines[:idx:idx], lines[idx+1:]...), "\n")
}
