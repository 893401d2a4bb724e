package kibela2esa

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/alnah/go-kibela2esa/internal/dateutil"
	"github.com/alnah/go-kibela2esa/internal/yamlutil"
)

// folderGroupPrefix matches the leading "group/" segment of a folder path.
var folderGroupPrefix = regexp.MustCompile(`^[\p{L}\p{N}_]+\s*/\s*`)

// ErrNoSourceTeam is returned by NewParser when Settings.SourceTeam is empty.
var ErrNoSourceTeam = errors.New("source team is required")

// Parser turns exported files into Documents.
type Parser struct {
	settings    Settings
	pathPattern *regexp.Regexp
}

// NewParser creates a Parser for exports of settings.SourceTeam.
func NewParser(settings Settings) (*Parser, error) {
	if settings.SourceTeam == "" {
		return nil, ErrNoSourceTeam
	}
	pattern := `(?:^|/)kibela-` + regexp.QuoteMeta(settings.SourceTeam) +
		`-\d+/(wikis|blogs|notes)/(?:.*/)?(\d+)-([^/]*)\.md$`
	return &Parser{
		settings:    settings,
		pathPattern: regexp.MustCompile(pattern),
	}, nil
}

// ParsePath extracts the collection kind, numeric id and name from path.
func (p *Parser) ParsePath(path string) (Kind, string, string, error) {
	m := p.pathPattern.FindStringSubmatch(filepath.ToSlash(path))
	if m == nil {
		return "", "", "", newDocumentError(StageParse, path, "", ErrPathFormat)
	}
	return Kind(m[1]), m[2], m[3], nil
}

// ParseFile reads and parses one exported document.
func (p *Parser) ParseFile(path string) (*Document, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from the corpus walk
	if err != nil {
		return nil, newDocumentError(StageParse, path, "", fmt.Errorf("reading file: %w", err))
	}
	return p.Parse(path, content)
}

// Parse builds a Document from the file path and its content.
func (p *Parser) Parse(path string, content []byte) (*Document, error) {
	kind, id, name, err := p.ParsePath(path)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Document, error) {
		return nil, newDocumentError(StageParse, path, id, err)
	}

	var meta Metadata
	body, err := frontmatter.MustParse(bytes.NewReader(content), &meta, yamlutil.FrontMatterFormats()...)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrParse, err))
	}
	text := normalizeLineEndings(string(body))

	_, title := findTitleLine(strings.Split(text, "\n"))
	if title == "" {
		return fail(ErrMissingTitle)
	}

	published, err := dateutil.ParseTimestamp(meta.PublishedAt)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrDateParse, err))
	}

	comments := make([]*Comment, 0, len(meta.Comments))
	for i, raw := range meta.Comments {
		at, err := dateutil.ParseTimestamp(raw.PublishedAt)
		if err != nil {
			return fail(fmt.Errorf("%w: comment %d: %v", ErrDateParse, i+1, err))
		}
		comments = append(comments, &Comment{
			Content:      normalizeLineEndings(raw.Content),
			AuthorHandle: strings.TrimPrefix(raw.Author, "@"),
			PublishedAt:  at,
		})
	}

	postKind := PostKindStock
	if meta.Coediting {
		postKind = PostKindFlow
	}

	return &Document{
		ID:           id,
		Kind:         kind,
		Name:         name,
		Path:         path,
		Title:        escapeTitle(title),
		Category:     p.category(meta.Folders),
		Body:         text,
		Metadata:     meta,
		AuthorHandle: strings.TrimPrefix(meta.Author, "@"),
		PublishedAt:  published,
		PostKind:     postKind,
		Comments:     comments,
	}, nil
}

// category joins the migration root with the first folder, minus its group prefix.
func (p *Parser) category(folders []string) string {
	var folder string
	if len(folders) > 0 {
		folder = folderGroupPrefix.ReplaceAllString(strings.TrimSpace(folders[0]), "")
	}
	category := strings.TrimSpace(p.settings.MigrationRoot + "/" + folder)
	return strings.TrimSuffix(category, "/")
}
