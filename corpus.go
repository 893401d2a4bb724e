package kibela2esa

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoExports is returned when the source directory holds no export for the team.
var ErrNoExports = errors.New("no export directories found")

// attachmentsDir is the per-export directory holding uploaded files.
const attachmentsDir = "attachments"

// ParseErrorPolicy decides what happens to a document that fails to parse.
type ParseErrorPolicy int

const (
	// SkipOnParseError logs the failure and continues with the rest of the corpus.
	SkipOnParseError ParseErrorPolicy = iota
	// AbortOnParseError stops loading at the first failure.
	AbortOnParseError
)

// Corpus is every document and attachment found under a source directory,
// in enumeration order.
type Corpus struct {
	Documents   []*Document
	Attachments *AttachmentRegistry
	// Skipped holds documents dropped under SkipOnParseError.
	Skipped []*DocumentError
}

// Document returns the document with the given source id.
func (c *Corpus) Document(id string) (*Document, bool) {
	for _, d := range c.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// LoadCorpus reads every export root "kibela-<team>-<n>" directly under dir.
// Roots are visited in lexical order, and so are the files inside them.
func LoadCorpus(dir string, parser *Parser, policy ParseErrorPolicy, logger *slog.Logger) (*Corpus, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	roots, err := exportRoots(dir, parser.settings.SourceTeam)
	if err != nil {
		return nil, err
	}

	corpus := &Corpus{Attachments: NewAttachmentRegistry()}
	seen := make(map[string]string)

	fail := func(docErr *DocumentError) error {
		logger.Error("document skipped",
			slog.String("stage", docErr.Stage),
			slog.String("path", docErr.Path),
			slog.String("id", docErr.ID),
			slog.Any("error", docErr.Err))
		if policy == AbortOnParseError {
			return docErr
		}
		corpus.Skipped = append(corpus.Skipped, docErr)
		return nil
	}

	for _, root := range roots {
		if err := loadAttachments(corpus.Attachments, filepath.Join(root, attachmentsDir), logger); err != nil {
			return nil, err
		}

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && d.Name() == attachmentsDir && filepath.Dir(path) == root {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}

			doc, err := parser.ParseFile(path)
			if err != nil {
				var docErr *DocumentError
				if !errors.As(err, &docErr) {
					return err
				}
				return fail(docErr)
			}

			if first, dup := seen[doc.ID]; dup {
				return fail(newDocumentError(StageParse, path, doc.ID,
					fmt.Errorf("%w: first seen in %s", ErrDuplicateID, first)))
			}
			seen[doc.ID] = path

			logger.Debug("document parsed", slog.String("path", path), slog.String("id", doc.ID))
			corpus.Documents = append(corpus.Documents, doc)
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	logger.Info("corpus loaded",
		slog.Int("documents", len(corpus.Documents)),
		slog.Int("attachments", corpus.Attachments.Len()),
		slog.Int("skipped", len(corpus.Skipped)))
	return corpus, nil
}

// exportRoots lists the export directories for team under dir.
func exportRoots(dir, team string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	prefix := "kibela-" + team + "-"
	var roots []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			roots = append(roots, filepath.Join(dir, entry.Name()))
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: %s/%s*", ErrNoExports, dir, prefix)
	}
	sort.Strings(roots)
	return roots, nil
}

func loadAttachments(registry *AttachmentRegistry, dir string, logger *slog.Logger) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading attachments directory: %w", err)
	}
	if !info.IsDir() {
		return nil
	}

	replaced, err := registry.LoadAttachments(dir)
	if err != nil {
		return err
	}
	for _, name := range replaced {
		logger.Warn("duplicate attachment name, later file wins",
			slog.String("name", name), slog.String("dir", dir))
	}
	return nil
}

// MissingAttachment is an attachment reference with no file in the export.
type MissingAttachment struct {
	DocumentID string
	Path       string
	Ref        string
}

// MissingAttachments lists attachment references in document bodies and
// comments that name no file in the registry, in corpus order.
func (c *Corpus) MissingAttachments() []MissingAttachment {
	var missing []MissingAttachment
	for _, doc := range c.Documents {
		texts := make([]string, 0, 1+len(doc.Comments))
		texts = append(texts, doc.Body)
		for _, cm := range doc.Comments {
			texts = append(texts, cm.Content)
		}

		seen := make(map[string]bool)
		for _, text := range texts {
			for _, src := range imageSources(text) {
				m := attachmentRef.FindStringSubmatch(src)
				if m == nil || seen[src] {
					continue
				}
				seen[src] = true
				if _, ok := c.Attachments.Lookup(m[1]); !ok {
					missing = append(missing, MissingAttachment{DocumentID: doc.ID, Path: doc.Path, Ref: src})
				}
			}
		}
	}
	return missing
}
