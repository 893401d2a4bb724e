package kibela2esa

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// attachmentRef matches a relative reference into an export's attachments
// directory. Absolute URLs never match.
var attachmentRef = regexp.MustCompile(`^(?:\.\.?/)*attachments/(\d+\.(?i:png|jpe?g|gif))$`)

// RedirectLookup dereferences a wiki id to the note id it redirects to.
// An empty id with a nil error means the wiki page has no redirect.
type RedirectLookup interface {
	LookupNoteID(ctx context.Context, wikiID string) (string, error)
}

// ResolverOption configures a LinkResolver.
type ResolverOption func(*LinkResolver)

// WithResolverLogger sets the logger used for redirect lookup failures.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *LinkResolver) {
		r.logger = logger
	}
}

// WithLookup sets the redirect lookup used for wiki links. Without one,
// wiki links are left unresolved.
func WithLookup(lookup RedirectLookup) ResolverOption {
	return func(r *LinkResolver) {
		r.lookup = lookup
	}
}

// LinkResolver rewrites attachment and cross-document links in bodies.
type LinkResolver struct {
	registry  *AttachmentRegistry
	lookup    RedirectLookup
	logger    *slog.Logger
	crossRef  *regexp.Regexp
	redirects map[string]string
}

// NewLinkResolver creates a resolver for links into settings.SourceBaseURL.
func NewLinkResolver(settings Settings, registry *AttachmentRegistry, opts ...ResolverOption) *LinkResolver {
	base := regexp.QuoteMeta(strings.TrimSuffix(settings.SourceBaseURL, "/"))
	r := &LinkResolver{
		registry:  registry,
		logger:    slog.New(slog.DiscardHandler),
		crossRef:  regexp.MustCompile(base + `/(wikis|notes|)(?:/|%|\w)*/(\d+)`),
		redirects: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RewriteAttachments replaces attachment references whose file has been
// uploaded with the uploaded URL. It returns the rewritten text and the
// references it left in place.
func (r *LinkResolver) RewriteAttachments(body string) (string, []string) {
	var unresolved []string
	replacements := make(map[string]string)

	for _, src := range imageSources(body) {
		m := attachmentRef.FindStringSubmatch(src)
		if m == nil {
			continue
		}
		if _, seen := replacements[src]; seen {
			continue
		}
		a, ok := r.registry.Lookup(m[1])
		if !ok {
			unresolved = append(unresolved, src)
			continue
		}
		dest, uploaded := a.DestinationPath()
		if !uploaded {
			unresolved = append(unresolved, src)
			continue
		}
		replacements[src] = dest
	}

	if len(replacements) == 0 {
		return body, unresolved
	}

	// "../attachments/1.png" must be tried before "attachments/1.png".
	sources := make([]string, 0, len(replacements))
	for src := range replacements {
		sources = append(sources, src)
	}
	slices.SortFunc(sources, func(a, b string) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})

	pairs := make([]string, 0, 2*len(sources))
	for _, src := range sources {
		pairs = append(pairs, src, replacements[src])
	}
	return strings.NewReplacer(pairs...).Replace(body), unresolved
}

// HasCrossReferences reports whether body links to any source document.
func (r *LinkResolver) HasCrossReferences(body string) bool {
	return r.crossRef.MatchString(body)
}

// RewriteCrossReferences replaces links to source documents present in
// mapping with destination links. The mapping must be frozen. It returns
// the rewritten text and the links it left in place; the error is non-nil
// only when ctx ends or the mapping is still writable.
func (r *LinkResolver) RewriteCrossReferences(ctx context.Context, body string, mapping *LinkMapping) (string, []string, error) {
	if !mapping.Frozen() {
		return body, nil, fmt.Errorf("%w: link mapping is still being built", ErrStageOrder)
	}

	var unresolved []string
	var ctxErr error
	rewritten := r.crossRef.ReplaceAllStringFunc(body, func(match string) string {
		if ctxErr != nil {
			return match
		}
		sub := r.crossRef.FindStringSubmatch(match)
		kind, id := sub[1], sub[2]

		if kind == string(KindWiki) {
			noteID, err := r.resolveWiki(ctx, id)
			if err != nil {
				ctxErr = err
				return match
			}
			id = noteID
		}

		target, ok := mapping.Get(id)
		if id == "" || !ok {
			unresolved = append(unresolved, match)
			return match
		}
		n := strconv.Itoa(target.DestinationID)
		return "[" + n + ": " + target.Title + "](/posts/" + n + ")"
	})
	if ctxErr != nil {
		return body, nil, ctxErr
	}
	return rewritten, unresolved, nil
}

// resolveWiki returns the note id a wiki id redirects to, or "" when it
// cannot be resolved. Results are cached for the resolver's lifetime.
// Only context errors are returned.
func (r *LinkResolver) resolveWiki(ctx context.Context, wikiID string) (string, error) {
	if noteID, ok := r.redirects[wikiID]; ok {
		return noteID, nil
	}
	if r.lookup == nil {
		return "", nil
	}

	noteID, err := r.lookup.LookupNoteID(ctx, wikiID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.logger.Warn("wiki redirect lookup failed", slog.String("wiki", wikiID), slog.Any("error", err))
		noteID = ""
	}
	r.redirects[wikiID] = noteID
	return noteID, nil
}
