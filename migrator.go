package kibela2esa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// Migration defaults.
const (
	DefaultPacing        = 500 * time.Millisecond
	DefaultRetryAttempts = 4
	DefaultRetryDelay    = 2 * time.Second
	DefaultMaxRetryDelay = 15 * time.Minute
)

// ErrNoDestination is returned by NewMigrator without a destination outside dry-run mode.
var ErrNoDestination = errors.New("destination client is required unless dry-run")

// Stages completed, in order.
const (
	stageNone = iota
	stageUploaded
	stageCreated
	stageRewritten
	stageReported
)

// MigratorOption configures a Migrator.
type MigratorOption func(*Migrator)

// WithLogger sets the logger for progress and would-be requests.
func WithLogger(logger *slog.Logger) MigratorOption {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDryRun builds and logs every request without sending it.
// The report stage is skipped.
func WithDryRun(dryRun bool) MigratorOption {
	return func(m *Migrator) {
		m.dryRun = dryRun
	}
}

// WithPacing sets the minimum interval between destination writes.
// Zero disables pacing.
func WithPacing(interval time.Duration) MigratorOption {
	return func(m *Migrator) {
		m.pacing = interval
	}
}

// WithRetry sets how many times a failed destination call is attempted and
// the base delay of the exponential backoff between attempts.
func WithRetry(attempts uint, delay time.Duration) MigratorOption {
	return func(m *Migrator) {
		if attempts < 1 {
			attempts = 1
		}
		m.attempts = attempts
		m.retryDelay = delay
	}
}

// WithMaxRetryDelay caps a single backoff wait, including server-provided ones.
func WithMaxRetryDelay(d time.Duration) MigratorOption {
	return func(m *Migrator) {
		m.maxRetryDelay = d
	}
}

// WithLedger records completed writes in l and skips writes it already holds.
func WithLedger(l Ledger) MigratorOption {
	return func(m *Migrator) {
		m.ledger = l
	}
}

// WithRedirectLookup sets the lookup used to resolve wiki links.
func WithRedirectLookup(lookup RedirectLookup) MigratorOption {
	return func(m *Migrator) {
		m.lookup = lookup
	}
}

// WithReportPath sets the file the report stage writes to.
func WithReportPath(path string) MigratorOption {
	return func(m *Migrator) {
		m.reportPath = path
	}
}

// Migrator moves a Corpus to a Destination in four corpus-wide stages:
// Upload, Create, Rewrite and Report. Each stage finishes for every item
// before the next may start, because Rewrite needs the complete LinkMapping.
//
// A Migrator is single-use and not safe for concurrent use.
type Migrator struct {
	settings    Settings
	corpus      *Corpus
	dest        Destination
	transformer *Transformer
	resolver    *LinkResolver
	mapping     *LinkMapping
	logger      *slog.Logger

	dryRun        bool
	pacing        time.Duration
	limiter       *rate.Limiter
	attempts      uint
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	ledger        Ledger
	lookup        RedirectLookup
	reportPath    string

	stage   int
	summary Summary
}

// NewMigrator prepares a migration of corpus into dest.
func NewMigrator(settings Settings, corpus *Corpus, dest Destination, opts ...MigratorOption) (*Migrator, error) {
	m := &Migrator{
		settings:      settings,
		corpus:        corpus,
		dest:          dest,
		mapping:       NewLinkMapping(),
		logger:        slog.New(slog.DiscardHandler),
		pacing:        DefaultPacing,
		attempts:      DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		maxRetryDelay: DefaultMaxRetryDelay,
	}
	for _, opt := range opts {
		opt(m)
	}

	if dest == nil && !m.dryRun {
		return nil, ErrNoDestination
	}

	transformer, err := NewTransformer(settings)
	if err != nil {
		return nil, err
	}
	m.transformer = transformer

	resolverOpts := []ResolverOption{WithResolverLogger(m.logger)}
	if m.lookup != nil && !m.dryRun {
		resolverOpts = append(resolverOpts, WithLookup(&retryingLookup{lookup: m.lookup, m: m}))
	}
	m.resolver = NewLinkResolver(settings, corpus.Attachments, resolverOpts...)

	m.limiter = rate.NewLimiter(rate.Inf, 1)
	if m.pacing > 0 {
		m.limiter = rate.NewLimiter(rate.Every(m.pacing), 1)
	}
	m.summary.DryRun = m.dryRun

	return m, nil
}

// Mapping returns the link mapping built by the create stage.
func (m *Migrator) Mapping() *LinkMapping {
	return m.mapping
}

// Summary returns counters and failures collected so far.
func (m *Migrator) Summary() *Summary {
	return &m.summary
}

// Run executes every stage in order. Per-document failures are collected in
// the returned Summary; the error is non-nil only when a stage cannot run.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	if err := m.Upload(ctx); err != nil {
		return &m.summary, err
	}
	if err := m.Create(ctx); err != nil {
		return &m.summary, err
	}
	if err := m.Rewrite(ctx); err != nil {
		return &m.summary, err
	}
	if err := m.Report(ctx); err != nil {
		return &m.summary, err
	}
	return &m.summary, nil
}

// Upload sends every attachment to the destination. Attachments the
// destination rejects keep no destination path; references to them are
// left untouched by the create stage.
func (m *Migrator) Upload(ctx context.Context) error {
	if err := m.enter(stageUploaded); err != nil {
		return err
	}

	for _, a := range m.corpus.Attachments.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := m.logger.With(slog.String("stage", StageUpload), slog.String("attachment", a.Name))

		if url, ok, err := m.lookupLedger(ctx, LedgerAttachment, a.Name); err != nil {
			return err
		} else if ok {
			_ = a.SetDestinationPath(url)
			m.summary.AttachmentsResumed++
			log.Debug("attachment already uploaded", slog.String("url", url))
			continue
		}

		if m.dryRun {
			log.Info("would upload attachment", slog.String("path", a.SourcePath))
			continue
		}

		resp, err := callWithRetry(ctx, m, "upload attachment", func(ctx context.Context) (*UploadResponse, error) {
			return m.dest.UploadAttachment(ctx, a.SourcePath)
		})
		if err != nil {
			m.fail(StageUpload, a.SourcePath, a.Name, err)
			continue
		}
		if resp.Error != "" {
			m.summary.AttachmentsRejected++
			log.Warn("attachment rejected, references keep their source path",
				slog.String("error", resp.Error), slog.String("message", resp.Message))
			continue
		}

		_ = a.SetDestinationPath(resp.URL)
		m.summary.AttachmentsUploaded++
		log.Info("attachment uploaded", slog.String("url", resp.URL))

		if err := m.recordLedger(ctx, LedgerAttachment, a.Name, resp.URL); err != nil {
			return err
		}
	}
	return nil
}

// Create transforms every document, creates its post and comments, and
// fills the link mapping. The mapping is frozen when the stage ends.
func (m *Migrator) Create(ctx context.Context) error {
	if err := m.enter(stageCreated); err != nil {
		return err
	}
	defer m.mapping.Freeze()

	for _, doc := range m.corpus.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.createDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// createDocument returns an error only for failures that stop the stage.
func (m *Migrator) createDocument(ctx context.Context, doc *Document) error {
	log := m.logger.With(slog.String("stage", StageCreate), slog.String("id", doc.ID))

	body, unresolved := m.resolver.RewriteAttachments(doc.Body)
	doc.Body = body
	m.logUnresolvedAttachments(log, doc.Path, unresolved)

	if err := m.transformer.TransformDocument(doc); err != nil {
		m.fail(StageCreate, doc.Path, doc.ID, err)
		return nil
	}
	payload := postPayload(m.settings, doc)

	if m.dryRun {
		log.Info("would create post", slog.Any("payload", payload))
		m.createComments(ctx, doc, 0, log)
		return nil
	}

	post, resumed, err := m.resumePost(ctx, doc.ID)
	if err != nil {
		return err
	}
	if !resumed {
		log.Debug("creating post", slog.Any("payload", payload))
		post, err = callWithRetry(ctx, m, "create post", func(ctx context.Context) (*PostResponse, error) {
			return m.dest.CreatePost(ctx, payload)
		})
		if err != nil {
			m.fail(StageCreate, doc.Path, doc.ID, err)
			return nil
		}
		if err := m.recordLedger(ctx, LedgerPost, doc.ID, strconv.Itoa(post.Number)+" "+post.URL); err != nil {
			return err
		}
		m.summary.PostsCreated++
		log.Info("post created", slog.Int("number", post.Number), slog.String("url", post.URL))
	} else {
		m.summary.PostsResumed++
		log.Debug("post already created", slog.Int("number", post.Number))
	}

	if err := doc.AssignDestination(post.Number, post.URL); err != nil {
		m.fail(StageCreate, doc.Path, doc.ID, err)
		return nil
	}
	if err := m.mapping.Set(doc.ID, LinkTarget{DestinationID: post.Number, Title: doc.Title}); err != nil {
		m.fail(StageCreate, doc.Path, doc.ID, err)
		return nil
	}

	m.createComments(ctx, doc, post.Number, log)
	return ctx.Err()
}

// createComments posts doc's comments in order. A failed comment stops the
// remaining ones so the thread is never posted out of order.
func (m *Migrator) createComments(ctx context.Context, doc *Document, number int, log *slog.Logger) {
	for i, c := range doc.Comments {
		key := doc.ID + "#" + strconv.Itoa(i)

		content, unresolved := m.resolver.RewriteAttachments(c.Content)
		m.logUnresolvedAttachments(log, doc.Path, unresolved)

		rewritten := *c
		rewritten.Content = content
		body, err := m.transformer.TransformComment(&rewritten)
		if err != nil {
			m.fail(StageComment, doc.Path, doc.ID, fmt.Errorf("comment %d: %w", i+1, err))
			return
		}
		payload := commentPayload(m.settings, c, body)

		if m.dryRun {
			log.Info("would create comment", slog.Int("index", i), slog.Any("payload", payload))
			continue
		}

		if _, ok, err := m.lookupLedger(ctx, LedgerComment, key); err != nil {
			m.fail(StageComment, doc.Path, doc.ID, err)
			return
		} else if ok {
			continue
		}

		resp, err := callWithRetry(ctx, m, "create comment", func(ctx context.Context) (*CommentResponse, error) {
			return m.dest.CreateComment(ctx, number, payload)
		})
		if err != nil {
			m.fail(StageComment, doc.Path, doc.ID, fmt.Errorf("comment %d: %w", i+1, err))
			return
		}
		m.summary.CommentsCreated++
		log.Debug("comment created", slog.Int("index", i), slog.Int("comment", resp.ID))

		if err := m.recordLedger(ctx, LedgerComment, key, strconv.Itoa(resp.ID)); err != nil {
			m.fail(StageComment, doc.Path, doc.ID, err)
			return
		}
	}
}

// Rewrite resolves cross-document links now that every document has a
// destination, and updates the posts whose body changed.
func (m *Migrator) Rewrite(ctx context.Context) error {
	if err := m.enter(stageRewritten); err != nil {
		return err
	}

	for _, doc := range m.corpus.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		number, created := doc.DestinationID()
		if !doc.Transformed() || (!created && !m.dryRun) {
			continue
		}
		if !m.resolver.HasCrossReferences(doc.Body) {
			continue
		}
		log := m.logger.With(slog.String("stage", StageRewrite), slog.String("id", doc.ID))

		// No post exists yet, so there is nothing to resolve links against.
		if m.dryRun {
			log.Info("would rewrite cross-references and update post", slog.String("path", doc.Path))
			continue
		}

		body, unresolved, err := m.resolver.RewriteCrossReferences(ctx, doc.Body, m.mapping)
		if err != nil {
			return err
		}
		for _, link := range unresolved {
			m.summary.UnresolvedLinks++
			log.Warn("cross-reference left unresolved", slog.String("path", doc.Path), slog.String("link", link))
		}

		body = m.transformer.Normalize(body)
		if body == doc.Body {
			continue
		}
		doc.Body = body
		payload := postPayload(m.settings, doc)
		_, err = callWithRetry(ctx, m, "update post", func(ctx context.Context) (*PostResponse, error) {
			return m.dest.UpdatePost(ctx, number, payload)
		})
		if err != nil {
			m.fail(StageRewrite, doc.Path, doc.ID, err)
			continue
		}
		m.summary.PostsUpdated++
		log.Info("post links rewritten", slog.Int("number", number))
	}
	return nil
}

// Report writes one line per created document to the report path.
// It does nothing in dry-run mode or without a report path.
func (m *Migrator) Report(ctx context.Context) error {
	if err := m.enter(stageReported); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.dryRun {
		m.logger.Info("dry run, report skipped", slog.String("stage", StageReport))
		return nil
	}
	if m.reportPath == "" {
		m.logger.Warn("no report path configured, report skipped", slog.String("stage", StageReport))
		return nil
	}

	n, err := WriteReportFile(m.reportPath, m.settings, m.corpus.Documents)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReport, err)
	}
	m.summary.ReportLines = n
	m.logger.Info("report written", slog.String("stage", StageReport),
		slog.String("path", m.reportPath), slog.Int("lines", n))
	return nil
}

// enter checks that stage directly follows the last completed one.
func (m *Migrator) enter(stage int) error {
	if m.stage != stage-1 {
		return fmt.Errorf("%w: %s", ErrStageOrder, stageName(stage))
	}
	m.stage = stage
	return nil
}

func stageName(stage int) string {
	switch stage {
	case stageUploaded:
		return StageUpload
	case stageCreated:
		return StageCreate
	case stageRewritten:
		return StageRewrite
	case stageReported:
		return StageReport
	default:
		return "unknown"
	}
}

func (m *Migrator) fail(stage, path, id string, err error) {
	docErr := newDocumentError(stage, path, id, err)
	m.summary.Failures = append(m.summary.Failures, docErr)
	m.logger.Error("migration step failed",
		slog.String("stage", stage),
		slog.String("path", path),
		slog.String("id", id),
		slog.Any("error", err))
}

func (m *Migrator) logUnresolvedAttachments(log *slog.Logger, path string, refs []string) {
	for _, ref := range refs {
		m.summary.UnresolvedAttachments++
		log.Warn("attachment reference left unresolved", slog.String("path", path), slog.String("src", ref))
	}
}

func (m *Migrator) lookupLedger(ctx context.Context, kind, key string) (string, bool, error) {
	if m.ledger == nil {
		return "", false, nil
	}
	value, ok, err := m.ledger.Lookup(ctx, kind, key)
	if err != nil {
		return "", false, fmt.Errorf("checkpoint lookup %s %s: %w", kind, key, err)
	}
	return value, ok, nil
}

func (m *Migrator) recordLedger(ctx context.Context, kind, key, value string) error {
	if m.ledger == nil {
		return nil
	}
	if err := m.ledger.Record(ctx, kind, key, value); err != nil {
		return fmt.Errorf("checkpoint record %s %s: %w", kind, key, err)
	}
	return nil
}

// resumePost returns the post recorded for id by an earlier run.
func (m *Migrator) resumePost(ctx context.Context, id string) (*PostResponse, bool, error) {
	value, ok, err := m.lookupLedger(ctx, LedgerPost, id)
	if err != nil || !ok {
		return nil, false, err
	}
	numberText, url, _ := strings.Cut(value, " ")
	number, err := strconv.Atoi(numberText)
	if err != nil {
		return nil, false, fmt.Errorf("checkpoint post %s: malformed value %q", id, value)
	}
	return &PostResponse{Number: number, URL: url}, true, nil
}

// callWithRetry paces and retries one destination call. Errors that report
// themselves as not retryable fail on the first attempt.
func callWithRetry[T any](ctx context.Context, m *Migrator, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := retry.DoWithData(
		func() (T, error) {
			if err := m.limiter.Wait(ctx); err != nil {
				var zero T
				return zero, retry.Unrecoverable(err)
			}
			return fn(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(m.attempts),
		retry.Delay(m.retryDelay),
		retry.MaxDelay(m.maxRetryDelay),
		retry.DelayType(backoffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && isRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Warn("destination call failed, retrying",
				slog.String("op", op), slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", ErrDestination, op, err)
	}
	return result, nil
}

// backoffDelay honours a server-provided wait and falls back to exponential backoff.
func backoffDelay(n uint, err error, config *retry.Config) time.Duration {
	var after retryAfterError
	if errors.As(err, &after) {
		if d := after.RetryAfter(); d > 0 {
			return d
		}
	}
	return retry.BackOffDelay(n, err, config)
}

// isRetryable trusts an error's own Retryable method. Errors without one,
// such as network failures, are retried.
func isRetryable(err error) bool {
	var r retryableError
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// retryingLookup retries transient redirect lookup failures.
type retryingLookup struct {
	lookup RedirectLookup
	m      *Migrator
}

func (l *retryingLookup) LookupNoteID(ctx context.Context, wikiID string) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			return l.lookup.LookupNoteID(ctx, wikiID)
		},
		retry.Context(ctx),
		retry.Attempts(l.m.attempts),
		retry.Delay(l.m.retryDelay),
		retry.MaxDelay(l.m.maxRetryDelay),
		retry.DelayType(backoffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && isRetryable(err)
		}),
	)
}
