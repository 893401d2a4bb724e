// Package kibela2esa migrates a Kibela export into an esa team.
//
// # Quick Start
//
// Load the corpus, build a migrator around a destination client, and run it:
//
//	settings := kibela2esa.DefaultSettings()
//	settings.SourceTeam = "acme"
//	settings.SourceBaseURL = "https://acme.kibe.la"
//	settings.DestinationBaseURL = "https://acme.esa.io"
//	settings.MigrationRoot = "Kibela"
//
//	parser, err := kibela2esa.NewParser(settings)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	corpus, err := kibela2esa.LoadCorpus("./export", parser, kibela2esa.SkipOnParseError, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := kibela2esa.NewMigrator(settings, corpus, client,
//	    kibela2esa.WithLogger(logger),
//	    kibela2esa.WithReportPath("post_mappings.tsv"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := m.Run(ctx)
//
// # Migration Stages
//
// A run moves the whole corpus through four stages. Each stage finishes for
// every item before the next one starts:
//
//  1. Upload: every attachment is uploaded and its URL recorded
//  2. Create: bodies are transformed, attachment links rewritten, posts and
//     comments created; the link mapping is frozen at the end
//  3. Rewrite: links to other source documents are replaced with links to
//     their posts, and changed posts are updated
//  4. Report: one line per created post is written to the report file
//
// Calling a stage out of order returns ErrStageOrder.
//
// # Content Rules
//
// Document bodies lose their title heading and leading blank lines, get a
// space after unspaced "#" runs, have "```{plantuml}" fences renamed to
// "```uml", and end with an attribution footer. Comments get the middle two
// rules only, plus an attribution line when their author has no mapping.
// Text inside fenced code blocks is never rewritten.
//
// # Failures
//
// Parse failures surface as *DocumentError wrapping ErrPathFormat, ErrParse,
// ErrMissingTitle or ErrDateParse. Destination calls are retried with
// exponential backoff; a call that still fails is recorded against its
// document in the Summary and the run moves on. Unresolved attachment and
// cross-document links are logged and left as they were.
//
// # Resuming
//
// WithLedger records every completed write. A later run with the same ledger
// skips uploads, posts and comments that already exist.
package kibela2esa
