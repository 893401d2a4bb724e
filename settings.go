package kibela2esa

import (
	"strconv"
	"strings"
)

// Default values for Settings.
const (
	DefaultSourceName          = "Kibela"
	DefaultBotUser             = "esa_bot"
	DefaultCommitMessage       = "Migrate from Kibela"
	DefaultFooterDateFormat    = "YYYY/MM/DD"
	DefaultFooterTemplate      = "\n\n---\n\n> この記事は {{.Source}} からの移行記事です。\n> 作成者: {{.Author}}\n> 作成日: {{.Date}}"
	DefaultAttributionTemplate = "\n\n(投稿者：{{.Author}})"
)

// Settings is the explicit configuration shared by the Parser, Transformer,
// LinkResolver and Migrator. Build it once and pass it to each constructor.
type Settings struct {
	// SourceTeam is the team name embedded in export directory names
	// ("kibela-<team>-<n>").
	SourceTeam string
	// SourceName names the source system in the attribution footer.
	SourceName string
	// SourceBaseURL is the source team URL, e.g. "https://example.kibe.la".
	SourceBaseURL string
	// DestinationBaseURL is the destination team URL, e.g. "https://example.esa.io".
	DestinationBaseURL string
	// MigrationRoot is the category every migrated post is filed under.
	MigrationRoot string
	// BotUser posts on behalf of authors with no entry in UserMappings.
	BotUser string
	// UserMappings maps source author handles to destination screen names.
	UserMappings map[string]string
	// CommitMessage is sent with every created or updated post.
	CommitMessage string
	// FooterTemplate is a text/template rendered with .Source, .Author and .Date.
	FooterTemplate string
	// FooterDateFormat uses dateutil tokens (YYYY, MM, DD, ...).
	FooterDateFormat string
	// AttributionTemplate is appended to comments from unmapped authors.
	// Rendered with .Author.
	AttributionTemplate string
	// FenceDialects maps a code-fence info string to its destination spelling.
	FenceDialects map[string]string
}

// DefaultSettings returns Settings with every optional field populated.
// Team names and base URLs still have to be filled in by the caller.
func DefaultSettings() Settings {
	return Settings{
		SourceName:          DefaultSourceName,
		BotUser:             DefaultBotUser,
		UserMappings:        map[string]string{},
		CommitMessage:       DefaultCommitMessage,
		FooterTemplate:      DefaultFooterTemplate,
		FooterDateFormat:    DefaultFooterDateFormat,
		AttributionTemplate: DefaultAttributionTemplate,
		FenceDialects:       map[string]string{"{plantuml}": "uml"},
	}
}

// MappedUser returns the destination screen name for a source handle.
// The bot user is returned with ok=false when the handle has no mapping.
func (s Settings) MappedUser(handle string) (user string, ok bool) {
	if mapped, found := s.UserMappings[handle]; found && mapped != "" {
		return mapped, true
	}
	return s.BotUser, false
}

// SourceURL returns the source-system URL of a note.
func (s Settings) SourceURL(id string) string {
	return strings.TrimSuffix(s.SourceBaseURL, "/") + "/notes/" + id
}

// DestinationURL returns the destination-system URL of a post.
func (s Settings) DestinationURL(number int) string {
	return strings.TrimSuffix(s.DestinationBaseURL, "/") + "/posts/" + strconv.Itoa(number)
}
