// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"net/http"
	"strings"
)

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-kibela2esa/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-kibela2esa") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForMissingSecrets returns a hint naming the environment variables to set.
func ForMissingSecrets(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return format("set " + strings.Join(names, ", ") + " in the environment or a .env file")
}

// ForSourceDir returns hints when no export directory matches the team.
func ForSourceDir(team string) string {
	if team == "" {
		return format("set source.team in the config file")
	}
	return format("expected directories named kibela-" + team + "-<n> under --source-dir")
}

// ForOutputDirectory returns hints for report or log directory errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForDestinationStatus returns hints for a failed destination API call.
func ForDestinationStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return format("check ESA_ACCESS_TOKEN is valid and has write scope")
	case http.StatusForbidden:
		return format("the token owner must be a team owner to post as other users")
	case http.StatusNotFound:
		return format("check destination.team matches the esa team name")
	case http.StatusTooManyRequests:
		return format("increase --pacing or wait for the rate limit window to reset")
	default:
		return ""
	}
}

// ForRedirectLookup returns hints for wiki redirect lookups that fail.
func ForRedirectLookup(hasSession bool) string {
	var hints []string
	if !hasSession {
		hints = append(hints, "set KIBELA_SESSION_ID from a logged-in browser session")
	}
	hints = append(hints, "wiki links stay unresolved until the lookup succeeds")
	return formatHints(hints)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
