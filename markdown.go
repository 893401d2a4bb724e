package kibela2esa

import (
	"regexp"
	"strings"
)

// Line-level markdown patterns.
var (
	// crlfOrCR matches Windows (\r\n) and old Mac (\r) line endings.
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// fencedCodeBlock matches opening/closing fences (``` or ~~~).
	fencedCodeBlock = regexp.MustCompile("^(```|~~~)")

	// titleHeading matches a level-one ATX heading: one "#" not followed by another.
	titleHeading = regexp.MustCompile(`^#(?:[^#]|$)`)

	// unspacedHeading matches a "#" run glued to a word character.
	unspacedHeading = regexp.MustCompile(`^(#+)([\p{L}\p{N}_])`)
)

// normalizeLineEndings converts CRLF and CR to LF.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// mapLinesOutsideCode applies fn to every line outside fenced code blocks.
// Fence lines themselves are passed to onFence when it is non-nil.
func mapLinesOutsideCode(content string, fn func(line string) string, onFence func(line string) string) string {
	lines := strings.Split(content, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if fencedCodeBlock.MatchString(line) {
			inCodeBlock = !inCodeBlock
			if onFence != nil {
				lines[i] = onFence(line)
			}
			continue
		}
		if inCodeBlock {
			continue
		}
		lines[i] = fn(line)
	}

	return strings.Join(lines, "\n")
}

// findTitleLine returns the index and text of the first level-one heading
// outside fenced code. The text has the marker stripped and is trimmed.
// Headings with no text are skipped. Index is -1 when none exists.
func findTitleLine(lines []string) (int, string) {
	inCodeBlock := false
	for i, line := range lines {
		if fencedCodeBlock.MatchString(line) {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock || !titleHeading.MatchString(line) {
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, "#"))
		if text == "" {
			continue
		}
		return i, text
	}
	return -1, ""
}

// escapeTitle replaces "/" with its HTML entity; the destination treats
// slashes in post names as category separators.
func escapeTitle(title string) string {
	return strings.ReplaceAll(title, "/", "&#47;")
}
