package tool

import (
	"os"
	"regexp"
	"strings"
)

// globToRegex translates a blockedGlobs pattern into an anchored regular
// expression: "**" becomes ".*", "*" becomes "[^/]*", and every other regex
// metacharacter is escaped (spec.md §4.2 step 5).
func globToRegex(glob string) (*regexp.Regexp, error) {
	const doubleStarPlaceholder = "\x00DOUBLESTAR\x00"
	const starPlaceholder = "\x00STAR\x00"

	work := strings.ReplaceAll(glob, "**", doubleStarPlaceholder)
	work = strings.ReplaceAll(work, "*", starPlaceholder)
	escaped := regexp.QuoteMeta(work)
	escaped = strings.ReplaceAll(escaped, doubleStarPlaceholder, ".*")
	escaped = strings.ReplaceAll(escaped, starPlaceholder, "[^/]*")

	return regexp.Compile("^" + escaped + "$")
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

// MatchGlob reports whether path matches glob, applying the same expansion
// and translation rules the evaluator uses for blockedGlobs.
func MatchGlob(path, glob string) bool {
	re, err := globToRegex(expandHome(glob))
	if err != nil {
		return false
	}
	return re.MatchString(path)
}
