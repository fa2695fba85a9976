package tool

import (
	"regexp"
	"strings"
)

// fixedClassification maps a normalized tool name (lowercase, underscores
// stripped) to its action class. Ported verbatim from spec.md §4.2's fixed
// map.
var fixedClassification = map[string]ActionClass{
	"bash":           ActionExecute,
	"exec":           ActionExecute,
	"execute":        ActionExecute,
	"task":           ActionExecute,
	"write":          ActionWrite,
	"edit":           ActionWrite,
	"notebookedit":   ActionWrite,
	"read":           ActionRead,
	"glob":           ActionRead,
	"grep":           ActionRead,
	"webfetch":       ActionSend,
	"websearch":      ActionSend,
	"browser":        ActionSend,
	"enterplanmode":  ActionRead,
	"exitplanmode":   ActionRead,
	"skill":          ActionRead,
}

// todoPrefix matches any "todo*" normalized tool name (spec.md §4.2).
var todoPrefix = regexp.MustCompile(`^todo`)

// heuristicRules are applied in order after the fixed map misses; the first
// matching regex wins (spec.md §4.2).
var heuristicRules = []struct {
	pattern *regexp.Regexp
	class   ActionClass
}{
	{regexp.MustCompile(`(?i)\b(delete|remove|drop|destroy|kill|purge|reset|force)\b`), ActionExecute},
	{regexp.MustCompile(`(?i)\b(create|write|update|set|put|post|insert|modify|edit|patch|rename|move)\b`), ActionWrite},
	{regexp.MustCompile(`(?i)\b(send|email|notify|publish|push|deploy|upload)\b`), ActionSend},
	{regexp.MustCompile(`(?i)\b(read|get|list|search|find|query|fetch|show|describe|view|inspect|check|status|count|head|tail|cat|ls)\b`), ActionRead},
}

// normalize lowercases a tool name and strips underscores, per spec.md §4.2.
func normalize(toolName string) string {
	return strings.ReplaceAll(strings.ToLower(toolName), "_", "")
}

// Classify maps a tool name to its ActionClass: fixed map first, then
// ordered heuristic regexes over the raw (non-normalized) name, finally
// falling back to the conservative ActionExecute default.
func Classify(toolName string) ActionClass {
	norm := normalize(toolName)
	if class, ok := fixedClassification[norm]; ok {
		return class
	}
	if todoPrefix.MatchString(norm) {
		return ActionRead
	}

	for _, rule := range heuristicRules {
		if rule.pattern.MatchString(toolName) {
			return rule.class
		}
	}

	return ActionExecute
}
