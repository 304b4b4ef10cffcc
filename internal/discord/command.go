package discord

import (
	"strings"
	"unicode"
)

// ParseInvocation splits a chat message into a command trigger and an
// optional free-text query. A message invokes a command when it starts with
// prefix immediately followed by a non-empty trigger word; everything after
// the first whitespace run is the query. ok is false for messages that are
// not invocations (no prefix, or prefix with nothing behind it).
//
//	"!horn"          → ("horn", "", true)
//	"!horn air raid" → ("horn", "air raid", true)
//	"! horn"         → ("", "", false)
//	"hello"          → ("", "", false)
func ParseInvocation(prefix, content string) (name, query string, ok bool) {
	rest, found := strings.CutPrefix(content, prefix)
	if !found || rest == "" {
		return "", "", false
	}
	i := strings.IndexFunc(rest, unicode.IsSpace)
	if i == 0 {
		return "", "", false
	}
	if i < 0 {
		return rest, "", true
	}
	return rest[:i], strings.TrimSpace(rest[i:]), true
}
