package extract

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Code Extractor — isolates candidate source snippets from chat messages.
// Fast-filter layer, ZERO external calls: a pure function of the input text.
// ---------------------------------------------------------------------------

const fence = "```"

// DefaultMinSnippetLen is the floor (in bytes, after normalization) below
// which a fenced block is treated as an inline span rather than code.
const DefaultMinSnippetLen = 24

// Snippet is a candidate source block pulled out of a chat message.
type Snippet struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"` // fence info string, lowered
}

// Extractor scans markdown-formatted chat text for fenced code blocks.
type Extractor struct {
	minLen int
}

// New creates an extractor with the given minimum snippet length.
// A minLen <= 0 falls back to DefaultMinSnippetLen.
func New(minLen int) *Extractor {
	if minLen <= 0 {
		minLen = DefaultMinSnippetLen
	}
	return &Extractor{minLen: minLen}
}

// Extract returns the primary code candidate from rawMessage, or false when
// the message carries no usable code block.
//
// When the message contains several fenced blocks the longest normalized
// block wins: assistant prose around code is short, the strategy itself is
// the largest contiguous region.
//
// An unterminated fence (a streamed message cut mid-block) extends to the end
// of the message, so partial revisions still produce a candidate.
func (e *Extractor) Extract(rawMessage string) (Snippet, bool) {
	var (
		best  Snippet
		found bool
	)

	rest := rawMessage
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			break
		}
		rest = rest[open+len(fence):]

		var region string
		if close := strings.Index(rest, fence); close >= 0 {
			region = rest[:close]
			rest = rest[close+len(fence):]
		} else {
			region = rest
			rest = ""
		}

		lang := ""
		if nl := strings.IndexByte(region, '\n'); nl >= 0 {
			// The opening line is an info string only when it looks like a
			// language tag; otherwise it is the first line of code.
			if first := strings.TrimSpace(region[:nl]); isLangTag(first) {
				lang = strings.ToLower(first)
				region = region[nl+1:]
			}
		}

		code := Normalize(region)
		if len(code) < e.minLen {
			continue
		}
		if !found || len(code) > len(best.Code) {
			best = Snippet{Code: code, Language: lang}
			found = true
		}
	}

	return best, found
}

// Normalize collapses CRLF to LF and strips leading/trailing whitespace.
// Internal indentation is preserved: it is a classification signal.
func Normalize(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return strings.TrimSpace(code)
}

// isLangTag reports whether s is a plausible fence info string
// ("python", "go", "c++", "", ...) rather than a line of code.
func isLangTag(s string) bool {
	if len(s) > 20 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '+' || r == '#' || r == '.':
		default:
			return false
		}
	}
	return true
}
