package headline

import (
	"strings"
	"unicode"

	"github.com/dgallion1/orgtree/internal/outline"
)

// Parse splits the text of one node into fields. text must start with a
// heading line; anything after the heading line (and the planning line, if
// one follows) is the body.
func Parse(text string, ctx Context) (Headline, error) {
	rawHeading, rest, _ := strings.Cut(text, "\n")
	heading := strings.TrimSuffix(rawHeading, "\r")
	level := outline.HeadingLevel(heading + "\n")
	if level == 0 {
		return Headline{}, ErrNotHeadline
	}

	h := Headline{Level: level}
	line := heading[level:]

	if kw, after, ok := parseKeyword(line, ctx); ok {
		h.Keyword = kw
		line = after
	}
	if p, after, ok := parsePriority(line); ok {
		h.Priority = p
		line = after
	}
	line, h.Tags = parseTags(line)
	title := strings.TrimSpace(line)
	if after, ok := strings.CutPrefix(title, "COMMENT"); ok && (after == "" || isSpace(after[0])) {
		h.Commented = true
		title = strings.TrimLeft(after, " \t")
	}
	h.Title = title

	body := rest
	var planningLine string
	if first, after, found := strings.Cut(rest, "\n"); found || rest != "" {
		if p, ok := parsePlanning(first); ok {
			h.Planning = p
			planningLine = first
			body = after
		}
	}
	h.Body = body

	h.src = &source{
		fields:       h,
		headingLine:  rawHeading,
		planningLine: planningLine,
		unterminated: !strings.HasSuffix(text, "\n"),
	}
	return h, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func parseKeyword(line string, ctx Context) (string, string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	end := strings.IndexFunc(trimmed, unicode.IsSpace)
	if end < 0 {
		end = len(trimmed)
	}
	kw := trimmed[:end]
	if kw == "" || !ctx.has(kw) {
		return "", line, false
	}
	return kw, trimmed[end:], true
}

func parsePriority(line string) (byte, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 4 || !strings.HasPrefix(trimmed, "[#") || trimmed[3] != ']' {
		return 0, line, false
	}
	p := trimmed[2]
	if p < 'A' || p > 'Z' {
		return 0, line, false
	}
	return p, trimmed[4:], true
}

// parseTags removes a trailing :tag1:tag2: group. Empty tags between
// repeated colons are dropped.
func parseTags(line string) (string, []string) {
	trimmed := strings.TrimRight(line, " \t")
	start := strings.LastIndexAny(trimmed, " \t") + 1
	group := trimmed[start:]
	if len(group) < 2 || group[0] != ':' || group[len(group)-1] != ':' {
		return line, nil
	}
	var tags []string
	for tag := range strings.SplitSeq(group[1:len(group)-1], ":") {
		if tag == "" {
			continue
		}
		if !validTag(tag) {
			return line, nil
		}
		tags = append(tags, tag)
	}
	return trimmed[:start], tags
}

// parsePlanning recognises a line made only of CLOSED:, DEADLINE: and
// SCHEDULED: entries. A repeated keyword keeps its last timestamp.
func parsePlanning(line string) (Planning, bool) {
	var p Planning
	rest := strings.TrimLeft(strings.TrimSuffix(line, "\r"), " \t")
	found := false
	for rest != "" {
		var target *string
		switch {
		case strings.HasPrefix(rest, "CLOSED:"):
			target, rest = &p.Closed, rest[len("CLOSED:"):]
		case strings.HasPrefix(rest, "DEADLINE:"):
			target, rest = &p.Deadline, rest[len("DEADLINE:"):]
		case strings.HasPrefix(rest, "SCHEDULED:"):
			target, rest = &p.Scheduled, rest[len("SCHEDULED:"):]
		default:
			return Planning{}, false
		}
		rest = strings.TrimLeft(rest, " \t")
		n := timestampLen(rest)
		if n == 0 || !validTimestamp(rest[:n]) {
			return Planning{}, false
		}
		*target = rest[:n]
		rest = strings.TrimLeft(rest[n:], " \t")
		found = true
	}
	return p, found
}

// timestampLen returns the length of the bracketed timestamp, or range of two
// timestamps joined by "--", at the start of s.
func timestampLen(s string) int {
	n := bracketLen(s)
	if n == 0 {
		return 0
	}
	if strings.HasPrefix(s[n:], "--") {
		if m := bracketLen(s[n+2:]); m > 0 {
			return n + 2 + m
		}
	}
	return n
}

func bracketLen(s string) int {
	if s == "" {
		return 0
	}
	var closing byte
	switch s[0] {
	case '<':
		closing = '>'
	case '[':
		closing = ']'
	default:
		return 0
	}
	end := strings.IndexByte(s, closing)
	if end < 2 || strings.ContainsAny(s[1:end], "\n<[") {
		return 0
	}
	return end + 1
}
