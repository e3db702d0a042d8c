package headline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/dgallion1/orgtree/internal/outline"
)

var (
	ErrNotHeadline          = errors.New("text does not start with a heading line")
	ErrInvalidLevel         = errors.New("level must be at least 1")
	ErrInvalidKeyword       = errors.New("keyword is not in the keyword set")
	ErrInvalidPriority      = errors.New("priority must be an uppercase ASCII letter")
	ErrInvalidTags          = errors.New("tag holds a character outside letters, digits and _@#%")
	ErrInvalidTitle         = errors.New("title spans more than one line")
	ErrInvalidPlanning      = errors.New("invalid planning timestamp")
	ErrInvalidBody          = errors.New("body holds a heading line")
	ErrInvalidProperty      = errors.New("property key or value is not a single token line")
	ErrNonEquivalentReparse = errors.New("rendered headline does not parse back to the same fields")
)

// Context carries the keywords recognised at the start of a title.
type Context struct {
	Keywords []string
}

// DefaultContext recognises TODO and DONE.
func DefaultContext() Context {
	return Context{Keywords: []string{"TODO", "DONE"}}
}

// ParseKeywords builds a Context from a colon separated list such as
// "TODO:NEXT:DONE". Empty entries are dropped.
func ParseKeywords(s string) Context {
	var kw []string
	for k := range strings.SplitSeq(s, ":") {
		if k = strings.TrimSpace(k); k != "" {
			kw = append(kw, k)
		}
	}
	return Context{Keywords: kw}
}

func (c Context) has(keyword string) bool {
	return slices.Contains(c.Keywords, keyword)
}

// Planning holds the raw timestamps of a planning line. Empty means absent.
type Planning struct {
	Closed    string `json:"closed,omitempty"`
	Deadline  string `json:"deadline,omitempty"`
	Scheduled string `json:"scheduled,omitempty"`
}

// IsZero reports whether no planning entry is set.
func (p Planning) IsZero() bool {
	return p == Planning{}
}

// Headline is the field view of one node's text.
type Headline struct {
	Level     int      `json:"level"`
	Keyword   string   `json:"keyword,omitempty"`
	Priority  byte     `json:"-"`
	Commented bool     `json:"commented,omitempty"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags,omitempty"`
	Planning  Planning `json:"planning"`
	Body      string   `json:"body"`

	// Source lines as parsed. Render reuses them when the fields they carry
	// are unchanged so untouched alignment survives a rewrite.
	src *source
}

type source struct {
	fields       Headline
	headingLine  string
	planningLine string
	// unterminated is set when the text did not end in '\n'.
	unterminated bool
}

// PriorityString returns the priority letter or "".
func (h Headline) PriorityString() string {
	if h.Priority == 0 {
		return ""
	}
	return string(h.Priority)
}

// HasTag reports whether tag is set.
func (h Headline) HasTag(tag string) bool {
	return slices.Contains(h.Tags, tag)
}

// Validate checks every field without rendering.
func (h Headline) Validate(ctx Context) error {
	if h.Level < 1 {
		return ErrInvalidLevel
	}
	if h.Keyword != "" && !ctx.has(h.Keyword) {
		return fmt.Errorf("%w: %q", ErrInvalidKeyword, h.Keyword)
	}
	if h.Priority != 0 && (h.Priority < 'A' || h.Priority > 'Z') {
		return ErrInvalidPriority
	}
	for _, tag := range h.Tags {
		if !validTag(tag) {
			return fmt.Errorf("%w: %q", ErrInvalidTags, tag)
		}
	}
	if strings.ContainsAny(h.Title, "\r\n") {
		return ErrInvalidTitle
	}
	for _, ts := range []string{h.Planning.Closed, h.Planning.Deadline, h.Planning.Scheduled} {
		if ts == "" {
			continue
		}
		if _, err := ParseTimestamp(ts); err != nil {
			return err
		}
	}
	if containsHeading(h.Body) {
		return ErrInvalidBody
	}
	return nil
}

func validTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, r := range tag {
		if !isTagRune(r) {
			return false
		}
	}
	return true
}

func isTagRune(r rune) bool {
	return r == '_' || r == '@' || r == '#' || r == '%' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func containsHeading(s string) bool {
	for line := range strings.Lines(s) {
		if outline.HeadingLevel(line) > 0 {
			return true
		}
	}
	return false
}

// equalFields compares everything a render depends on.
func equalFields(a, b Headline) bool {
	return a.Level == b.Level &&
		a.Keyword == b.Keyword &&
		a.Priority == b.Priority &&
		a.Commented == b.Commented &&
		a.Title == b.Title &&
		slices.Equal(a.Tags, b.Tags) &&
		a.Planning == b.Planning &&
		a.Body == b.Body
}
