package headline

import (
	"slices"
	"strings"

	"github.com/dgallion1/orgtree/internal/outline"
)

// Render validates h and turns it back into node text. The result must parse
// back into the same fields, so a title that would be read as a keyword or
// a body that starts with a planning line is rejected.
func (h Headline) Render(ctx Context) (string, error) {
	if err := h.Validate(ctx); err != nil {
		return "", err
	}
	out := h.render()
	back, err := Parse(out, ctx)
	if err != nil || !equalFields(back, h) {
		return "", ErrNonEquivalentReparse
	}
	return out, nil
}

func (h Headline) render() string {
	var sb strings.Builder
	if h.src != nil && sameHeading(h, h.src.fields) {
		sb.WriteString(h.src.headingLine)
	} else {
		sb.WriteString(h.headingLine())
	}
	sb.WriteByte('\n')

	if !h.Planning.IsZero() {
		if h.src != nil && h.src.planningLine != "" && h.Planning == h.src.fields.Planning {
			sb.WriteString(h.src.planningLine)
		} else {
			sb.WriteString(h.planningLine())
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(h.Body)
	out := sb.String()
	// A node that ended without a terminator keeps ending that way while
	// its last line is a rendered one.
	if h.src != nil && h.src.unterminated && h.Body == "" {
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}

func sameHeading(a, b Headline) bool {
	return a.Level == b.Level &&
		a.Keyword == b.Keyword &&
		a.Priority == b.Priority &&
		a.Commented == b.Commented &&
		a.Title == b.Title &&
		slices.Equal(a.Tags, b.Tags)
}

func (h Headline) headingLine() string {
	var parts []string
	if h.Keyword != "" {
		parts = append(parts, h.Keyword)
	}
	if h.Priority != 0 {
		parts = append(parts, "[#"+string(h.Priority)+"]")
	}
	if h.Commented {
		parts = append(parts, "COMMENT")
	}
	if h.Title != "" {
		parts = append(parts, h.Title)
	}
	if len(h.Tags) > 0 {
		parts = append(parts, ":"+strings.Join(h.Tags, ":")+":")
	}
	return strings.Repeat("*", h.Level) + " " + strings.Join(parts, " ")
}

func (h Headline) planningLine() string {
	var parts []string
	if h.Planning.Closed != "" {
		parts = append(parts, "CLOSED: "+h.Planning.Closed)
	}
	if h.Planning.Deadline != "" {
		parts = append(parts, "DEADLINE: "+h.Planning.Deadline)
	}
	if h.Planning.Scheduled != "" {
		parts = append(parts, "SCHEDULED: "+h.Planning.Scheduled)
	}
	return strings.Join(parts, " ")
}

// AddTags appends tags not already present.
func (h *Headline) AddTags(tags ...string) {
	for _, t := range tags {
		if !h.HasTag(t) {
			h.Tags = append(h.Tags, t)
		}
	}
}

// RemoveTag drops every occurrence of tag.
func (h *Headline) RemoveTag(tag string) {
	h.Tags = slices.DeleteFunc(h.Tags, func(t string) bool { return t == tag })
}

// CanonicalTags removes duplicate tags, keeping first occurrences.
func (h *Headline) CanonicalTags() {
	var out []string
	for _, t := range h.Tags {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	h.Tags = out
}

// Read parses the headline of s. Document roots have none.
func Read(s outline.Section, ctx Context) (Headline, error) {
	if s.IsRoot() {
		return Headline{}, ErrNotHeadline
	}
	return Parse(s.Raw(), ctx)
}

// Write renders h and stores it as the text of s. A level change goes
// through SetLevel first; if the text is then rejected the level is put
// back.
func Write(s outline.Section, h Headline, ctx Context) error {
	if s.IsRoot() {
		return ErrNotHeadline
	}
	text, err := h.Render(ctx)
	if err != nil {
		return err
	}
	old := s.Level()
	if h.Level != old {
		if err := s.SetLevel(h.Level); err != nil {
			return err
		}
	}
	if err := s.SetRaw(text); err != nil {
		if h.Level != old {
			_ = s.SetLevel(old)
		}
		return err
	}
	return nil
}
