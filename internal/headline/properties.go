package headline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/niklasfasching/go-org/org"
)

// ErrNoPropertiesParser is returned by Absent.
var ErrNoPropertiesParser = errors.New("no properties parser configured")

// Property is one key/value line of a property drawer.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PropertiesParser reads and rewrites the property drawer held in a
// headline body.
type PropertiesParser interface {
	Properties(body string) ([]Property, error)
	SetProperty(body, key, value string) (string, error)
	ClearProperty(body, key string) (string, error)
	SetProperties(body string, props []Property) (string, error)
}

// Absent is the PropertiesParser used when drawers are not supported.
type Absent struct{}

// Properties always fails with ErrNoPropertiesParser.
func (Absent) Properties(string) ([]Property, error) {
	return nil, ErrNoPropertiesParser
}

// SetProperty always fails with ErrNoPropertiesParser.
func (Absent) SetProperty(string, string, string) (string, error) {
	return "", ErrNoPropertiesParser
}

// ClearProperty always fails with ErrNoPropertiesParser.
func (Absent) ClearProperty(string, string) (string, error) {
	return "", ErrNoPropertiesParser
}

// SetProperties always fails with ErrNoPropertiesParser.
func (Absent) SetProperties(string, []Property) (string, error) {
	return "", ErrNoPropertiesParser
}

// Drawer handles a :PROPERTIES: ... :END: drawer on the first line of the
// body, read with go-org. Keys compare case-insensitively and are reported
// upper-cased.
type Drawer struct{}

// Properties returns the drawer's entries in order, or nil when the body
// has no closed drawer.
func (Drawer) Properties(body string) ([]Property, error) {
	d, ok := findDrawer(body)
	if !ok {
		return nil, nil
	}
	return d.props, nil
}

// SetProperty replaces the value of key, or appends it to the drawer,
// creating the drawer when the body has none. Other body bytes are kept.
func (Drawer) SetProperty(body, key, value string) (string, error) {
	line, err := propertyLine(key, value)
	if err != nil {
		return "", err
	}
	d, ok := findDrawer(body)
	if !ok {
		return ":PROPERTIES:\n" + line + ":END:\n" + body, nil
	}
	if i := d.index(key); i >= 0 {
		start, end := d.lines[i][0], d.lines[i][1]
		return body[:start] + line + body[end:], nil
	}
	return body[:d.end] + line + body[d.end:], nil
}

// ClearProperty removes key from the drawer. A drawer left empty is removed
// too; clearing a key that is not set returns body unchanged.
func (Drawer) ClearProperty(body, key string) (string, error) {
	d, ok := findDrawer(body)
	if !ok {
		return body, nil
	}
	i := d.index(key)
	if i < 0 {
		return body, nil
	}
	if len(d.props) == 1 {
		return body[d.close:], nil
	}
	start, end := d.lines[i][0], d.lines[i][1]
	return body[:start] + body[end:], nil
}

// SetProperties replaces the whole drawer with props, in order. An empty
// props removes the drawer.
func (Drawer) SetProperties(body string, props []Property) (string, error) {
	var sb strings.Builder
	for _, p := range props {
		line, err := propertyLine(p.Key, p.Value)
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
	}
	if d, ok := findDrawer(body); ok {
		body = body[d.close:]
	}
	if len(props) == 0 {
		return body, nil
	}
	return ":PROPERTIES:\n" + sb.String() + ":END:\n" + body, nil
}

func propertyLine(key, value string) (string, error) {
	if key == "" || strings.ContainsAny(key, " \t\r\n:") || strings.ContainsAny(value, "\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidProperty, key)
	}
	if value == "" {
		return ":" + key + ":\n", nil
	}
	return ":" + key + ": " + value + "\n", nil
}

type drawer struct {
	props []Property
	lines [][2]int // byte range of each property line
	end   int      // offset of the :END: line
	close int      // offset just past the :END: line
}

func (d drawer) index(key string) int {
	for i, p := range d.props {
		if strings.EqualFold(p.Key, key) {
			return i
		}
	}
	return -1
}

// findDrawer reads the drawer with go-org and locates its lines in body so
// they can be rewritten in place.
func findDrawer(body string) (drawer, bool) {
	pd := orgDrawer(body)
	if pd == nil {
		return drawer{}, false
	}
	d, ok := drawerLines(body)
	if !ok || len(d.lines) != len(pd.Properties) {
		return drawer{}, false
	}
	for _, kv := range pd.Properties {
		d.props = append(d.props, Property{Key: kv[0], Value: kv[1]})
	}
	return d, true
}

func orgDrawer(body string) *org.PropertyDrawer {
	doc := org.New().Silent().Parse(strings.NewReader("* _\n"+body), "")
	if doc.Error != nil || len(doc.Nodes) == 0 {
		return nil
	}
	h, ok := doc.Nodes[0].(org.Headline)
	if !ok {
		return nil
	}
	return h.Properties
}

func drawerLines(body string) (drawer, bool) {
	var d drawer
	pos := 0
	for line := range strings.Lines(body) {
		trimmed := strings.TrimSpace(line)
		switch {
		case pos == 0:
			if !strings.EqualFold(trimmed, ":PROPERTIES:") {
				return drawer{}, false
			}
		case strings.EqualFold(trimmed, ":END:"):
			d.end, d.close = pos, pos+len(line)
			return d, true
		default:
			d.lines = append(d.lines, [2]int{pos, pos + len(line)})
		}
		pos += len(line)
	}
	return drawer{}, false
}

// Property returns the value of key from h's drawer.
func (h Headline) Property(p PropertiesParser, key string) (string, bool, error) {
	props, err := p.Properties(h.Body)
	if err != nil {
		return "", false, err
	}
	for _, prop := range props {
		if strings.EqualFold(prop.Key, key) {
			return prop.Value, true, nil
		}
	}
	return "", false, nil
}

// SetProperty updates h.Body through p.
func (h *Headline) SetProperty(p PropertiesParser, key, value string) error {
	body, err := p.SetProperty(h.Body, key, value)
	if err != nil {
		return err
	}
	h.Body = body
	return nil
}

// ClearProperty removes key from h.Body through p.
func (h *Headline) ClearProperty(p PropertiesParser, key string) error {
	body, err := p.ClearProperty(h.Body, key)
	if err != nil {
		return err
	}
	h.Body = body
	return nil
}

// SetProperties replaces h's drawer with props through p.
func (h *Headline) SetProperties(p PropertiesParser, props []Property) error {
	body, err := p.SetProperties(h.Body, props)
	if err != nil {
		return err
	}
	h.Body = body
	return nil
}

// GenerateID returns h's ID property, first setting it to a fresh UUID when
// it is missing or empty.
func (h *Headline) GenerateID(p PropertiesParser) (string, error) {
	id, ok, err := h.Property(p, "ID")
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := h.SetProperty(p, "ID", id); err != nil {
		return "", err
	}
	return id, nil
}
