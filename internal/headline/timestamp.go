package headline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Timestamp is one point of a planning timestamp such as
// <2024-05-01 Wed 10:00-11:30 +1w -2d>.
type Timestamp struct {
	Active   bool
	Date     time.Time
	Time     string // "H:MM", empty when the timestamp is a bare date
	EndTime  string // end of a "H:MM-H:MM" span
	Repeater string // "+1w", "++2d" or ".+1m"
	Delay    string // "-2d" or "--1d"
}

// atomicTimestamp matches one bracketed timestamp. The day name may be any
// word without digits, signs or brackets.
var atomicTimestamp = regexp.MustCompile(
	`^([<\[])(\d{4}-\d{2}-\d{2})` +
		`(?: +[^\s\d+>\]-]+)?` +
		`(?: +(\d{1,2}:\d{2})(?:-(\d{1,2}:\d{2}))?)?` +
		`((?: +(?:\+\+|\.\+|\+|--|-)\d+[hdwmy]){0,2})` +
		` *([>\]])$`)

var cookie = regexp.MustCompile(`(\+\+|\.\+|\+|--|-)(\d+[hdwmy])`)

// ParseTimestamp parses a planning timestamp. A range "<a>--<b>" yields two
// points of the same kind; anything else yields one.
func ParseTimestamp(s string) ([]Timestamp, error) {
	n := timestampLen(s)
	if n == 0 || n != len(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlanning, s)
	}
	split := bracketLen(s)
	if split == len(s) {
		ts, err := parseAtomic(s)
		if err != nil {
			return nil, err
		}
		return []Timestamp{ts}, nil
	}
	first, second := s[:split], s[split+len("--"):]
	start, err := parseAtomic(first)
	if err != nil {
		return nil, err
	}
	end, err := parseAtomic(second)
	if err != nil {
		return nil, err
	}
	if start.Active != end.Active {
		return nil, fmt.Errorf("%w: range mixes active and inactive timestamps", ErrInvalidPlanning)
	}
	return []Timestamp{start, end}, nil
}

func parseAtomic(s string) (Timestamp, error) {
	m := atomicTimestamp.FindStringSubmatch(s)
	if m == nil || (m[1] == "<") != (m[6] == ">") {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidPlanning, s)
	}
	date, err := time.Parse(time.DateOnly, m[2])
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q: %v", ErrInvalidPlanning, s, err)
	}
	ts := Timestamp{Active: m[1] == "<", Date: date, Time: m[3], EndTime: m[4]}
	for _, clock := range []string{ts.Time, ts.EndTime} {
		if clock != "" && !validClock(clock) {
			return Timestamp{}, fmt.Errorf("%w: bad time %q", ErrInvalidPlanning, clock)
		}
	}
	for _, c := range cookie.FindAllStringSubmatch(m[5], -1) {
		if strings.HasPrefix(c[1], "-") {
			if ts.Delay != "" {
				return Timestamp{}, fmt.Errorf("%w: two delays in %q", ErrInvalidPlanning, s)
			}
			ts.Delay = c[0]
		} else {
			if ts.Repeater != "" {
				return Timestamp{}, fmt.Errorf("%w: two repeaters in %q", ErrInvalidPlanning, s)
			}
			ts.Repeater = c[0]
		}
	}
	return ts, nil
}

func validClock(s string) bool {
	hh, mm, _ := strings.Cut(s, ":")
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	return err1 == nil && err2 == nil && h < 24 && m < 60
}

// validTimestamp reports whether s is exactly one timestamp or range.
func validTimestamp(s string) bool {
	_, err := ParseTimestamp(s)
	return err == nil
}
