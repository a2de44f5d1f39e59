package pin

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultKeyword is the marker keyword recognised when none is configured.
const DefaultKeyword = "taskpin"

// DefaultPrefixes are the comment leaders recognised when none are configured.
var DefaultPrefixes = []string{"//"}

// Fields holds the parts of a pin payload.
type Fields struct {
	Raw      string
	Title    string
	Priority Priority
	Status   Status
	Tags     []string
	Starred  bool
}

// ParsePayload splits a pin payload on "|" and classifies each field after
// the title. Within a field the first rule that matches wins; across fields
// the first priority token and the first status token win. Unknown fields
// are ignored. An empty title is kept as is.
func ParsePayload(payload string) Fields {
	raw := strings.TrimSpace(payload)
	parts := strings.Split(raw, "|")

	f := Fields{
		Raw:      raw,
		Title:    strings.TrimSpace(parts[0]),
		Priority: PriorityLow,
		Status:   StatusBacklog,
		Tags:     []string{},
	}

	var havePriority, haveStatus bool
	for _, part := range parts[1:] {
		field := strings.TrimSpace(part)
		switch {
		case field == "L" || field == "M" || field == "H":
			if !havePriority {
				f.Priority = Priority(field)
				havePriority = true
			}
		case strings.HasPrefix(field, "#"):
			f.Tags = append(f.Tags, field[1:])
		case strings.EqualFold(field, "starred"):
			f.Starred = true
		case upper(field) == "C":
			if !haveStatus {
				f.Status = StatusComplete
				haveStatus = true
			}
		case upper(field) == "IP":
			if !haveStatus {
				f.Status = StatusInProgress
				haveStatus = true
			}
		}
	}
	return f
}

// Marker recognises and writes taskpin comments for one keyword and a set of
// comment prefixes.
type Marker struct {
	keyword  string
	prefixes []string
	re       *regexp.Regexp
}

// NewMarker compiles a case-insensitive marker of the shape
// "<prefix> <keyword>: <payload>".
func NewMarker(keyword string, prefixes []string) (*Marker, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("marker keyword is empty")
	}
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}

	alts := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("marker prefix is empty")
		}
		alts = append(alts, regexp.QuoteMeta(p))
	}

	expr := `(?i)(?:` + strings.Join(alts, "|") + `)\s*` + regexp.QuoteMeta(keyword) + `\s*:\s*(.*)`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile marker: %w", err)
	}
	return &Marker{keyword: keyword, prefixes: prefixes, re: re}, nil
}

// DefaultMarker returns the "// taskpin:" marker.
func DefaultMarker() *Marker {
	m, err := NewMarker(DefaultKeyword, DefaultPrefixes)
	if err != nil {
		panic(err)
	}
	return m
}

// Keyword returns the configured keyword.
func (m *Marker) Keyword() string { return m.keyword }

// Match reports whether line carries a pin and returns its trimmed payload.
func (m *Marker) Match(line string) (string, bool) {
	match := m.re.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

// Index returns the byte offset where the marker comment starts in line,
// or -1 when the line carries no pin.
func (m *Marker) Index(line string) int {
	loc := m.re.FindStringIndex(line)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// Format writes t back out as a marker comment using the first prefix.
// Parsing the result yields the same fields as t.
func (m *Marker) Format(t Task) string {
	parts := []string{t.Title}
	if t.Priority != "" {
		parts = append(parts, string(t.Priority))
	}
	for _, tag := range t.Tags {
		parts = append(parts, "#"+tag)
	}
	if t.Starred {
		parts = append(parts, "starred")
	}
	if tok := t.Status.Token(); tok != "" {
		parts = append(parts, tok)
	}
	return m.prefixes[0] + " " + m.keyword + ": " + strings.Join(parts, " | ")
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
