// Package source edits the taskpin comment on a given line of a workspace
// file: rewriting its status suffix or stripping the comment entirely.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/imkarma/taskpin/internal/atomicfile"
	"github.com/imkarma/taskpin/internal/pin"
)

var (
	// ErrGone means the file or the line no longer exists.
	ErrGone = errors.New("file or line no longer exists")
	// ErrNoMarker means the line exists but carries no pin.
	ErrNoMarker = errors.New("line no longer contains a taskpin comment")
)

var statusSuffix = regexp.MustCompile(`(?i)\s*\|\s*(C|IP)\s*$`)

// Change describes one line rewrite.
type Change struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Diff renders the change as a unified diff.
func (c Change) Diff() string {
	if c.Before == c.After {
		return ""
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        []string{c.Before + "\n"},
		B:        []string{c.After + "\n"},
		FromFile: "a/" + c.File,
		ToFile:   "b/" + c.File,
	})
	if err != nil {
		return ""
	}
	// difflib numbers hunks from the slice, not the file.
	return strings.Replace(out, "@@ -1 +1 @@", fmt.Sprintf("@@ -%d +%d @@", c.Line, c.Line), 1)
}

// Editor rewrites pin comments in files under a workspace root.
type Editor struct {
	root   string
	marker *pin.Marker

	// DryRun computes changes without writing files.
	DryRun bool
}

// New creates an Editor. A nil marker means the default "// taskpin:".
func New(root string, marker *pin.Marker) *Editor {
	if marker == nil {
		marker = pin.DefaultMarker()
	}
	return &Editor{root: root, marker: marker}
}

// Check reports ErrGone when file:line no longer exists and ErrNoMarker
// when the line carries no pin.
func (e *Editor) Check(file string, line int) error {
	f, err := e.read(file)
	if err != nil {
		return err
	}
	text, err := f.line(line)
	if err != nil {
		return err
	}
	if e.marker.Index(text) < 0 {
		return ErrNoMarker
	}
	return nil
}

// SetStatus replaces the status token of the pin at file:line, wherever it
// sits in the payload. Complete appends "| C", in progress "| IP" and
// backlog leaves no token. Indentation and line endings are kept.
func (e *Editor) SetStatus(file string, line int, status pin.Status) (Change, error) {
	return e.rewrite(file, line, func(text string) string {
		idx := e.marker.Index(text)
		text = text[:idx] + stripStatusFields(text[idx:])
		for statusSuffix.MatchString(text) {
			text = statusSuffix.ReplaceAllString(text, "")
		}
		text = strings.TrimRight(text, " \t")
		if tok := status.Token(); tok != "" {
			text += " | " + tok
		}
		return text
	})
}

// stripStatusFields drops every standalone C or IP field after the title
// of a pin comment. The title field is never touched.
func stripStatusFields(comment string) string {
	parts := strings.Split(comment, "|")
	kept := parts[:1]
	for _, part := range parts[1:] {
		switch strings.ToUpper(strings.TrimSpace(part)) {
		case "C", "IP":
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "|")
}

// RemovePin strips the pin comment from file:line. The line itself stays so
// the line numbers of other pins do not shift.
func (e *Editor) RemovePin(file string, line int) (Change, error) {
	return e.rewrite(file, line, func(text string) string {
		return strings.TrimRight(text[:e.marker.Index(text)], " \t")
	})
}

func (e *Editor) rewrite(file string, line int, edit func(string) string) (Change, error) {
	f, err := e.read(file)
	if err != nil {
		return Change{}, err
	}
	before, err := f.line(line)
	if err != nil {
		return Change{}, err
	}
	if e.marker.Index(before) < 0 {
		return Change{}, ErrNoMarker
	}

	after := edit(before)
	c := Change{File: file, Line: line, Before: before, After: after}
	if e.DryRun || before == after {
		return c, nil
	}

	f.set(line, after)
	if err := atomicfile.WriteFile(f.path, f.bytes(), 0o644); err != nil {
		return Change{}, fmt.Errorf("write %s: %w", file, err)
	}
	return c, nil
}

func (e *Editor) read(file string) (*document, error) {
	p := file
	if !filepath.IsAbs(p) {
		p = filepath.Join(e.root, filepath.FromSlash(file))
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrGone
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return parseDocument(p, data), nil
}

// document is a file split into lines with their original endings.
type document struct {
	path  string
	lines []string // content without ending
	ends  []string // "\n", "\r\n" or "" for an unterminated last line
}

func parseDocument(path string, data []byte) *document {
	d := &document{path: path}
	for _, seg := range strings.SplitAfter(string(data), "\n") {
		if seg == "" {
			continue
		}
		end := ""
		switch {
		case strings.HasSuffix(seg, "\r\n"):
			end = "\r\n"
		case strings.HasSuffix(seg, "\n"):
			end = "\n"
		}
		d.lines = append(d.lines, strings.TrimSuffix(seg, end))
		d.ends = append(d.ends, end)
	}
	return d
}

func (d *document) line(n int) (string, error) {
	if n < 1 || n > len(d.lines) {
		return "", ErrGone
	}
	return d.lines[n-1], nil
}

func (d *document) set(n int, text string) {
	d.lines[n-1] = text
}

func (d *document) bytes() []byte {
	var b strings.Builder
	for i, l := range d.lines {
		b.WriteString(l)
		b.WriteString(d.ends[i])
	}
	return []byte(b.String())
}
