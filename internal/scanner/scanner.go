// Package scanner finds taskpin comments in workspace files and turns them
// into tasks.
package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/imkarma/taskpin/internal/git"
	"github.com/imkarma/taskpin/internal/pin"
)

// ErrNoWorkspace is returned when the scan root does not exist.
var ErrNoWorkspace = errors.New("no workspace folder open")

// DefaultMaxFileBytes is the largest file read by a scan.
const DefaultMaxFileBytes = 1 << 20

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8 << 10

// Scan modes.
const (
	ModeWorkspace = "workspace"
	ModeChanged   = "changed"
)

// Options configures a Scanner.
type Options struct {
	Root         string
	Mode         string // ModeWorkspace (default) or ModeChanged
	Include      []string
	Exclude      []string
	MaxFileBytes int64
	Marker       *pin.Marker
	Logger       *slog.Logger

	// Source overrides the file listing chosen by Mode.
	Source Source
}

// Scanner reads candidate files and extracts pins.
type Scanner struct {
	root     string
	mode     string
	filter   *Filter
	marker   *pin.Marker
	maxBytes int64
	source   Source
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Scanner. The root is made absolute and symlinks resolved so
// that paths reported by git line up with it.
func New(opts Options) (*Scanner, error) {
	filter, err := NewFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}

	s := &Scanner{
		root:     root,
		mode:     opts.Mode,
		filter:   filter,
		marker:   opts.Marker,
		maxBytes: opts.MaxFileBytes,
		source:   opts.Source,
		logger:   opts.Logger,
		now:      time.Now,
	}
	if s.mode == "" {
		s.mode = ModeWorkspace
	}
	if s.marker == nil {
		s.marker = pin.DefaultMarker()
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxFileBytes
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.source == nil {
		switch s.mode {
		case ModeWorkspace:
			s.source = WorkspaceSource{Root: root, Filter: filter}
		case ModeChanged:
			s.source = ChangedSource{Repo: git.New(root)}
		default:
			return nil, fmt.Errorf("unknown scan mode %q", s.mode)
		}
	}
	return s, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string { return s.root }

// Marker returns the marker the scanner matches.
func (s *Scanner) Marker() *pin.Marker { return s.marker }

// Matches reports whether a workspace-relative path would be scanned.
func (s *Scanner) Matches(rel string) bool {
	return s.filter.Match(filepath.ToSlash(rel))
}

// SkipDir reports whether a workspace-relative directory is excluded as a
// whole.
func (s *Scanner) SkipDir(rel string) bool {
	return s.filter.SkipDir(filepath.ToSlash(rel))
}

// Abs turns a workspace-relative task path into an absolute one.
func (s *Scanner) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Scan lists candidate files and returns every pin found, in file order and
// then line order. Files are read concurrently.
func (s *Scanner) Scan(ctx context.Context) ([]pin.Task, error) {
	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		return nil, ErrNoWorkspace
	}

	abs, err := s.source.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	files := s.candidates(abs)

	now := s.now()
	results := iter.Map(files, func(rel *string) []pin.Task {
		if ctx.Err() != nil {
			return nil
		}
		return s.scanFile(*rel, now)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tasks := []pin.Task{}
	for _, r := range results {
		tasks = append(tasks, r...)
	}
	s.logger.Debug("scan complete", "files", len(files), "pins", len(tasks), "mode", s.mode)
	return tasks, nil
}

// candidates converts absolute paths to sorted, de-duplicated relative
// paths that pass the filter. Paths outside the root are dropped.
func (s *Scanner) candidates(abs []string) []string {
	seen := make(map[string]bool, len(abs))
	var files []string
	for _, p := range abs {
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") || seen[rel] {
			continue
		}
		seen[rel] = true
		if s.filter.Match(rel) {
			files = append(files, rel)
		}
	}
	sort.Strings(files)
	return files
}

func (s *Scanner) scanFile(rel string, now time.Time) []pin.Task {
	p := s.Abs(rel)

	info, err := os.Stat(p)
	if err != nil {
		s.logger.Debug("skip unreadable file", "file", rel, "error", err)
		return nil
	}
	if info.Size() > s.maxBytes {
		s.logger.Debug("skip large file", "file", rel, "size", info.Size())
		return nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		s.logger.Debug("skip unreadable file", "file", rel, "error", err)
		return nil
	}
	if isBinary(data) {
		return nil
	}
	return ScanText(s.marker, rel, data, now)
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// ScanText extracts the pins of one file's contents. Line numbers are
// 1-based.
func ScanText(m *pin.Marker, file string, data []byte, now time.Time) []pin.Task {
	var tasks []pin.Task
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	line := 0
	for sc.Scan() {
		line++
		payload, ok := m.Match(sc.Text())
		if !ok {
			continue
		}
		tasks = append(tasks, pin.New(file, line, payload, now))
	}
	return tasks
}

// Preserve carries ids and creation dates over from prev to the matching
// tasks of next. Tasks match when file, line and raw comment are all equal;
// each previous task is used at most once.
func Preserve(prev, next []pin.Task) []pin.Task {
	type key struct {
		file string
		line int
		raw  string
	}
	old := make(map[key]pin.Task, len(prev))
	for _, t := range prev {
		k := key{t.File, t.Line, t.Raw}
		if _, dup := old[k]; !dup {
			old[k] = t
		}
	}

	out := make([]pin.Task, len(next))
	for i, t := range next {
		k := key{t.File, t.Line, t.Raw}
		if p, ok := old[k]; ok {
			t.ID = p.ID
			t.CreatedAt = p.CreatedAt
			delete(old, k)
		}
		out[i] = t
	}
	return out
}
