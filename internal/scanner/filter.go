package scanner

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude matches every file under the root.
var DefaultInclude = []string{"**/*"}

// DefaultExclude keeps tool and dependency directories out of a scan.
var DefaultExclude = []string{
	".git/**",
	"node_modules/**",
	"vendor/**",
	".taskpin/**",
}

// Filter decides which workspace-relative paths take part in a scan.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates the glob patterns. Empty include falls back to
// DefaultInclude.
func NewFilter(include, exclude []string) (*Filter, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &Filter{include: include, exclude: exclude}, nil
}

// Match reports whether the slash-separated relative path should be scanned.
func (f *Filter) Match(rel string) bool {
	rel = path.Clean(rel)
	if f.excluded(rel) {
		return false
	}
	for _, p := range f.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// SkipDir reports whether a whole directory can be left unvisited.
func (f *Filter) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	return f.excluded(path.Clean(rel))
}

func (f *Filter) excluded(rel string) bool {
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
