package scanner

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/imkarma/taskpin/internal/git"
)

// Source lists the candidate files of a scan as absolute paths.
type Source interface {
	Files(ctx context.Context) ([]string, error)
}

// WorkspaceSource walks every directory under Root, pruning directories the
// filter excludes.
type WorkspaceSource struct {
	Root   string
	Filter *Filter
}

// Files implements Source.
func (w WorkspaceSource) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() && p != w.Root {
				return fs.SkipDir
			}
			if p == w.Root {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(w.Root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.Filter != nil && w.Filter.SkipDir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

// ChangedSource lists files git reports as modified, added, renamed or
// untracked.
type ChangedSource struct {
	Repo *git.Repo
}

// Files implements Source.
func (c ChangedSource) Files(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Repo.ChangedFiles()
}
