// Package git answers the few questions taskpin asks of version control:
// is this a repository, where is its root, and which files have changed.
package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repo runs git commands in a working directory.
type Repo struct {
	workDir string
}

// New creates a Repo for the given working directory.
func New(workDir string) *Repo {
	return &Repo{workDir: workDir}
}

// Available reports whether the git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsGitRepo checks if the working directory is a git repository.
func (r *Repo) IsGitRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = r.workDir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// Root returns the absolute top-level directory of the repository.
func (r *Repo) Root() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = r.workDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel: %w", err)
	}
	return filepath.FromSlash(strings.TrimSpace(string(out))), nil
}

// ChangedFiles returns absolute paths of files in the working tree that are
// modified, added, renamed, copied or untracked. Deleted files are left out
// since there is nothing to read.
func (r *Repo) ChangedFiles() ([]string, error) {
	root, err := r.Root()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("git", "status", "--porcelain", "-z", "--untracked-files=all")
	cmd.Dir = r.workDir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}

	var files []string
	for _, rel := range parsePorcelainZ(string(out)) {
		files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
	}
	return files, nil
}

// parsePorcelainZ extracts the current path of every non-deleted entry from
// `git status --porcelain -z` output. Renames and copies are followed by
// their source path, which is skipped.
func parsePorcelainZ(out string) []string {
	var paths []string
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		x, y := entry[0], entry[1]
		path := entry[3:]

		if x == 'R' || x == 'C' {
			i++ // Source path follows.
		}
		if x == 'D' || y == 'D' {
			continue
		}
		paths = append(paths, path)
	}
	return paths
}
