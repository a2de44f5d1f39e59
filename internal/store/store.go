// Package store keeps the current list of pins in memory and mirrors it to a
// flat text file, one comma-separated record per task. Every mutation
// rewrites the whole file.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/imkarma/taskpin/internal/atomicfile"
	"github.com/imkarma/taskpin/internal/pin"
)

// DefaultFileName is the store file created at the workspace root.
const DefaultFileName = "taskpins.txt"

// Store is the persisted, mutable collection of current tasks. The list
// order is the display order.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	tasks []pin.Task
}

// New creates a Store backed by path without reading it.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Open creates a Store backed by path and loads it. A missing file is an
// empty store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := New(path, logger)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory list with the contents of the backing file.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.tasks = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}

	tasks, bad, err := decodeRecords(data)
	if err != nil {
		return fmt.Errorf("parse store: %w", err)
	}
	for _, b := range bad {
		// Kept with partial fields; the next save writes it back as is.
		s.logger.Warn("malformed store record",
			"path", s.path, "line", b.Line, "fields", b.Fields, "reason", b.Reason)
	}
	s.tasks = tasks
	return nil
}

// Save writes the full list to the backing file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := encodeRecords(s.tasks)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := atomicfile.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

// Tasks returns a copy of the current list.
func (s *Store) Tasks() []pin.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]pin.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (pin.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return pin.Task{}, false
}

// ReplaceAll discards the current list, installs tasks and saves.
func (s *Store) ReplaceAll(tasks []pin.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make([]pin.Task, len(tasks))
	for i, t := range tasks {
		s.tasks[i] = t.Clone()
	}
	return s.saveLocked()
}

// ToggleStarred flips the starred flag of a task and saves. The returned
// bool is false when no task has that id.
func (s *Store) ToggleStarred(id string) (pin.Task, bool, error) {
	return s.mutate(id, func(t *pin.Task) { t.Starred = !t.Starred })
}

// SetStatus changes the status of a task and saves.
func (s *Store) SetStatus(id string, status pin.Status) (pin.Task, bool, error) {
	return s.mutate(id, func(t *pin.Task) { t.Status = status })
}

func (s *Store) mutate(id string, fn func(*pin.Task)) (pin.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return pin.Task{}, false, nil
	}
	fn(&s.tasks[i])
	return s.tasks[i].Clone(), true, s.saveLocked()
}

// Delete removes a task and saves. Deleting an unknown id is a no-op that
// returns the removed task zero value and false.
func (s *Store) Delete(id string) (pin.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return pin.Task{}, false, nil
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return removed, true, s.saveLocked()
}

// Reorder sorts the list by each id's position in order and saves. Ids not
// present in order rank as -1, so they move ahead of every listed id while
// keeping their relative order.
func (s *Store) Reorder(order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	pos := func(id string) int {
		if r, ok := rank[id]; ok {
			return r
		}
		return -1
	}
	sort.SliceStable(s.tasks, func(a, b int) bool {
		return pos(s.tasks[a].ID) < pos(s.tasks[b].ID)
	})
	return s.saveLocked()
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
