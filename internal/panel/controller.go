// Package panel owns the task panel's lifecycle: it answers panel messages
// by mutating the store and the source files, rescans, and pushes the
// resulting list back to whatever renders it.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/imkarma/taskpin/internal/history"
	"github.com/imkarma/taskpin/internal/pin"
	"github.com/imkarma/taskpin/internal/scanner"
	"github.com/imkarma/taskpin/internal/source"
	"github.com/imkarma/taskpin/internal/store"
)

// ErrClosed is returned for messages that arrive after Close.
var ErrClosed = errors.New("panel is closed")

// State is the controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateRendered
	StateMutating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateRendered:
		return "rendered"
	case StateMutating:
		return "mutating"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Sink receives host-to-panel pushes.
type Sink interface {
	Send(Push) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Push) error

// Send implements Sink.
func (f SinkFunc) Send(p Push) error { return f(p) }

// Navigator shows a file position to the user.
type Navigator interface {
	Reveal(ctx context.Context, file string, line int) error
}

// Scanner produces the current pins of the workspace.
type Scanner interface {
	Scan(ctx context.Context) ([]pin.Task, error)
}

// Editor changes pin comments in source files.
type Editor interface {
	Check(file string, line int) error
	SetStatus(file string, line int, status pin.Status) (source.Change, error)
	RemovePin(file string, line int) (source.Change, error)
}

// Recorder appends history events.
type Recorder interface {
	Record(e history.Event) error
}

// Options wires a Controller.
type Options struct {
	Store     *store.Store
	Scanner   Scanner
	Editor    Editor
	Navigator Navigator
	Sink      Sink
	History   Recorder // optional
	Logger    *slog.Logger

	// PreserveIDs keeps ids and creation dates of pins whose file, line and
	// raw comment did not change across a rescan.
	PreserveIDs bool
}

// Controller serializes panel messages and keeps the renderer in sync with
// the store.
type Controller struct {
	store       *store.Store
	scanner     Scanner
	editor      Editor
	nav         Navigator
	sink        Sink
	history     Recorder
	logger      *slog.Logger
	preserveIDs bool

	mu    sync.Mutex
	state State
}

// NewController creates a Controller in the idle state.
func NewController(opts Options) *Controller {
	c := &Controller{
		store:       opts.Store,
		scanner:     opts.Scanner,
		editor:      opts.Editor,
		nav:         opts.Navigator,
		sink:        opts.Sink,
		history:     opts.History,
		logger:      opts.Logger,
		preserveIDs: opts.PreserveIDs,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.sink == nil {
		c.sink = SinkFunc(func(Push) error { return nil })
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tasks returns the store's current list.
func (c *Controller) Tasks() []pin.Task {
	return c.store.Tasks()
}

// Open performs the initial scan and pushes the list.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClosed
	}
	return c.rescanLocked(ctx)
}

// Rescan rescans the workspace and pushes the list.
func (c *Controller) Rescan(ctx context.Context) error {
	return c.Open(ctx)
}

// Close moves the controller to its terminal state.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
	return nil
}

// Handle dispatches one panel message.
func (c *Controller) Handle(ctx context.Context, req Request) error {
	switch req.Command {
	case CmdReady, CmdRefresh:
		return c.Open(ctx)
	case CmdReorderTasks:
		return c.ReorderTasks(ctx, req.Order)
	}

	if req.Task == nil {
		c.notify(LevelWarning, fmt.Sprintf("%s: missing task", req.Command))
		return nil
	}
	task := *req.Task

	switch req.Command {
	case CmdGoToTask:
		return c.GoToTask(ctx, task)
	case CmdStarTask:
		return c.StarTask(ctx, task)
	case CmdUpdateStatus:
		return c.UpdateStatus(ctx, task, req.Status)
	case CmdRemoveTask:
		return c.RemoveTask(ctx, task)
	case CmdDeleteTask:
		return c.DeleteTask(ctx, task)
	}

	c.logger.Debug("unknown panel command", "command", req.Command)
	return nil
}

// GoToTask reveals the task's file and line. A position that no longer
// exists is reported to the user and otherwise ignored.
func (c *Controller) GoToTask(ctx context.Context, task pin.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClosed
	}

	task = c.current(task)
	if err := c.editor.Check(task.File, task.Line); errors.Is(err, source.ErrGone) {
		c.notify(LevelInfo, fmt.Sprintf("%s:%d no longer exists", task.File, task.Line))
		return nil
	} else if err != nil && !errors.Is(err, source.ErrNoMarker) {
		c.notify(LevelError, err.Error())
		return nil
	}

	if c.nav == nil {
		return nil
	}
	if err := c.nav.Reveal(ctx, task.File, task.Line); err != nil {
		c.logger.Warn("reveal failed", "file", task.File, "line", task.Line, "error", err)
		c.notify(LevelError, fmt.Sprintf("Could not open %s: %v", task.File, err))
	}
	return nil
}

// Locate returns the store's copy of task after checking that its file and
// line still exist. It returns source.ErrGone otherwise.
func (c *Controller) Locate(task pin.Task) (pin.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return pin.Task{}, ErrClosed
	}

	task = c.current(task)
	if err := c.editor.Check(task.File, task.Line); err != nil && !errors.Is(err, source.ErrNoMarker) {
		return task, err
	}
	return task, nil
}

// StarTask toggles the task's starred flag in the store.
func (c *Controller) StarTask(ctx context.Context, task pin.Task) error {
	return c.mutate(func() error {
		updated, ok, err := c.store.ToggleStarred(task.ID)
		if err != nil {
			return fmt.Errorf("star task: %w", err)
		}
		if !ok {
			c.notify(LevelInfo, fmt.Sprintf("Task not found: %s", task.Title))
			return nil
		}

		word, typ := "unstarred", history.EventUnstarred
		if updated.Starred {
			word, typ = "starred", history.EventStarred
		}
		c.record(typ, updated, "")
		c.notify(LevelInfo, fmt.Sprintf("Task %s: %s", word, updated.Title))
		c.push(c.store.Tasks())
		return nil
	})
}

// UpdateStatus rewrites the status token in the source comment, records it
// in the store and rescans. The rescan gives the task a fresh id.
func (c *Controller) UpdateStatus(ctx context.Context, task pin.Task, status string) error {
	st, ok := pin.ParseStatus(status)
	if !ok || strings.TrimSpace(status) == "" {
		c.notify(LevelInfo, fmt.Sprintf("Unknown status %q", status))
		return nil
	}

	return c.mutate(func() error {
		task = c.current(task)
		change, err := c.editor.SetStatus(task.File, task.Line, st)
		if err != nil {
			c.logger.Warn("update status failed", "file", task.File, "line", task.Line, "error", err)
			c.notify(LevelWarning, fmt.Sprintf("Could not update %s:%d: %v", task.File, task.Line, err))
			return nil
		}
		c.logger.Debug("source edited", "diff", change.Diff())

		if _, _, err := c.store.SetStatus(task.ID, st); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		c.record(history.EventStatusChanged, task, string(st))
		c.notify(LevelInfo, fmt.Sprintf("Task status updated to %s: %s", st.Label(), task.Title))
		return c.rescanLocked(ctx)
	})
}

// RemoveTask drops the task from the store, strips its comment from the
// source and rescans.
func (c *Controller) RemoveTask(ctx context.Context, task pin.Task) error {
	return c.mutate(func() error {
		task = c.current(task)
		if _, _, err := c.store.Delete(task.ID); err != nil {
			return fmt.Errorf("remove task: %w", err)
		}

		change, err := c.editor.RemovePin(task.File, task.Line)
		if err != nil {
			c.logger.Warn("strip comment failed", "file", task.File, "line", task.Line, "error", err)
			c.notify(LevelWarning, fmt.Sprintf("Could not strip comment at %s:%d: %v", task.File, task.Line, err))
		} else {
			c.logger.Debug("source edited", "diff", change.Diff())
		}

		c.record(history.EventRemoved, task, "")
		return c.rescanLocked(ctx)
	})
}

// DeleteTask drops the task from the store only. The comment stays in the
// source, so the pin comes back on the next scan.
func (c *Controller) DeleteTask(ctx context.Context, task pin.Task) error {
	return c.mutate(func() error {
		removed, ok, err := c.store.Delete(task.ID)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if ok {
			c.logger.Warn("task deleted from store only; its comment remains and will be rescanned",
				"file", removed.File, "line", removed.Line, "title", removed.Title)
			c.record(history.EventDeleted, removed, "")
			c.notify(LevelInfo, fmt.Sprintf("Task deleted: %s (the comment stays in %s)", removed.Title, removed.File))
		}
		c.push(c.store.Tasks())
		return nil
	})
}

// ReorderTasks reorders the store by the given ids.
func (c *Controller) ReorderTasks(ctx context.Context, order []string) error {
	return c.mutate(func() error {
		if err := c.store.Reorder(order); err != nil {
			return fmt.Errorf("reorder tasks: %w", err)
		}
		c.record(history.EventReordered, pin.Task{}, fmt.Sprintf("%d ids", len(order)))
		c.push(c.store.Tasks())
		return nil
	})
}

// mutate runs fn in the mutating state and returns to rendered.
func (c *Controller) mutate(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClosed
	}

	c.state = StateMutating
	err := fn()
	if c.state == StateMutating {
		c.state = StateRendered
	}
	return err
}

func (c *Controller) rescanLocked(ctx context.Context) error {
	c.state = StateScanning
	defer func() { c.state = StateRendered }()

	tasks, err := c.scanner.Scan(ctx)
	if errors.Is(err, scanner.ErrNoWorkspace) {
		c.notify(LevelError, "No workspace folder open")
		c.push(nil)
		return nil
	}
	if err != nil {
		c.logger.Error("scan failed", "error", err)
		c.notify(LevelError, fmt.Sprintf("Scan failed: %v", err))
		return nil
	}

	if c.preserveIDs {
		tasks = scanner.Preserve(c.store.Tasks(), tasks)
	}
	if err := c.store.ReplaceAll(tasks); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	c.record(history.EventScanned, pin.Task{}, fmt.Sprintf("%d pins", len(tasks)))
	c.push(c.store.Tasks())
	return nil
}

// current returns the store's copy of task when it is still known, since
// the panel's copy may be stale.
func (c *Controller) current(task pin.Task) pin.Task {
	if t, ok := c.store.Get(task.ID); ok {
		return t
	}
	return task
}

func (c *Controller) push(tasks []pin.Task) {
	if err := c.sink.Send(UpdateTasks(tasks)); err != nil {
		c.logger.Warn("push tasks failed", "error", err)
	}
}

func (c *Controller) notify(level, msg string) {
	if err := c.sink.Send(ShowMessage(level, msg)); err != nil {
		c.logger.Warn("push message failed", "error", err)
	}
}

func (c *Controller) record(typ history.EventType, task pin.Task, content string) {
	if c.history == nil {
		return
	}
	err := c.history.Record(history.Event{
		TaskID:  task.ID,
		File:    task.File,
		Line:    task.Line,
		Title:   task.Title,
		Type:    typ,
		Content: content,
	})
	if err != nil {
		c.logger.Warn("record history failed", "event", typ, "error", err)
	}
}
