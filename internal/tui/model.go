package tui

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskpin/internal/panel"
	"github.com/imkarma/taskpin/internal/pin"
)

// Controller is the part of the panel controller the TUI drives.
type Controller interface {
	Open(ctx context.Context) error
	Rescan(ctx context.Context) error
	Locate(task pin.Task) (pin.Task, error)
	StarTask(ctx context.Context, task pin.Task) error
	UpdateStatus(ctx context.Context, task pin.Task, status string) error
	RemoveTask(ctx context.Context, task pin.Task) error
	DeleteTask(ctx context.Context, task pin.Task) error
	ReorderTasks(ctx context.Context, order []string) error
}

// EditorFunc builds the command that opens task in an editor.
type EditorFunc func(task pin.Task) (*exec.Cmd, error)

// Sink forwards controller pushes into the bubbletea program.
type Sink struct {
	ch   chan panel.Push
	done chan struct{}
	once sync.Once
}

// NewSink creates a buffered Sink.
func NewSink() *Sink {
	return &Sink{ch: make(chan panel.Push, 256), done: make(chan struct{})}
}

// Send implements panel.Sink. It blocks while the buffer is full and drops
// the push once the sink is closed.
func (s *Sink) Send(p panel.Push) error {
	select {
	case s.ch <- p:
	case <-s.done:
	}
	return nil
}

// Close releases senders blocked on a program that stopped reading.
func (s *Sink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Options configures the TUI.
type Options struct {
	Controller Controller
	Sink       *Sink
	Editor     EditorFunc
	// RemoveFromSource makes the remove key strip the comment from the
	// source; otherwise it only drops the pin from the store.
	RemoveFromSource bool
	Title            string
}

// Model is the top-level bubbletea model.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	sink   *Sink
	editor EditorFunc

	removeFromSource bool
	title            string

	keys keyMap
	help help.Model

	width  int
	height int

	// All tasks, in store order.
	tasks  []pin.Task
	cursor int // index into visible()
	loaded bool

	filter    textinput.Model
	filtering bool

	// Status message at the bottom.
	statusMsg  string
	statusErr  bool
	statusTime time.Time

	quitting bool
}

// New creates a new TUI model.
func New(ctx context.Context, opts Options) Model {
	fi := textinput.New()
	fi.Placeholder = "filter by title, tag or file..."
	fi.Prompt = "/ "
	fi.CharLimit = 120
	fi.Width = 40

	title := opts.Title
	if title == "" {
		title = "taskpin"
	}

	return Model{
		ctx:              ctx,
		ctrl:             opts.Controller,
		sink:             opts.Sink,
		editor:           opts.Editor,
		removeFromSource: opts.RemoveFromSource,
		title:            title,
		keys:             newKeyMap(),
		help:             help.New(),
		filter:           fi,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForPush(), m.run(func(ctx context.Context) error {
		return m.ctrl.Open(ctx)
	}), tickCmd())
}

// --- Messages ---

type pushMsg struct {
	push panel.Push
}

type actionDoneMsg struct {
	err error
}

type locatedMsg struct {
	task pin.Task
	err  error
}

type editorDoneMsg struct {
	err error
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForPush() tea.Cmd {
	if m.sink == nil {
		return nil
	}
	ch := m.sink.ch
	return func() tea.Msg {
		return pushMsg{push: <-ch}
	}
}

// run executes a controller call off the update loop.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: fn(ctx)}
	}
}

// --- Selection ---

// visible returns the tasks matching the filter, in store order.
func (m Model) visible() []pin.Task {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		return m.tasks
	}
	var out []pin.Task
	for _, t := range m.tasks {
		if matchesFilter(t, q) {
			out = append(out, t)
		}
	}
	return out
}

func matchesFilter(t pin.Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.File), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower("#"+tag), q) {
			return true
		}
	}
	return false
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (pin.Task, bool) {
	vis := m.visible()
	if m.cursor < 0 || m.cursor >= len(vis) {
		return pin.Task{}, false
	}
	return vis[m.cursor], true
}

// indexOf returns the position of id in the full list.
func (m Model) indexOf(id string) int {
	for i, t := range m.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusErr = false
	m.statusTime = time.Now()
}

func (m *Model) setError(msg string) {
	m.setStatus(msg)
	m.statusErr = true
}

// --- Key map ---

type keyMap struct {
	up         key.Binding
	down       key.Binding
	open       key.Binding
	star       key.Binding
	complete   key.Binding
	inProgress key.Binding
	backlog    key.Binding
	remove     key.Binding
	del        key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	filter     key.Binding
	refresh    key.Binding
	help       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "go to"),
		),
		star: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "star"),
		),
		complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		inProgress: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "in progress"),
		),
		backlog: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "backlog"),
		),
		remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove"),
		),
		del: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete from list"),
		),
		moveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move up"),
		),
		moveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move down"),
		),
		filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.open, k.star, k.complete, k.inProgress, k.remove, k.filter, k.help, k.quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.moveUp, k.moveDown},
		{k.open, k.star, k.complete, k.inProgress, k.backlog},
		{k.remove, k.del, k.filter, k.refresh, k.help, k.quit},
	}
}
