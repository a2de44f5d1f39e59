package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskpin/internal/panel"
	"github.com/imkarma/taskpin/internal/pin"
	"github.com/imkarma/taskpin/internal/source"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case pushMsg:
		m.applyPush(msg.push)
		return m, m.waitForPush()

	case actionDoneMsg:
		if msg.err != nil {
			m.setError("Error: " + msg.err.Error())
		}
		return m, nil

	case locatedMsg:
		if errors.Is(msg.err, source.ErrGone) {
			m.setStatus(msg.task.File + ":" + itoa(msg.task.Line) + " no longer exists")
			return m, nil
		}
		if msg.err != nil {
			m.setError("Error: " + msg.err.Error())
			return m, nil
		}
		return m, m.openEditor(msg.task)

	case editorDoneMsg:
		if msg.err != nil {
			m.setError("Editor: " + msg.err.Error())
		}
		return m, nil

	case tickMsg:
		// Clear old status messages.
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m *Model) applyPush(p panel.Push) {
	switch p.Command {
	case panel.CmdUpdateTasks:
		// The host's list always wins over local optimistic edits.
		m.tasks = p.Tasks
		m.loaded = true
		m.clampCursor()
	case panel.CmdShowMessage:
		if p.Level == panel.LevelError {
			m.setError(p.Message)
		} else {
			m.setStatus(p.Message)
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.filter):
		m.filtering = true
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.refresh):
		m.setStatus("Rescanning...")
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.Rescan(ctx)
		})

	case key.Matches(msg, m.keys.moveUp):
		return m.move(-1)

	case key.Matches(msg, m.keys.moveDown):
		return m.move(1)
	}

	task, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.open):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			located, err := ctrl.Locate(task)
			return locatedMsg{task: located, err: err}
		}

	case key.Matches(msg, m.keys.star):
		m.patch(task.ID, func(t *pin.Task) { t.Starred = !t.Starred })
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.StarTask(ctx, task)
		})

	case key.Matches(msg, m.keys.complete):
		return m.updateStatus(task, pin.StatusComplete)

	case key.Matches(msg, m.keys.inProgress):
		return m.updateStatus(task, pin.StatusInProgress)

	case key.Matches(msg, m.keys.backlog):
		return m.updateStatus(task, pin.StatusBacklog)

	case key.Matches(msg, m.keys.remove):
		if !m.removeFromSource {
			return m.deleteTask(task)
		}
		m.setStatus("Removing " + task.Title + "...")
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.RemoveTask(ctx, task)
		})

	case key.Matches(msg, m.keys.del):
		return m.deleteTask(task)
	}

	return m, nil
}

func (m Model) updateStatus(task pin.Task, status pin.Status) (tea.Model, tea.Cmd) {
	m.patch(task.ID, func(t *pin.Task) { t.Status = status })
	token := status.Token()
	if token == "" {
		token = "B"
	}
	return m, m.run(func(ctx context.Context) error {
		return m.ctrl.UpdateStatus(ctx, task, token)
	})
}

func (m Model) deleteTask(task pin.Task) (tea.Model, tea.Cmd) {
	return m, m.run(func(ctx context.Context) error {
		return m.ctrl.DeleteTask(ctx, task)
	})
}

// move swaps the selected task with its neighbour and sends the full order.
func (m Model) move(delta int) (tea.Model, tea.Cmd) {
	if m.filter.Value() != "" {
		m.setStatus("Clear the filter to reorder")
		return m, nil
	}
	i := m.cursor
	j := i + delta
	if i < 0 || j < 0 || i >= len(m.tasks) || j >= len(m.tasks) {
		return m, nil
	}

	tasks := append([]pin.Task(nil), m.tasks...)
	tasks[i], tasks[j] = tasks[j], tasks[i]
	m.tasks = tasks
	m.cursor = j

	order := make([]string, len(tasks))
	for k, t := range tasks {
		order[k] = t.ID
	}
	return m, m.run(func(ctx context.Context) error {
		return m.ctrl.ReorderTasks(ctx, order)
	})
}

// patch applies an optimistic local edit to a copy of the list.
func (m *Model) patch(id string, fn func(*pin.Task)) {
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	tasks := append([]pin.Task(nil), m.tasks...)
	t := tasks[i].Clone()
	fn(&t)
	tasks[i] = t
	m.tasks = tasks
}

func (m Model) openEditor(task pin.Task) tea.Cmd {
	if m.editor == nil {
		return nil
	}
	cmd, err := m.editor(task)
	if err != nil {
		return func() tea.Msg { return editorDoneMsg{err: err} }
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorDoneMsg{err: err}
	})
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filter.SetValue("")
		m.filter.Blur()
		m.filtering = false
		m.clampCursor()
		return m, nil
	case "enter":
		m.filter.Blur()
		m.filtering = false
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	return m, cmd
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	if neg {
		s = "-" + s
	}
	return s
}
