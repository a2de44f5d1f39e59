package tui

import (
	"context"
	"os/exec"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/taskpin/internal/panel"
	"github.com/imkarma/taskpin/internal/pin"
	"github.com/imkarma/taskpin/internal/source"
)

type fakeController struct {
	mu    sync.Mutex
	calls []string
	order []string
	gone  bool
}

func (f *fakeController) log(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	return nil
}

func (f *fakeController) Open(context.Context) error   { return f.log("open") }
func (f *fakeController) Rescan(context.Context) error { return f.log("rescan") }
func (f *fakeController) Locate(t pin.Task) (pin.Task, error) {
	f.log("locate " + t.ID)
	if f.gone {
		return t, source.ErrGone
	}
	return t, nil
}
func (f *fakeController) StarTask(_ context.Context, t pin.Task) error {
	return f.log("star " + t.ID)
}
func (f *fakeController) UpdateStatus(_ context.Context, t pin.Task, status string) error {
	return f.log("status " + t.ID + " " + status)
}
func (f *fakeController) RemoveTask(_ context.Context, t pin.Task) error {
	return f.log("remove " + t.ID)
}
func (f *fakeController) DeleteTask(_ context.Context, t pin.Task) error {
	return f.log("delete " + t.ID)
}
func (f *fakeController) ReorderTasks(_ context.Context, order []string) error {
	f.order = order
	return f.log("reorder")
}

func sampleTasks() []pin.Task {
	return []pin.Task{
		{ID: "a", File: "main.go", Line: 3, Title: "Fix login", Priority: pin.PriorityHigh, Status: pin.StatusBacklog, Tags: []string{"auth"}},
		{ID: "b", File: "util.go", Line: 9, Title: "Tidy helpers", Priority: pin.PriorityLow, Status: pin.StatusInProgress},
		{ID: "c", File: "db/store.go", Line: 1, Title: "Add index", Priority: pin.PriorityMedium, Status: pin.StatusComplete, Starred: true},
	}
}

func newTestModel(t *testing.T, removeFromSource bool) (Model, *fakeController) {
	t.Helper()
	ctrl := &fakeController{}
	m := New(context.Background(), Options{
		Controller:       ctrl,
		Sink:             NewSink(),
		RemoveFromSource: removeFromSource,
		Editor: func(task pin.Task) (*exec.Cmd, error) {
			return exec.Command("true"), nil
		},
	})
	m = update(t, m, pushMsg{push: panel.UpdateTasks(sampleTasks())})
	return m, ctrl
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs the resulting command, feeding its message
// back into the model.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil && !m.filtering {
		switch out := cmd().(type) {
		case actionDoneMsg, locatedMsg:
			m = update(t, m, out)
		}
	}
	return m
}

func TestUpdateTasks_ReplacesList(t *testing.T) {
	m, _ := newTestModel(t, true)
	assert.Len(t, m.tasks, 3)
	assert.True(t, m.loaded)

	m.cursor = 2
	m = update(t, m, pushMsg{push: panel.UpdateTasks(sampleTasks()[:1])})
	assert.Len(t, m.tasks, 1)
	assert.Equal(t, 0, m.cursor, "cursor clamps to the new list")
}

func TestNavigation(t *testing.T) {
	m, _ := newTestModel(t, true)

	m = press(t, m, "j")
	m = press(t, m, "down")
	m = press(t, m, "j")
	assert.Equal(t, 2, m.cursor)

	m = press(t, m, "k")
	assert.Equal(t, 1, m.cursor)
}

func TestStar_OptimisticAndSent(t *testing.T) {
	m, ctrl := newTestModel(t, true)

	m = press(t, m, "s")
	assert.True(t, m.tasks[0].Starred)
	assert.Equal(t, []string{"star a"}, ctrl.calls)

	// The next push from the host overwrites the local copy.
	m = update(t, m, pushMsg{push: panel.UpdateTasks(sampleTasks())})
	assert.False(t, m.tasks[0].Starred)
}

func TestStatusKeys(t *testing.T) {
	m, ctrl := newTestModel(t, true)

	m = press(t, m, "c")
	assert.Equal(t, pin.StatusComplete, m.tasks[0].Status)
	m = press(t, m, "i")
	assert.Equal(t, pin.StatusInProgress, m.tasks[0].Status)
	m = press(t, m, "b")
	assert.Equal(t, pin.StatusBacklog, m.tasks[0].Status)

	assert.Equal(t, []string{"status a C", "status a IP", "status a B"}, ctrl.calls)
}

func TestRemoveAndDeleteKeys(t *testing.T) {
	m, ctrl := newTestModel(t, true)
	press(t, m, "x")
	press(t, m, "D")
	assert.Equal(t, []string{"remove a", "delete a"}, ctrl.calls)

	m, ctrl = newTestModel(t, false)
	press(t, m, "x")
	assert.Equal(t, []string{"delete a"}, ctrl.calls)
}

func TestMove_SendsFullOrder(t *testing.T) {
	m, ctrl := newTestModel(t, true)

	m = press(t, m, "J")
	assert.Equal(t, 1, m.cursor)
	assert.Equal(t, []string{"b", "a", "c"}, ctrl.order)

	m = press(t, m, "K")
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, []string{"a", "b", "c"}, ctrl.order)

	// Moving past the top is a no-op.
	press(t, m, "K")
	assert.Equal(t, []string{"reorder", "reorder"}, ctrl.calls)
}

func TestFilter(t *testing.T) {
	m, ctrl := newTestModel(t, true)

	m = press(t, m, "/")
	require.True(t, m.filtering)
	for _, r := range "#auth" {
		m = press(t, m, string(r))
	}
	assert.Len(t, m.visible(), 1)
	assert.Equal(t, "a", m.visible()[0].ID)

	m = press(t, m, "enter")
	assert.False(t, m.filtering)
	assert.Equal(t, "#auth", m.filter.Value())

	// Reordering is disabled while a filter is active.
	m = press(t, m, "J")
	assert.Empty(t, ctrl.calls)
	assert.Contains(t, m.statusMsg, "Clear the filter")

	m = press(t, m, "/")
	m = press(t, m, "esc")
	assert.Equal(t, "", m.filter.Value())
	assert.Len(t, m.visible(), 3)
}

func TestOpen_GoneLineShowsStatus(t *testing.T) {
	m, ctrl := newTestModel(t, true)
	ctrl.gone = true

	m = press(t, m, "enter")
	assert.Equal(t, []string{"locate a"}, ctrl.calls)
	assert.Equal(t, "main.go:3 no longer exists", m.statusMsg)
}

func TestShowMessagePush(t *testing.T) {
	m, _ := newTestModel(t, true)

	m = update(t, m, pushMsg{push: panel.ShowMessage(panel.LevelInfo, "Task starred: Fix login")})
	assert.Equal(t, "Task starred: Fix login", m.statusMsg)
	assert.False(t, m.statusErr)

	m = update(t, m, pushMsg{push: panel.ShowMessage(panel.LevelError, "No workspace folder open")})
	assert.True(t, m.statusErr)
}

func TestView_RendersRows(t *testing.T) {
	m, _ := newTestModel(t, true)

	out := m.View()
	assert.Contains(t, out, "taskpin")
	assert.Contains(t, out, "Fix login")
	assert.Contains(t, out, "#auth")
	assert.Contains(t, out, "main.go:3")
	assert.Contains(t, out, "db/store.go:1")
	assert.Contains(t, out, "3 pins, 1 in progress, 1 complete, 1 starred")
}

func TestView_EmptyList(t *testing.T) {
	m, _ := newTestModel(t, true)
	m = update(t, m, pushMsg{push: panel.UpdateTasks(nil)})

	assert.Contains(t, m.View(), "No pins found")
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, true)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).quitting)
	assert.Equal(t, "", next.(Model).View())

	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
