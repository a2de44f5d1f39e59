package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/taskpin/internal/pin"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrCyan      = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle   = lipgloss.NewStyle().Foreground(clrDim)

	selectedRowStyle = lipgloss.NewStyle().Bold(true)
	completeStyle    = lipgloss.NewStyle().Foreground(clrDim).Strikethrough(true)
	tagStyle         = lipgloss.NewStyle().Foreground(clrCyan)
	starStyle        = lipgloss.NewStyle().Foreground(clrYellow)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Header.
	vis := m.visible()
	header := titleStyle.Render(m.title)
	header += dimStyle.Render(fmt.Sprintf(" — %s", m.summary()))
	b.WriteString(header + "\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		if !m.filtering {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  (%d of %d)", len(vis), len(m.tasks))))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case !m.loaded:
		b.WriteString(dimStyle.Render("  Scanning...") + "\n")
	case len(m.tasks) == 0:
		b.WriteString(dimStyle.Render("  No pins found. Add a comment like:") + "\n")
		b.WriteString(dimStyle.Render("  // taskpin: Fix login bug | H | #auth") + "\n")
	case len(vis) == 0:
		b.WriteString(dimStyle.Render("  Nothing matches the filter.") + "\n")
	default:
		start, end := m.window(len(vis))
		for i := start; i < end; i++ {
			b.WriteString(m.renderRow(vis[i], i == m.cursor) + "\n")
		}
		if end < len(vis) {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(vis)-end)) + "\n")
		}
	}

	// Status line.
	b.WriteString("\n")
	if m.statusMsg != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString("  " + style.Render(m.statusMsg) + "\n")
	}

	if m.help.ShowAll {
		b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		b.WriteString(renderFooter(m.keys.ShortHelp()))
	}
	return b.String()
}

func (m Model) summary() string {
	var done, active, starred int
	for _, t := range m.tasks {
		switch t.Status {
		case pin.StatusComplete:
			done++
		case pin.StatusInProgress:
			active++
		}
		if t.Starred {
			starred++
		}
	}
	return fmt.Sprintf("%d pins, %d in progress, %d complete, %d starred", len(m.tasks), active, done, starred)
}

// window returns the slice of rows that fits the terminal, keeping the
// cursor in view.
func (m Model) window(n int) (int, int) {
	rows := m.height - 8
	if m.height == 0 || rows >= n {
		return 0, n
	}
	if rows < 3 {
		rows = 3
	}
	start := m.cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

func (m Model) renderRow(t pin.Task, selected bool) string {
	cursor := "  "
	if selected {
		cursor = lipgloss.NewStyle().Foreground(clrHighlight).Render("▸ ")
	}

	star := dimStyle.Render("☆")
	if t.Starred {
		star = starStyle.Render("★")
	}

	title := t.Title
	if title == "" {
		title = "(untitled)"
	}
	title = truncate(title, m.titleWidth())
	switch {
	case t.Status == pin.StatusComplete:
		title = completeStyle.Render(title)
	case selected:
		title = selectedRowStyle.Render(title)
	}

	line := cursor + star + " " + priorityBadge(t.Priority) + " " + statusGlyph(t.Status) + " " + title

	if len(t.Tags) > 0 {
		tags := make([]string, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = "#" + tag
		}
		line += " " + tagStyle.Render(strings.Join(tags, " "))
	}
	line += " " + dimStyle.Render(fmt.Sprintf("%s:%d", t.File, t.Line))
	return line
}

func (m Model) titleWidth() int {
	if m.width == 0 {
		return 60
	}
	w := m.width / 2
	if w < 20 {
		w = 20
	}
	return w
}

func priorityBadge(p pin.Priority) string {
	switch p {
	case pin.PriorityHigh:
		return lipgloss.NewStyle().Bold(true).Foreground(clrRed).Render("H")
	case pin.PriorityMedium:
		return lipgloss.NewStyle().Bold(true).Foreground(clrYellow).Render("M")
	default:
		return lipgloss.NewStyle().Foreground(clrSubtle).Render("L")
	}
}

func statusGlyph(s pin.Status) string {
	switch s {
	case pin.StatusComplete:
		return lipgloss.NewStyle().Foreground(clrGreen).Render("✓")
	case pin.StatusInProgress:
		return lipgloss.NewStyle().Foreground(clrBlue).Render("◉")
	default:
		return dimStyle.Render("○")
	}
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func renderFooter(bindings []key.Binding) string {
	var parts []string
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, footerKeyStyle.Render(h.Key)+" "+footerDescStyle.Render(h.Desc))
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
