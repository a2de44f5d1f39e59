package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/config"
	"github.com/imkarma/taskpin/internal/pin"
	"github.com/imkarma/taskpin/internal/tui"
)

var uiWatch bool

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive pin panel",
	Long:  "Opens a terminal panel listing every pin. Star, reorder and change status from the keyboard; enter opens the pin in your editor.",
	Args:  cobra.NoArgs,
	RunE:  runUI,
}

func init() {
	uiCmd.Flags().BoolVarP(&uiWatch, "watch", "w", false, "Rescan when files change (also watch.enabled in config)")
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	// Log lines would corrupt the alt screen.
	logger := slog.Default()
	if flagLogFile == "" {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sink := tui.NewSink()
	defer sink.Close()

	nav := editorNavigator(workRoot)
	ws, err := openWorkspace(workspaceOptions{sink: sink, nav: nav, logger: logger})
	if err != nil {
		return err
	}
	defer ws.Close()

	if uiWatch || cfg.Watch.Enabled {
		go func() {
			if err := runWatcher(ctx, ws, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	model := tui.New(ctx, tui.Options{
		Controller:       ws.ctrl,
		Sink:             sink,
		RemoveFromSource: cfg.DeleteMode == config.DeleteSource,
		Title:            "taskpin " + filepath.Base(ws.root),
		Editor: func(task pin.Task) (*exec.Cmd, error) {
			return nav.Cmd(ctx, task.File, task.Line)
		},
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Stop the watcher and unblock pending pushes before closing.
	cancel()
	sink.Close()
	return nil
}
