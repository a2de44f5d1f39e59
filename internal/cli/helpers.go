package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/imkarma/taskpin/internal/history"
	"github.com/imkarma/taskpin/internal/panel"
	"github.com/imkarma/taskpin/internal/pin"
	"github.com/imkarma/taskpin/internal/scanner"
	"github.com/imkarma/taskpin/internal/source"
	"github.com/imkarma/taskpin/internal/store"
)

// workspace bundles the components every command drives.
type workspace struct {
	root    string
	store   *store.Store
	scanner *scanner.Scanner
	editor  *source.Editor
	history *history.Log // nil when history is disabled
	ctrl    *panel.Controller
}

type workspaceOptions struct {
	sink   panel.Sink
	nav    panel.Navigator
	logger *slog.Logger
}

// openWorkspace builds the store, scanner, editor, history log and the
// controller wired to them.
func openWorkspace(opts workspaceOptions) (*workspace, error) {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	marker, err := cfg.NewMarker()
	if err != nil {
		return nil, err
	}

	sc, err := scanner.New(scanner.Options{
		Root:         workRoot,
		Mode:         cfg.Scan.Mode,
		Include:      cfg.Scan.Include,
		Exclude:      cfg.ScanExclude(workRoot),
		MaxFileBytes: cfg.Scan.MaxFileBytes,
		Marker:       marker,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	st, err := store.Open(cfg.StorePath(workRoot), logger)
	if err != nil {
		return nil, err
	}

	ed := source.New(sc.Root(), marker)

	ws := &workspace{root: sc.Root(), store: st, scanner: sc, editor: ed}

	ctrlOpts := panel.Options{
		Store:       st,
		Scanner:     sc,
		Editor:      ed,
		Navigator:   opts.nav,
		Sink:        opts.sink,
		Logger:      logger,
		PreserveIDs: cfg.PreserveIDs,
	}
	if path := cfg.HistoryPath(workRoot); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		h, err := history.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		ws.history = h
		ctrlOpts.History = h
	}

	ws.ctrl = panel.NewController(ctrlOpts)
	return ws, nil
}

// Close closes the controller and the history log.
func (w *workspace) Close() error {
	w.ctrl.Close()
	if w.history != nil {
		return w.history.Close()
	}
	return nil
}

// editorNavigator opens positions with the configured editor command.
func editorNavigator(root string) panel.ExecNavigator {
	return panel.ExecNavigator{Root: root, Command: cfg.EditorCommand}
}

// consoleSink prints controller messages and drops list pushes.
type consoleSink struct {
	w io.Writer
}

func (s consoleSink) Send(p panel.Push) error {
	if p.Command != panel.CmdShowMessage {
		return nil
	}
	c := color.New(color.FgGreen)
	switch p.Level {
	case panel.LevelWarning:
		c = color.New(color.FgYellow)
	case panel.LevelError:
		c = color.New(color.FgRed, color.Bold)
	}
	_, err := c.Fprintln(s.w, p.Message)
	return err
}

// resolveTask finds a task by its 1-based list position, its id or a
// file:line reference.
func resolveTask(tasks []pin.Task, ref string) (pin.Task, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(tasks) {
			return pin.Task{}, fmt.Errorf("no pin #%d (the list has %d)", n, len(tasks))
		}
		return tasks[n-1], nil
	}

	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
	}

	if i := strings.LastIndex(ref, ":"); i > 0 {
		file := filepath.ToSlash(ref[:i])
		line, err := strconv.Atoi(ref[i+1:])
		if err == nil {
			for _, t := range tasks {
				if t.File == file && t.Line == line {
					return t, nil
				}
			}
		}
	}
	return pin.Task{}, fmt.Errorf("no pin matches %q. Run: taskpin list", ref)
}
