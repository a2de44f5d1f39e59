package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/panel"
	"github.com/imkarma/taskpin/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan whenever workspace files change",
	Long:  "Keeps the saved list current while you edit. Stops on Ctrl+C.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	console := consoleSink{w: cmd.ErrOrStderr()}

	// Print a line per scan, messages go to stderr.
	sink := panel.SinkFunc(func(p panel.Push) error {
		if p.Command == panel.CmdUpdateTasks {
			fmt.Fprintf(out, "%s  %d pins\n", time.Now().Format("15:04:05"), len(p.Tasks))
			return nil
		}
		return console.Send(p)
	})

	ws, err := openWorkspace(workspaceOptions{sink: sink})
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if err := ws.ctrl.Open(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", ws.root)
	err = runWatcher(ctx, ws, slog.Default())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWatcher rescans through the controller on every debounced change until
// ctx is cancelled.
func runWatcher(ctx context.Context, ws *workspace, logger *slog.Logger) error {
	w, err := watch.New(ws.root, ws.scanner, cfg.Watch.Debounce(), logger)
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx, func(ctx context.Context) {
		if err := ws.ctrl.Rescan(ctx); err != nil && !errors.Is(err, panel.ErrClosed) {
			logger.Error("rescan failed", "error", err)
		}
	})
}
