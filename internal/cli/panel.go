package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/panel"
)

var (
	panelWatch    bool
	panelNavigate bool
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Speak the panel protocol over stdin/stdout",
	Long: "Reads newline-delimited JSON panel messages from stdin and writes host\n" +
		"messages (updateTasks, showMessage, revealLine) to stdout, so an editor\n" +
		"plugin can host the panel. Send {\"command\":\"ready\"} to trigger the first scan.",
	Args: cobra.NoArgs,
	RunE: runPanel,
}

func init() {
	panelCmd.Flags().BoolVarP(&panelWatch, "watch", "w", false, "Rescan when files change (also watch.enabled in config)")
	panelCmd.Flags().BoolVar(&panelNavigate, "exec-editor", false, "Run the editor command for goToTask instead of sending revealLine")
	rootCmd.AddCommand(panelCmd)
}

func runPanel(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sink := panel.NewJSONSink(cmd.OutOrStdout())

	var nav panel.Navigator = panel.SinkNavigator{Sink: sink}
	if panelNavigate {
		// The editor must not share stdin or stdout with the protocol stream.
		n := editorNavigator(workRoot)
		n.Stdin = strings.NewReader("")
		n.Stdout = os.Stderr
		nav = n
	}

	ws, err := openWorkspace(workspaceOptions{sink: sink, nav: nav, logger: logger})
	if err != nil {
		return err
	}
	defer ws.Close()

	if panelWatch || cfg.Watch.Enabled {
		go func() {
			if err := runWatcher(ctx, ws, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	err = panel.Serve(ctx, ws.ctrl, cmd.InOrStdin(), sink, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
