package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanQuiet bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workspace for pins and save them",
	Long:  "Rescans every included file, replaces the saved list and prints it.",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "Only print the summary")
}

func runScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ws, err := openWorkspace(workspaceOptions{sink: consoleSink{w: cmd.ErrOrStderr()}})
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.ctrl.Open(cmd.Context()); err != nil {
		return err
	}

	tasks := ws.store.Tasks()
	files := map[string]bool{}
	for _, t := range tasks {
		files[t.File] = true
	}
	fmt.Fprintf(out, "Found %d pins in %d files\n", len(tasks), len(files))
	if scanQuiet || len(tasks) == 0 {
		return nil
	}
	fmt.Fprintln(out, "")
	printTasks(out, tasks, nil)
	return nil
}
