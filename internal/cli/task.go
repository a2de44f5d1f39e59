package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/pin"
	"github.com/imkarma/taskpin/internal/source"
)

var editDryRun bool

var starCmd = &cobra.Command{
	Use:   "star [pin]",
	Short: "Toggle the starred flag of a pin",
	Long:  "A pin is referenced by its # in `taskpin list`, its id, or file:line.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStar,
}

var statusCmd = &cobra.Command{
	Use:   "status [pin] [C|IP|B]",
	Short: "Set the status of a pin in its source comment",
	Long:  "Rewrites the comment to end with \"| C\" (complete) or \"| IP\" (in progress); B strips the status. The workspace is rescanned afterwards.",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatus,
}

var removeCmd = &cobra.Command{
	Use:   "remove [pin]",
	Short: "Remove a pin and strip its comment from the source",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [pin]",
	Short: "Drop a pin from the saved list only",
	Long:  "The comment stays in the source, so the pin comes back on the next scan.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var reorderCmd = &cobra.Command{
	Use:   "reorder [pin...]",
	Short: "Move pins to the front of the list in the given order",
	Long:  "Pins not named keep their relative order after the named ones.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReorder,
}

var openCmd = &cobra.Command{
	Use:   "open [pin]",
	Short: "Open a pin's file at its line in the editor",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	statusCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Print the source edit as a diff without writing it")
	removeCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Print the source edit as a diff without writing it")
}

// withTask opens the workspace, resolves ref against the saved list and
// calls fn.
func withTask(cmd *cobra.Command, ref string, fn func(ws *workspace, task pin.Task) error) error {
	ws, err := openWorkspace(workspaceOptions{
		sink: consoleSink{w: cmd.OutOrStdout()},
		nav:  editorNavigator(workRoot),
	})
	if err != nil {
		return err
	}
	defer ws.Close()

	task, err := resolveTask(ws.store.Tasks(), ref)
	if err != nil {
		return err
	}
	return fn(ws, task)
}

func runStar(cmd *cobra.Command, args []string) error {
	return withTask(cmd, args[0], func(ws *workspace, task pin.Task) error {
		return ws.ctrl.StarTask(cmd.Context(), task)
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, ok := pin.ParseStatus(args[1])
	if !ok || strings.TrimSpace(args[1]) == "" {
		return fmt.Errorf("invalid status %q (use C, IP or B)", args[1])
	}

	return withTask(cmd, args[0], func(ws *workspace, task pin.Task) error {
		if editDryRun {
			ws.editor.DryRun = true
			change, err := ws.editor.SetStatus(task.File, task.Line, status)
			if err != nil {
				return err
			}
			printDiff(cmd.OutOrStdout(), change)
			return nil
		}
		return ws.ctrl.UpdateStatus(cmd.Context(), task, args[1])
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	return withTask(cmd, args[0], func(ws *workspace, task pin.Task) error {
		if editDryRun {
			ws.editor.DryRun = true
			change, err := ws.editor.RemovePin(task.File, task.Line)
			if err != nil {
				return err
			}
			printDiff(cmd.OutOrStdout(), change)
			return nil
		}
		if err := ws.ctrl.RemoveTask(cmd.Context(), task); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s (%s:%d)\n", task.Title, task.File, task.Line)
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withTask(cmd, args[0], func(ws *workspace, task pin.Task) error {
		return ws.ctrl.DeleteTask(cmd.Context(), task)
	})
}

func runReorder(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(workspaceOptions{sink: consoleSink{w: cmd.OutOrStdout()}})
	if err != nil {
		return err
	}
	defer ws.Close()

	tasks := ws.store.Tasks()
	named := make(map[string]bool, len(args))
	var order []string
	for _, ref := range args {
		task, err := resolveTask(tasks, ref)
		if err != nil {
			return err
		}
		if named[task.ID] {
			continue
		}
		named[task.ID] = true
		order = append(order, task.ID)
	}
	for _, t := range tasks {
		if !named[t.ID] {
			order = append(order, t.ID)
		}
	}

	if err := ws.ctrl.ReorderTasks(cmd.Context(), order); err != nil {
		return err
	}
	printTasks(cmd.OutOrStdout(), ws.store.Tasks(), nil)
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	return withTask(cmd, args[0], func(ws *workspace, task pin.Task) error {
		return ws.ctrl.GoToTask(cmd.Context(), task)
	})
}

func printDiff(w io.Writer, change source.Change) {
	diff := change.Diff()
	if diff == "" {
		fmt.Fprintln(w, "No change.")
		return
	}
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case isHeader(line):
			fmt.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			color.New(color.FgGreen).Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			color.New(color.FgRed).Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---")
}
