package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/pin"
	"github.com/imkarma/taskpin/internal/store"
)

var (
	listTag     string
	listStatus  string
	listFile    string
	listStarred bool
	listJSON    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved pins",
	Long:  "Prints the saved list in display order without rescanning. The # column is the reference other commands accept.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listTag, "tag", "t", "", "Only pins with this tag")
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only pins with this status: B, IP, C")
	listCmd.Flags().StringVarP(&listFile, "file", "f", "", "Only pins in this file")
	listCmd.Flags().BoolVar(&listStarred, "starred", false, "Only starred pins")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	st, err := store.Open(cfg.StorePath(workRoot), nil)
	if err != nil {
		return err
	}

	var status pin.Status
	if listStatus != "" {
		s, ok := pin.ParseStatus(listStatus)
		if !ok {
			return fmt.Errorf("invalid status %q (use B, IP or C)", listStatus)
		}
		status = s
	}

	all := st.Tasks()
	var tasks []pin.Task
	var positions []int
	for i, t := range all {
		if status != "" && t.Status != status {
			continue
		}
		if listStarred && !t.Starred {
			continue
		}
		if listFile != "" && t.File != listFile {
			continue
		}
		if listTag != "" && !hasTag(t, listTag) {
			continue
		}
		tasks = append(tasks, t)
		positions = append(positions, i+1)
	}

	if listJSON {
		if tasks == nil {
			tasks = []pin.Task{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	if len(all) == 0 {
		fmt.Fprintf(out, "No pins. Run: %s\n", color.CyanString("taskpin scan"))
		return nil
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No pins match.")
		return nil
	}
	printTasks(out, tasks, positions)
	return nil
}

func hasTag(t pin.Task, tag string) bool {
	tag = strings.TrimPrefix(tag, "#")
	for _, have := range t.Tags {
		if strings.EqualFold(have, tag) {
			return true
		}
	}
	return false
}

// printTasks prints one line per task. positions holds the 1-based list
// position of each task; nil means the tasks are the whole list.
func printTasks(w io.Writer, tasks []pin.Task, positions []int) {
	for i, t := range tasks {
		pos := i + 1
		if positions != nil {
			pos = positions[i]
		}

		star := " "
		if t.Starred {
			star = color.YellowString("★")
		}

		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		if t.Status == pin.StatusComplete {
			title = color.New(color.Faint, color.CrossedOut).Sprint(title)
		}

		line := fmt.Sprintf("%s %s %s %s %s",
			color.New(color.Faint).Sprintf("%3d", pos),
			star,
			priorityColor(t.Priority).Sprint(string(t.Priority)),
			statusColor(t.Status).Sprintf("%-11s", t.Status.Label()),
			title,
		)
		if len(t.Tags) > 0 {
			tags := make([]string, len(t.Tags))
			for j, tag := range t.Tags {
				tags[j] = "#" + tag
			}
			line += " " + color.CyanString(strings.Join(tags, " "))
		}
		line += " " + color.New(color.Faint).Sprintf("%s:%d", t.File, t.Line)
		fmt.Fprintln(w, line)
	}
}

func priorityColor(p pin.Priority) *color.Color {
	switch p {
	case pin.PriorityHigh:
		return color.New(color.FgRed, color.Bold)
	case pin.PriorityMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.Faint)
	}
}

func statusColor(s pin.Status) *color.Color {
	switch s {
	case pin.StatusComplete:
		return color.New(color.FgGreen)
	case pin.StatusInProgress:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgWhite)
	}
}
