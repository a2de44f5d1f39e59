package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/history"
)

var (
	logLimit int
	logFile  string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the history of scans and pin changes",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of events to show (0 for all)")
	logCmd.Flags().StringVarP(&logFile, "file", "f", "", "Only events for this file")
}

func runLog(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := cfg.HistoryPath(workRoot)
	if path == "" {
		return fmt.Errorf("history is disabled (history_file is empty)")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(out, "No history yet. Run: %s\n", color.CyanString("taskpin scan"))
		return nil
	}

	h, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer h.Close()

	events, err := h.Recent(logLimit, logFile)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(out, "No events")
		return nil
	}

	for _, e := range events {
		where := ""
		if e.File != "" {
			where = color.New(color.Faint).Sprintf(" %s:%d", e.File, e.Line)
		}
		detail := e.Title
		if e.Content != "" {
			if detail != "" {
				detail += " "
			}
			detail += "(" + e.Content + ")"
		}
		fmt.Fprintf(out, "  %s  %s %s%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			eventColor(e.Type).Sprintf("%-14s", e.Type),
			detail, where)
	}
	return nil
}

func eventColor(t history.EventType) *color.Color {
	switch t {
	case history.EventStatusChanged:
		return color.New(color.FgBlue)
	case history.EventStarred, history.EventUnstarred:
		return color.New(color.FgYellow)
	case history.EventRemoved, history.EventDeleted:
		return color.New(color.FgRed)
	default:
		return color.New(color.Faint)
	}
}
