package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/config"
)

var (
	flagRoot     string
	flagConfig   string
	flagLogLevel string
	flagLogFile  string
)

// Resolved by the root command before any subcommand runs.
var (
	workRoot string
	cfg      *config.Config
	logOut   io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "taskpin",
	Short: "Pin tasks to source comments",
	Long: "taskpin turns \"// taskpin: title | H | #tag\" comments into a task list.\n" +
		"Scan the workspace, star, reorder and complete pins from the terminal;\n" +
		"status changes are written back into the comment.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagRoot, "root", "", "Workspace root (default: current directory)")
	pf.StringVar(&flagConfig, "config", "", "Config file (default: <root>/.taskpin/config.yaml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFile, "log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(starCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(logCmd)
}

// setup resolves the workspace root, loads the config and configures the
// default logger.
func setup(cmd *cobra.Command, args []string) error {
	root := flagRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	workRoot = abs

	path := flagConfig
	if path == "" {
		path = config.Path(workRoot)
	}
	cfg, err = config.Resolve(path)
	if err != nil {
		return err
	}

	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logOut = f
	}

	warning, err := configureLogger(flagLogLevel, cfg.LogLevel, logOut)
	if err != nil {
		return err
	}
	if warning != "" {
		fmt.Fprintln(os.Stderr, warning)
	}
	slog.Debug("workspace", "root", workRoot, "config", path, "mode", cfg.Scan.Mode)
	return nil
}
