package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskpin/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskpin in the workspace",
	Long:  "Creates a .taskpin/ directory with the default config.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := filepath.Join(workRoot, config.Dir)
	cfgPath := config.Path(workRoot)

	// Check if already initialized.
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("taskpin already initialized in this workspace (%s exists)", filepath.Join(config.Dir, config.FileName))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", config.Dir, err)
	}

	if err := config.Save(cfgPath, config.DefaultConfig()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized taskpin in %s/\n", config.Dir)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Add a comment like: // taskpin: Fix login bug | H | #auth")
	fmt.Fprintln(out, "  2. Run: taskpin scan")
	fmt.Fprintln(out, "  3. Run: taskpin ui")

	return nil
}
