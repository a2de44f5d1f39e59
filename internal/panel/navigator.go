package panel

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// ExecNavigator opens a file position by running an editor command.
type ExecNavigator struct {
	Root string
	// Command builds the editor argv for an absolute file and a line.
	Command func(file string, line int) ([]string, error)

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Cmd returns the editor command for file:line without running it.
func (n ExecNavigator) Cmd(ctx context.Context, file string, line int) (*exec.Cmd, error) {
	p := file
	if !filepath.IsAbs(p) {
		p = filepath.Join(n.Root, filepath.FromSlash(file))
	}
	argv, err := n.Command(p, line)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = n.Root
	cmd.Stdin = n.Stdin
	cmd.Stdout = n.Stdout
	cmd.Stderr = n.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd, nil
}

// Reveal implements Navigator and waits for the editor to exit.
func (n ExecNavigator) Reveal(ctx context.Context, file string, line int) error {
	cmd, err := n.Cmd(ctx, file, line)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

// SinkNavigator asks the host to reveal the position with a revealLine push.
// It is used when the host is an editor that owns navigation itself.
type SinkNavigator struct {
	Sink Sink
}

// Reveal implements Navigator.
func (n SinkNavigator) Reveal(_ context.Context, file string, line int) error {
	return n.Sink.Send(RevealLine(file, line))
}
