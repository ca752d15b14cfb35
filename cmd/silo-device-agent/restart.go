package main

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// execRestarter restarts the agent by re-executing its own binary with the
// original arguments. On success Restart does not return.
type execRestarter struct {
	// beforeExec releases resources that must not outlive the process image.
	beforeExec func()
	execFunc   func(argv0 string, argv []string, envv []string) error
}

func newExecRestarter(beforeExec func()) *execRestarter {
	return &execRestarter{beforeExec: beforeExec, execFunc: unix.Exec}
}

func (r *execRestarter) Restart() error {
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}

	if r.beforeExec != nil {
		r.beforeExec()
	}

	slog.Info("Restarting device", "binary", binary)
	argv := append([]string{binary}, os.Args[1:]...)
	if err := r.execFunc(binary, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", binary, err)
	}
	return nil
}
