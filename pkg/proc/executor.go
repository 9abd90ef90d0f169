package proc

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

// CommandExecutor runs external commands. It exists so that the git and
// service steps can be unit tested against a recording fake instead of the
// real binaries.
type CommandExecutor interface {
	// Run executes the command, inheriting whatever stdout/stderr the
	// caller attached to it.
	Run(cmd *exec.Cmd) error

	// Output executes the command and returns its stdout. Any stdout the
	// command produced before failing is returned alongside the error.
	Output(cmd *exec.Cmd) (string, error)
}

type execExecutor struct{}

// NewExecutor returns the CommandExecutor backed by os/exec.
func NewExecutor() CommandExecutor {
	return execExecutor{}
}

func (execExecutor) Run(cmd *exec.Cmd) error {
	if err := cmd.Run(); err != nil {
		return errors.WithContext(err, describe(cmd))
	}
	return nil
}

func (execExecutor) Output(cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			err = errors.WithContext(err, strings.TrimSpace(stderr.String()))
		}
		return stdout.String(), errors.WithContext(err, describe(cmd))
	}
	return stdout.String(), nil
}

// Command builds a command bound to ctx that runs in dir. An empty dir runs
// in the process's working directory.
func Command(ctx context.Context, dir, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd
}

func describe(cmd *exec.Cmd) string {
	return strings.Join(cmd.Args, " ")
}
