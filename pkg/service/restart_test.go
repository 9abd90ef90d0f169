package service

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

type mockExecutor struct {
	commands     [][]string
	statusOutput string
	restartErr   error
	statusErr    error
}

func (m *mockExecutor) Run(cmd *exec.Cmd) error {
	m.commands = append(m.commands, cmd.Args)
	return m.restartErr
}

func (m *mockExecutor) Output(cmd *exec.Cmd) (string, error) {
	m.commands = append(m.commands, cmd.Args)
	return m.statusOutput, m.statusErr
}

func manyStatusLines(n int) string {
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("status line %d", i))
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestRestartSequence(t *testing.T) {
	executor := &mockExecutor{statusOutput: manyStatusLines(3)}
	clock := clockwork.NewFakeClock()
	var out bytes.Buffer

	restarter := &Restarter{
		service:  "webapp",
		delay:    2 * time.Second,
		executor: executor,
		clock:    clock,
		out:      &out,
	}

	done := make(chan error)
	go func() {
		done <- restarter.Restart(context.Background())
	}()

	// The restart must be issued before the settle delay starts.
	clock.BlockUntil(1)
	assert.Equal(t, [][]string{
		{"systemctl", "restart", "webapp"},
	}, executor.commands)

	clock.Advance(2 * time.Second)
	require.NoError(t, <-done)

	assert.Equal(t, [][]string{
		{"systemctl", "restart", "webapp"},
		{"systemctl", "status", "--no-pager", "webapp"},
	}, executor.commands)
	assert.Equal(t, manyStatusLines(3), out.String())
}

func TestRestartTruncatesStatus(t *testing.T) {
	executor := &mockExecutor{statusOutput: manyStatusLines(25)}
	var out bytes.Buffer

	restarter := &Restarter{
		service:  "webapp",
		executor: executor,
		clock:    clockwork.NewFakeClock(),
		out:      &out,
	}

	require.NoError(t, restarter.Restart(context.Background()))
	assert.Equal(t, statusLineLimit, len(strings.Split(
		strings.TrimRight(out.String(), "\n"), "\n")))
}

func TestRestartFailureIsFatal(t *testing.T) {
	executor := &mockExecutor{restartErr: errors.New("unit not found")}

	restarter := &Restarter{
		service:  "webapp",
		executor: executor,
		clock:    clockwork.NewFakeClock(),
		out:      &bytes.Buffer{},
	}

	err := restarter.Restart(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restart service")

	// The status query must not run after a failed restart.
	assert.Equal(t, [][]string{
		{"systemctl", "restart", "webapp"},
	}, executor.commands)
}

func TestStatusFailureIsNotFatal(t *testing.T) {
	// `systemctl status` exits non-zero for inactive units. The status is
	// informational, so the run still succeeds, showing what output there is.
	executor := &mockExecutor{
		statusOutput: "x webapp.service - failed\n",
		statusErr:    errors.New("exit status 3"),
	}
	var out bytes.Buffer

	restarter := &Restarter{
		service:  "webapp",
		executor: executor,
		clock:    clockwork.NewFakeClock(),
		out:      &out,
	}

	require.NoError(t, restarter.Restart(context.Background()))
	assert.Contains(t, out.String(), "failed")
}
