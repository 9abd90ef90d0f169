package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sitepatch/sitepatch/pkg/errors"
	"github.com/sitepatch/sitepatch/pkg/proc"
)

// statusLineLimit caps how much of `systemctl status` we show. The status
// is informational only -- it's never parsed or used as a gate.
const statusLineLimit = 10

// Restarter restarts a systemd service and displays its status after a
// short settle delay.
type Restarter struct {
	service  string
	delay    time.Duration
	executor proc.CommandExecutor
	clock    clockwork.Clock
	out      io.Writer
}

// NewRestarter creates a Restarter for the given systemd unit.
func NewRestarter(service string, delay time.Duration) *Restarter {
	return &Restarter{
		service:  service,
		delay:    delay,
		executor: proc.NewExecutor(),
		clock:    clockwork.NewRealClock(),
		out:      os.Stdout,
	}
}

// Restart issues the restart, waits for the service to settle, and prints
// the truncated status. A failed restart is fatal; a failed status query is
// only a warning since the deploy itself already succeeded.
func (r *Restarter) Restart(ctx context.Context) error {
	log.Infof("Restarting %q", r.service)

	restartCmd := proc.Command(ctx, "", "systemctl", "restart", r.service)
	restartCmd.Stderr = os.Stderr
	if err := r.executor.Run(restartCmd); err != nil {
		return errors.WithContext(err, "restart service")
	}

	// Give the service time to initialize before inspecting it. This is a
	// courtesy to the operator, not a synchronization primitive.
	r.clock.Sleep(r.delay)

	statusCmd := proc.Command(ctx, "",
		"systemctl", "status", "--no-pager", r.service)
	output, err := r.executor.Output(statusCmd)
	if err != nil {
		log.WithError(err).Warn("Failed to query service status")
	}
	if output != "" {
		fmt.Fprintln(r.out, truncate(output, statusLineLimit))
	}
	return nil
}

func truncate(output string, limit int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) <= limit {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:limit], "\n")
}
