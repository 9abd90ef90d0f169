package deploy

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

// Syncer brings the deploy branch up to date with upstream.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Copier installs the manifest files into the destination root.
type Copier interface {
	Copy() error
}

// Restarter restarts the service and reports its status.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Options selects which steps a run performs.
type Options struct {
	// Sync runs the sync step before copying.
	Sync bool
}

// Runner executes the deploy pipeline: sync (optional), copy, restart.
// There is no state machine here. The steps run in order, each one fully
// completing before the next begins, and the first failure aborts the run.
type Runner struct {
	syncer    Syncer
	copier    Copier
	restarter Restarter
}

// NewRunner creates a Runner over the given steps. The syncer may be nil
// when the sync step will never be requested.
func NewRunner(syncer Syncer, copier Copier, restarter Restarter) *Runner {
	return &Runner{
		syncer:    syncer,
		copier:    copier,
		restarter: restarter,
	}
}

// Run executes the pipeline once.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	if opts.Sync {
		log.Info("Syncing deploy branch with upstream")
		if err := r.syncer.Sync(ctx); err != nil {
			return errors.WithContext(err, "sync step")
		}
	}

	log.Info("Copying manifest files")
	if err := r.copier.Copy(); err != nil {
		return errors.WithContext(err, "copy step")
	}

	if err := r.restarter.Restart(ctx); err != nil {
		return errors.WithContext(err, "restart step")
	}
	return nil
}
