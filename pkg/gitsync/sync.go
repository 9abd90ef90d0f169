package gitsync

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"

	"github.com/sitepatch/sitepatch/pkg/config"
	"github.com/sitepatch/sitepatch/pkg/errors"
	"github.com/sitepatch/sitepatch/pkg/proc"
)

// openRepo is mocked for unit testing.
var openRepo = git.PlainOpen

// Syncer brings the deploy branch up to date with upstream: it fetches the
// upstream remote, rebases the deploy branch onto the upstream branch, and
// force-pushes the result to the fork remote.
type Syncer struct {
	config   config.Git
	executor proc.CommandExecutor
}

// New creates a Syncer that runs the real git binary.
func New(cfg config.Git) *Syncer {
	return NewWithExecutor(cfg, proc.NewExecutor())
}

// NewWithExecutor creates a Syncer with a custom command executor.
func NewWithExecutor(cfg config.Git, executor proc.CommandExecutor) *Syncer {
	return &Syncer{config: cfg, executor: executor}
}

// Sync runs the full sync sequence. Rebase conflicts and push failures
// surface as errors from the underlying git commands; conflicts must be
// resolved manually, so the run simply halts.
func (s *Syncer) Sync(ctx context.Context) error {
	oldHead, err := s.deployHead()
	if err != nil {
		return err
	}
	if oldHead != "" {
		// The force-push below rewrites the fork's deploy branch. Logging
		// the old head makes a bad push recoverable with
		// `git reset --hard <head>`.
		log.WithField("head", oldHead).Infof(
			"Rebasing %q onto %s/%s", s.config.DeployBranch,
			s.config.UpstreamRemote, s.config.UpstreamBranch)
	}

	sequence := [][]string{
		{"fetch", s.config.UpstreamRemote},
		{"checkout", s.config.DeployBranch},
		{"rebase", fmt.Sprintf("%s/%s",
			s.config.UpstreamRemote, s.config.UpstreamBranch)},
		{"push", "--force", s.config.ForkRemote, s.config.DeployBranch},
	}
	for _, args := range sequence {
		if err := s.run(ctx, args); err != nil {
			return errors.WithContext(err, "git "+args[0])
		}
	}

	if newHead, err := s.deployHead(); err == nil && newHead != "" {
		log.WithField("head", newHead).Infof(
			"Pushed %q to %s", s.config.DeployBranch, s.config.ForkRemote)
	}
	return nil
}

func (s *Syncer) run(ctx context.Context, args []string) error {
	cmd := proc.Command(ctx, s.config.RepoPath, "git", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return s.executor.Run(cmd)
}

// deployHead resolves the current head of the deploy branch. A repository
// without the deploy branch yet isn't an error; a path that isn't a
// repository at all is.
func (s *Syncer) deployHead() (string, error) {
	repo, err := openRepo(s.config.RepoPath)
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return "", errors.NewFriendlyError(
				"%q is not a git repository. The sync step needs to run "+
					"inside the checkout that holds the deploy branch. "+
					"Check the git.repoPath setting.", s.config.RepoPath)
		}
		return "", errors.WithContext(err, "open repository")
	}

	ref, err := repo.Reference(
		plumbing.NewBranchReferenceName(s.config.DeployBranch), true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			log.Debugf("Branch %q doesn't exist locally yet",
				s.config.DeployBranch)
			return "", nil
		}
		return "", errors.WithContext(err, "resolve deploy branch")
	}
	return ref.Hash().String(), nil
}
