package cmd

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sitepatch/sitepatch/cmd/util"
	"github.com/sitepatch/sitepatch/cmd/version"
	"github.com/sitepatch/sitepatch/pkg/config"
	"github.com/sitepatch/sitepatch/pkg/deploy"
	"github.com/sitepatch/sitepatch/pkg/fswatch"
	"github.com/sitepatch/sitepatch/pkg/gitsync"
	"github.com/sitepatch/sitepatch/pkg/manifest"
	"github.com/sitepatch/sitepatch/pkg/service"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info
// and above.
const verboseLogKey = "SITEPATCH_LOG_VERBOSE"

type rootFlags struct {
	configPath string
	sync       bool
	watch      bool
	dryRun     bool
}

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	var flags rootFlags
	rootCmd := &cobra.Command{
		Use:   "sitepatch",
		Short: "Deploy patched files into an installed package and restart its service.",
		Long: "sitepatch copies the files listed in the deploy config's manifest\n" +
			"from the source tree into the installed package location, then\n" +
			"restarts the service that runs them. With --sync, it first rebases\n" +
			"the deploy branch onto upstream and force-pushes it to the fork.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(flags)
		},
	}
	rootCmd.Flags().StringVarP(&flags.configPath, "config", "c",
		config.DefaultPath, "path to the deploy config")
	rootCmd.Flags().BoolVar(&flags.sync, "sync", false,
		"rebase the deploy branch onto upstream and force-push it to the fork first")
	rootCmd.Flags().BoolVar(&flags.watch, "watch", false,
		"stay running and redeploy whenever a manifest source file changes")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false,
		"print the steps that would run without performing them")

	rootCmd.AddCommand(
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

func run(flags rootFlags) error {
	cfg, err := config.ParseDeploy(flags.configPath)
	if err != nil {
		return err
	}
	if flags.sync {
		if err := cfg.ValidateGit(); err != nil {
			return err
		}
	}

	if flags.dryRun {
		printPlan(cfg, flags)
		return nil
	}

	var syncer deploy.Syncer
	if flags.sync {
		syncer = gitsync.New(cfg.Git)
	}
	runner := deploy.NewRunner(
		syncer,
		manifest.NewCopier(cfg),
		service.NewRestarter(cfg.Service, cfg.RestartDelay()),
	)

	ctx := context.Background()
	if err := runner.Run(ctx, deploy.Options{Sync: flags.sync}); err != nil {
		return err
	}

	if flags.watch {
		return watchLoop(ctx, runner, cfg)
	}
	return nil
}

// watchLoop redeploys (copy and restart only -- never sync) whenever a
// manifest source file changes. Failures during the loop are logged rather
// than fatal so that a transient error doesn't kill the session.
func watchLoop(ctx context.Context, runner *deploy.Runner, cfg config.Deploy) error {
	updates, err := fswatch.Watch(cfg.SourceRoot, cfg.Manifest)
	if err != nil {
		return err
	}

	log.Infof("Watching %d manifest files for changes. Press Ctrl-C to stop.",
		len(cfg.Manifest))
	for range updates {
		if err := runner.Run(ctx, deploy.Options{}); err != nil {
			log.WithError(err).Error(
				"Redeploy failed. Will retry on the next file change.")
		}
	}
	return nil
}

func printPlan(cfg config.Deploy, flags rootFlags) {
	if flags.sync {
		log.Infof("Would sync: fetch %q, rebase %q onto %s/%s, force-push to %q",
			cfg.Git.UpstreamRemote, cfg.Git.DeployBranch,
			cfg.Git.UpstreamRemote, cfg.Git.UpstreamBranch, cfg.Git.ForkRemote)
	}
	for _, path := range cfg.Manifest {
		log.Infof("Would copy %q from %q to %q", path, cfg.SourceRoot, cfg.DestRoot)
	}
	log.Infof("Would restart %q and show its status after %s",
		cfg.Service, cfg.RestartDelay())
}
