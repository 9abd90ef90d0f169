package config

import (
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

const (
	// DefaultPath is the path to the deploy config when `--config` isn't
	// given. It's resolved relative to the working directory.
	DefaultPath = "sitepatch.yaml"

	// InitialDeployConfigVersion is the first version of the deploy config.
	// Config files that do not specify a version will default to this
	// version.
	InitialDeployConfigVersion = "v1alpha1"

	// SupportedDeployConfigVersion is the supported version of the deploy
	// config of the current sitepatch binary.
	SupportedDeployConfigVersion = "v1alpha1"

	// defaultRestartDelaySeconds is how long we wait after restarting the
	// service before querying its status, when the config doesn't say.
	defaultRestartDelaySeconds = 2
)

// Deploy describes one deployment: which files to copy where, which service
// to restart afterwards, and which branches the optional sync step operates
// on.
type Deploy struct {
	Version string `json:"version,omitempty"`

	// Service is the name of the systemd unit to restart. Required.
	Service string `json:"service"`

	// SourceRoot is the tree holding the patched files. Required.
	SourceRoot string `json:"sourceRoot"`

	// DestRoot is the installed location the files are copied into. Required.
	DestRoot string `json:"destRoot"`

	// Manifest is the ordered list of relative paths subject to the copy
	// step. Required, and must be non-empty.
	Manifest []string `json:"manifest"`

	// Git configures the optional sync step. Only validated when the sync
	// step actually runs.
	Git Git `json:"git,omitempty"`

	RestartDelaySeconds int `json:"restartDelaySeconds,omitempty"`

	// Only populated and consumed by sitepatch. Never set by user.
	path string
}

// Git names the remotes and branches the sync step operates on.
type Git struct {
	// RepoPath is the repository the sync step runs in. Defaults to
	// SourceRoot.
	RepoPath string `json:"repoPath,omitempty"`

	UpstreamRemote string `json:"upstreamRemote"`
	ForkRemote     string `json:"forkRemote"`
	DeployBranch   string `json:"deployBranch"`
	UpstreamBranch string `json:"upstreamBranch"`
}

func (c Deploy) getVersion() string {
	return c.Version
}

// GetPath returns the filepath that the config was parsed from. A getter
// method is used rather than making the field public so that it can't get
// set by the yaml unmarshalling.
func (c Deploy) GetPath() string {
	return c.path
}

// RestartDelay returns the settle delay to apply between restarting the
// service and querying its status.
func (c Deploy) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelaySeconds) * time.Second
}

// homedirExpand will be overridden in mock tests.
var homedirExpand = homedir.Expand

// ParseDeploy parses the deploy config at the given path.
func ParseDeploy(path string) (Deploy, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Deploy{}, errors.WithContext(err, "expand config path")
	}

	config := Deploy{
		path:                path,
		Version:             InitialDeployConfigVersion,
		RestartDelaySeconds: defaultRestartDelaySeconds,
	}
	if err := parseConfig(path, &config, SupportedDeployConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Deploy{}, errors.NewFriendlyError("The deploy config "+
				"file doesn't exist at %q. Create one describing the "+
				"manifest, roots, and service to restart, or point at an "+
				"existing one with `--config`.", path)
		}
		return Deploy{}, errors.WithContext(err, "parse")
	}

	if err := config.validate(); err != nil {
		return Deploy{}, err
	}

	for _, field := range []*string{&config.SourceRoot, &config.DestRoot} {
		expanded, err := homedirExpand(*field)
		if err != nil {
			return Deploy{}, errors.WithContext(err, "expand path")
		}
		*field = expanded
	}

	// Evaluate relative roots relative to the config path.
	configDir := filepath.Dir(path)
	if !filepath.IsAbs(config.SourceRoot) {
		config.SourceRoot = filepath.Join(configDir, config.SourceRoot)
	}
	if !filepath.IsAbs(config.DestRoot) {
		config.DestRoot = filepath.Join(configDir, config.DestRoot)
	}

	for i, entry := range config.Manifest {
		cleaned := filepath.Clean(entry)
		if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
			return Deploy{}, errors.NewFriendlyError(
				"The manifest entry %q in %q is invalid. Manifest entries "+
					"must be relative paths within the source root.",
				entry, path)
		}
		config.Manifest[i] = cleaned
	}

	if config.Git.RepoPath == "" {
		config.Git.RepoPath = config.SourceRoot
	} else {
		expanded, err := homedirExpand(config.Git.RepoPath)
		if err != nil {
			return Deploy{}, errors.WithContext(err, "expand repo path")
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(configDir, expanded)
		}
		config.Git.RepoPath = expanded
	}

	return config, nil
}

func (c Deploy) validate() error {
	required := []struct {
		name  string
		empty bool
	}{
		{"service", c.Service == ""},
		{"sourceRoot", c.SourceRoot == ""},
		{"destRoot", c.DestRoot == ""},
		{"manifest", len(c.Manifest) == 0},
	}
	for _, field := range required {
		if field.empty {
			return errors.MissingFieldError{Field: field.name}
		}
	}
	return nil
}

// ValidateGit checks the fields that the sync step requires. It's only
// called when the sync step is requested so that copy-only deployments
// don't need a git section at all.
func (c Deploy) ValidateGit() error {
	required := []struct {
		name  string
		empty bool
	}{
		{"git.upstreamRemote", c.Git.UpstreamRemote == ""},
		{"git.forkRemote", c.Git.ForkRemote == ""},
		{"git.deployBranch", c.Git.DeployBranch == ""},
		{"git.upstreamBranch", c.Git.UpstreamBranch == ""},
	}
	for _, field := range required {
		if field.empty {
			return errors.MissingFieldError{Field: field.name}
		}
	}
	return nil
}
