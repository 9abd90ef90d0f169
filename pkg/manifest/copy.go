package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sitepatch/sitepatch/pkg/config"
	"github.com/sitepatch/sitepatch/pkg/errors"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// Copier installs the manifest's files from the source root into the
// destination root, overwriting whatever is there.
type Copier struct {
	sourceRoot string
	destRoot   string
	paths      []string
}

// NewCopier creates a Copier for the given deploy config.
func NewCopier(cfg config.Deploy) *Copier {
	return &Copier{
		sourceRoot: cfg.SourceRoot,
		destRoot:   cfg.DestRoot,
		paths:      cfg.Manifest,
	}
}

// Copy copies each manifest entry in order. It halts on the first failure
// without rolling back files already copied -- a partial deployment is an
// accepted risk of this design.
func (c *Copier) Copy() error {
	for _, rel := range c.paths {
		if err := c.copyOne(rel); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy %q", rel))
		}
	}
	log.Infof("Copied %d files to %q", len(c.paths), c.destRoot)
	return nil
}

func (c *Copier) copyOne(rel string) error {
	src := filepath.Join(c.sourceRoot, rel)
	dst := filepath.Join(c.destRoot, rel)

	srcInfo, err := fs.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: src}
		}
		return errors.WithContext(err, "stat source")
	}

	// Purely operator signal: report whether the deploy actually changed
	// the installed file.
	changed, err := c.differs(src, dst)
	if err != nil {
		return err
	}

	dstParent := filepath.Dir(dst)
	dstParentExists, err := afero.DirExists(fs, dstParent)
	if err != nil {
		return errors.WithContext(err, "check if parent exists")
	}
	if !dstParentExists {
		if err := fs.MkdirAll(dstParent, 0755); err != nil {
			return errors.WithContext(err, "make parent")
		}
	}

	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	dstFile, err := fs.Create(dst)
	if err != nil {
		return errors.WithContext(err, "create destination")
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.WithContext(err, "write")
	}
	if err := dstFile.Close(); err != nil {
		return errors.WithContext(err, "close destination")
	}

	if err := fs.Chmod(dst, srcInfo.Mode()); err != nil {
		return errors.WithContext(err, "chmod")
	}

	log.WithFields(log.Fields{
		"path":    rel,
		"changed": changed,
	}).Debug("Copied file")
	return nil
}

// differs reports whether the destination's contents differ from the
// source's. A missing destination counts as a difference.
func (c *Copier) differs(src, dst string) (bool, error) {
	dstExists, err := afero.Exists(fs, dst)
	if err != nil {
		return false, errors.WithContext(err, "check destination")
	}
	if !dstExists {
		return true, nil
	}

	srcHash, err := HashFile(src)
	if err != nil {
		return false, errors.WithContext(err, "hash source")
	}
	dstHash, err := HashFile(dst)
	if err != nil {
		return false, errors.WithContext(err, "hash destination")
	}
	return srcHash != dstHash, nil
}
