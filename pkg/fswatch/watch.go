package fswatch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

var fs = afero.NewOsFs()

// Watch watches the manifest's source files. It sends an event on the
// returned channel whenever one of the files changes.
// Each manifest entry is resolved relative to `sourceRoot`.
func Watch(sourceRoot string, manifest []string) (chan struct{}, error) {
	pathsToWatch, err := getPathsToWatch(sourceRoot, manifest)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}
	return combineUpdates(watcher.Events), nil
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getPathsToWatch returns each manifest file plus its parent directory.
// Watching the parent as well means that if the file is removed and
// re-added we'll still notice. This also causes triggers when unrelated
// files in the directory change, which is fine since the redeploy will just
// overwrite the destination with identical contents.
func getPathsToWatch(sourceRoot string, manifest []string) (paths []string, err error) {
	seen := map[string]struct{}{}
	add := func(path string) {
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			paths = append(paths, path)
		}
	}

	for _, entry := range manifest {
		path := entry
		if !filepath.IsAbs(entry) {
			path = filepath.Join(sourceRoot, entry)
		}

		if _, err := fs.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.FileNotFound{Path: path}
			}
			return nil, errors.WithContext(err, "stat")
		}

		add(path)
		add(filepath.Dir(path))
	}

	return paths, nil
}
