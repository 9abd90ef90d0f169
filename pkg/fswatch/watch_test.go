package fswatch

import (
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

func TestGetPathsToWatch(t *testing.T) {
	sourceRoot := "/src"

	tests := []struct {
		name     string
		dirs     []string
		files    []string
		manifest []string
		expPaths []string
		expError error
	}{
		{
			name:     "SingleFile",
			dirs:     []string{"/src/app"},
			files:    []string{"/src/app/auth.py"},
			manifest: []string{"app/auth.py"},
			expPaths: []string{"/src/app", "/src/app/auth.py"},
		},
		{
			name: "SharedParent",
			dirs: []string{"/src/app"},
			files: []string{"/src/app/auth.py", "/src/app/provider.py",
				"/src/app/ignored.py"},
			manifest: []string{"app/auth.py", "app/provider.py"},
			expPaths: []string{"/src/app", "/src/app/auth.py",
				"/src/app/provider.py"},
		},
		{
			name:     "MissingSource",
			dirs:     []string{"/src/app"},
			manifest: []string{"app/auth.py"},
			expError: errors.FileNotFound{Path: "/src/app/auth.py"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			for _, dir := range test.dirs {
				assert.NoError(t, fs.Mkdir(dir, 0755))
			}
			for _, file := range test.files {
				assert.NoError(t, afero.WriteFile(fs, file, []byte("testfile"), 0644))
			}

			paths, err := getPathsToWatch(sourceRoot, test.manifest)
			assert.Equal(t, test.expError, err)

			// Sort for consistency.
			sort.Strings(test.expPaths)
			sort.Strings(paths)
			if len(test.expPaths) == 0 {
				assert.Empty(t, paths)
			} else {
				assert.Equal(t, test.expPaths, paths)
			}
		})
	}
}

func TestCombineUpdates(t *testing.T) {
	t.Parallel()

	updates := make(chan fsnotify.Event, 1024)
	addEvents := func(num int) {
		for i := 0; i < num; i++ {
			updates <- fsnotify.Event{}
		}
	}

	assertTriggered := func(combined chan struct{}) {
		select {
		case <-combined:
		case <-time.After(5 * time.Second):
			t.Error("combined channel should have an event")
		}
	}

	assertEmpty := func(combined chan struct{}) {
		select {
		case <-combined:
			t.Error("combined channel should be empty")
		default:
		}
	}

	// Consuming triggers until the combiner goes quiet leaves the channel
	// empty. Events forwarded while we were consuming may re-arm the
	// trigger, so drain until no more arrive.
	drainUntilQuiet := func(combined chan struct{}) {
		for {
			select {
			case <-combined:
			case <-time.After(100 * time.Millisecond):
				return
			}
		}
	}

	// A burst of events coalesces into triggers rather than one event each.
	combined := combineUpdates(updates)
	addEvents(100)
	assertTriggered(combined)

	drainUntilQuiet(combined)
	assertEmpty(combined)

	addEvents(1)
	assertTriggered(combined)
}
