package errors

import (
	"errors"
	"os/exec"
)

// ExitCode returns the code the process should exit with for err. When the
// failure came from an external command, the command's own exit code is
// propagated so that callers (e.g. CI scripts) see the underlying tool's
// status. Any other failure exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
