package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

// HandleFatalError prints the user-facing message for err and exits with
// the appropriate code. When the failure came from an external command
// (git, systemctl), that command's exit code is propagated.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Exiting due to fatal error")
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	os.Exit(errors.ExitCode(err))
}

// HandlePanic recovers from panics in the main goroutine so that we exit
// with an error message rather than a raw stack trace to the terminal.
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}

	log.WithField("stack", string(debug.Stack())).Errorf(
		"sitepatch crashed: %v", r)
	os.Exit(1)
}
