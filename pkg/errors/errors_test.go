package errors

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	base := New("underlying failure")
	wrapped := WithContext(base, "do thing")
	assert.Equal(t, "do thing: underlying failure", wrapped.Error())

	doubleWrapped := WithContext(wrapped, "outer")
	assert.Equal(t, "outer: do thing: underlying failure", doubleWrapped.Error())
	assert.True(t, Is(doubleWrapped, base))
}

func TestGetPrintableMessage(t *testing.T) {
	friendly := NewFriendlyError("something went wrong with %q", "config")
	wrapped := WithContext(WithContext(friendly, "parse"), "startup")
	assert.Equal(t, `something went wrong with "config"`,
		GetPrintableMessage(wrapped))

	plain := WithContext(New("boom"), "run")
	assert.Equal(t, "run: boom", GetPrintableMessage(plain))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(New("boom")))

	// A failing external command's exit code is propagated through the
	// context chain.
	err := exec.Command("sh", "-c", "exit 3").Run()
	assert.Error(t, err)
	assert.Equal(t, 3, ExitCode(WithContext(err, "run command")))
}

func TestTypedErrors(t *testing.T) {
	assert.Equal(t, "missing required field: service",
		MissingFieldError{Field: "service"}.Error())
	assert.Equal(t, `"/tmp/missing" does not exist`,
		FileNotFound{Path: "/tmp/missing"}.Error())

	var notFound FileNotFound
	err := WithContext(FileNotFound{Path: "a"}, "stat")
	assert.True(t, As(err, &notFound))
	assert.Equal(t, "a", notFound.Path)
}
