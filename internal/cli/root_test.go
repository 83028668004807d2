package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// runCommand executes the CLI with the given args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "log", "--log", "ignored.db")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"sync", "sync-record", "status", "log", "seed", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "sync failed", errors.New("io"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
