package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiconform/cmd"
)

func stubExecute(t *testing.T, err error) {
	t.Helper()
	orig := execute
	execute = func(context.Context) error { return err }
	t.Cleanup(func() { execute = orig })
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"checks failed", &cmd.ExitError{Code: 1, Err: errors.New("failed")}, 1},
		{"aborted", &cmd.ExitError{Code: 2, Err: errors.New("aborted")}, 2},
		{"usage error", errors.New("unknown flag: --bogus"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubExecute(t, tt.err)
			assert.Equal(t, tt.want, run(context.Background()))
		})
	}
}

func TestHandlePanic(t *testing.T) {
	origWrite, origExit := osWriteFile, osExit
	t.Cleanup(func() { osWriteFile, osExit = origWrite, origExit })

	var written []byte
	var path string
	osWriteFile = func(name string, data []byte, _ os.FileMode) error {
		path, written = name, data
		return nil
	}
	exitCode := -1
	osExit = func(code int) { exitCode = code }

	func() {
		defer handlePanic()
		panic("boom")
	}()

	assert.Equal(t, 2, exitCode)
	assert.Equal(t, panicLogFile, path)
	require.NotEmpty(t, written)
	assert.Contains(t, string(written), "panic: boom")
}

func TestHandlePanic_NoPanic(t *testing.T) {
	origExit := osExit
	t.Cleanup(func() { osExit = origExit })
	called := false
	osExit = func(int) { called = true }

	func() {
		defer handlePanic()
	}()
	assert.False(t, called)
}
