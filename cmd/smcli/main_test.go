package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	origExecute, origMap := executeCmd, mapExitCode
	t.Cleanup(func() { executeCmd, mapExitCode = origExecute, origMap })

	var gotArgs []string
	executeCmd = func(ctx context.Context, args []string) error {
		gotArgs = args
		return nil
	}
	assert.Equal(t, 0, run([]string{"request", "users"}))
	assert.Equal(t, []string{"request", "users"}, gotArgs)

	boom := errors.New("boom")
	executeCmd = func(context.Context, []string) error { return boom }
	mapExitCode = func(err error) int {
		assert.Same(t, boom, err)
		return 7
	}
	assert.Equal(t, 7, run(nil))
}
