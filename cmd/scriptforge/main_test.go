package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootRequiresExactlyOneRequest(t *testing.T) {
	for _, args := range [][]string{{}, {"one", "two"}} {
		root := newRootCmd()
		root.SetArgs(args)
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		assert.Error(t, root.Execute(), "args %v", args)
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("SCRIPTFORGE_TEST_KEY", "from-env")
	assert.Equal(t, "from-env", envOrDefault("SCRIPTFORGE_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", envOrDefault("SCRIPTFORGE_TEST_KEY_MISSING", "fallback"))
}
