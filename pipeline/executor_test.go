package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests drive the executor with /bin/sh so they do not depend on a Python
// toolchain being installed.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExecutorCapturesStdoutAndExitZero(t *testing.T) {
	path := writeScript(t, "echo 1\necho 2\necho 3\n")
	exec := &ScriptExecutor{Interpreter: "sh", Timeout: 10 * time.Second}

	result, err := exec.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "1\n2\n3\n", result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.False(t, result.TimedOut)
}

func TestExecutorNonZeroExitIsData(t *testing.T) {
	path := writeScript(t, "exit 7\n")
	exec := &ScriptExecutor{Interpreter: "sh", Timeout: 10 * time.Second}

	result, err := exec.Run(context.Background(), path)
	require.NoError(t, err, "a failing script is a normal outcome")
	assert.Equal(t, 7, result.ExitCode)
	assert.False(t, result.TimedOut)
}

func TestExecutorSeparatesStderr(t *testing.T) {
	path := writeScript(t, "echo out\necho err 1>&2\n")
	exec := &ScriptExecutor{Interpreter: "sh", Timeout: 10 * time.Second}

	result, err := exec.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestExecutorTimeoutKillsScript(t *testing.T) {
	path := writeScript(t, "sleep 30\necho never\n")
	exec := &ScriptExecutor{Interpreter: "sh", Timeout: 300 * time.Millisecond}

	start := time.Now()
	result, err := exec.Run(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
	assert.Equal(t, TimeoutExitCode, result.ExitCode)
	assert.NotContains(t, result.Stdout, "never")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecutorScrubsEnvironmentByDefault(t *testing.T) {
	t.Setenv("SCRIPTFORGE_SECRET", "hunter2")
	path := writeScript(t, "echo \"secret=[$SCRIPTFORGE_SECRET]\"\n")
	exec := &ScriptExecutor{Interpreter: "sh", Timeout: 10 * time.Second}

	result, err := exec.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "secret=[]\n", result.Stdout)
}

func TestExecutorCapsOutput(t *testing.T) {
	path := writeScript(t, "i=0\nwhile [ $i -lt 100 ]; do echo 0123456789; i=$((i+1)); done\n")
	exec := &ScriptExecutor{Interpreter: "sh", Timeout: 10 * time.Second, MaxOutputBytes: 64}

	result, err := exec.Run(context.Background(), path)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Stdout), 64+len("\n...(output truncated)"))
	assert.Contains(t, result.Stdout, "(output truncated)")
}

func TestExecutorMissingInterpreterIsAFault(t *testing.T) {
	path := writeScript(t, "echo hi\n")
	exec := &ScriptExecutor{Interpreter: "definitely-not-an-interpreter", Timeout: 5 * time.Second}

	_, err := exec.Run(context.Background(), path)
	assert.Error(t, err)
}

func TestExecutorCanceledContext(t *testing.T) {
	path := writeScript(t, "sleep 30\n")
	exec := &ScriptExecutor{Interpreter: "sh", Timeout: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	_, err := exec.Run(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
