package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// TimeoutExitCode is the sentinel exit code recorded when the wall-clock bound
// killed the script; a reaped child has no meaningful status of its own.
const TimeoutExitCode = -1

// ExecutionResult captures everything the operator needs about one script run.
// A non-zero exit is a normal outcome to report, not a fault.
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// ScriptExecutor runs the persisted script under the configured interpreter
// with an explicit sandbox boundary: wall-clock timeout with process-group
// kill, a scrubbed environment, a fixed working directory, and capped output
// capture. It provides no OS-level filesystem or network isolation; the
// operator's review gates are the authority on what runs.
type ScriptExecutor struct {
	Interpreter string
	Timeout     time.Duration
	Workdir     string
	// Env replaces the inherited environment. Nil means a minimal scrubbed
	// set rather than the parent's full environment.
	Env []string
	// MaxOutputBytes caps each captured stream. Zero means 1 MiB.
	MaxOutputBytes int64
}

const defaultMaxOutput = 1 << 20

// Run executes the script at path and reports the outcome. It returns an
// error only for faults in the executor itself (missing interpreter, spawn
// failure); child failures come back inside the result.
func (e *ScriptExecutor) Run(ctx context.Context, path string) (*ExecutionResult, error) {
	interpreter := e.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, interpreter, path)
	cmd.Dir = e.Workdir
	cmd.Env = e.environment()
	// New process group so a timeout or interrupt kills the whole tree, not
	// just the interpreter.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	limit := e.MaxOutputBytes
	if limit <= 0 {
		limit = defaultMaxOutput
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	result := &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	switch {
	case err == nil:
		result.ExitCode = 0
	case ctx.Err() != nil:
		// Operator interrupt: the child group is already killed, surface the
		// cancellation instead of a fabricated result.
		return nil, ctx.Err()
	case runCtx.Err() == context.DeadlineExceeded:
		result.TimedOut = true
		result.ExitCode = TimeoutExitCode
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run script: %w", err)
		}
	}
	return result, nil
}

// environment returns the child environment: caller-supplied when set,
// otherwise a minimal scrubbed set so generated code does not inherit
// credentials from the parent process.
func (e *ScriptExecutor) environment() []string {
	if e.Env != nil {
		return e.Env
	}
	return []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"LANG=C.UTF-8",
	}
}

// cappedBuffer keeps the first limit bytes and drops the rest so a runaway
// script cannot exhaust memory through its output.
type cappedBuffer struct {
	limit     int64
	buf       []byte
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(len(b.buf))
	if remaining > 0 {
		take := int64(len(p))
		if take > remaining {
			take = remaining
			b.truncated = true
		}
		b.buf = append(b.buf, p[:take]...)
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return string(b.buf) + "\n...(output truncated)"
	}
	return string(b.buf)
}
