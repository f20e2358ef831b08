package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"compartmentalize/internal/logging"
)

// DefaultMaxOutputBytes caps the captured output of one invocation.
const DefaultMaxOutputBytes = 1 << 20

// Invocation is one external tool run.
type Invocation struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
}

// String renders the invocation the way a shell would show it.
func (inv Invocation) String() string {
	return strings.TrimSpace(inv.Binary + " " + strings.Join(inv.Args, " "))
}

// Result is the outcome of a tool that ran to completion.
type Result struct {
	ExitCode  int
	Output    string
	Truncated bool
	Duration  time.Duration
}

// Runner executes tool invocations. A non-zero exit is reported through
// Result.ExitCode; the error return is reserved for tools that could not run
// or were killed.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// ExecRunner runs tools as host processes.
type ExecRunner struct {
	Timeout        time.Duration
	MaxOutputBytes int64
}

// NewExecRunner creates a runner with the given per-invocation timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout, MaxOutputBytes: DefaultMaxOutputBytes}
}

// Run executes inv and captures its combined output. Grandchildren holding
// the output pipe open are abandoned a second after the tool exits.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	logging.ToolchainDebug("Executing: %s (dir=%s)", inv, inv.Dir)

	execCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	maxOutput := r.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	var buf bytes.Buffer
	out := &limitedWriter{w: &buf, max: maxOutput}

	cmd := exec.CommandContext(execCtx, inv.Binary, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		ExitCode:  0,
		Output:    buf.String(),
		Truncated: out.truncated,
		Duration:  time.Since(start),
	}
	if out.truncated {
		logging.Get(logging.CategoryToolchain).Warn("Output of %s truncated: %d bytes discarded", inv.Binary, out.discarded)
	}

	if err != nil {
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			return result, fmt.Errorf("killed after %s timeout", r.Timeout)
		case errors.Is(execCtx.Err(), context.Canceled):
			return result, execCtx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logging.ToolchainDebug("Command exited non-zero: %s -> %d", inv.Binary, result.ExitCode)
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // full length, or exec reports a short write
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
