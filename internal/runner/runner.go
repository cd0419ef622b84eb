// Package runner invokes external conversion programs with a per-invocation
// timeout and reports the outcome as an explicit result value.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout reports that an invocation exceeded its deadline and the process
// was killed. It is distinct from a non-zero exit, which is carried in the
// Result instead.
var ErrTimeout = errors.New("process timed out")

// Result captures one external-program invocation. A non-zero ExitCode is not
// an error at this layer; callers decide what a failure means for their
// strategy.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Success reports whether the process ran to completion with exit code 0.
func (r Result) Success() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// FailureReason summarizes why an invocation failed, preferring the tail of
// stderr because conversion tools put their diagnostics there.
func (r Result) FailureReason() string {
	if r.TimedOut {
		return "timed out"
	}
	if r.ExitCode == 0 {
		return ""
	}
	detail := lastLine(r.Stderr)
	if detail == "" {
		detail = lastLine(r.Stdout)
	}
	if detail == "" {
		return fmt.Sprintf("exit code %d", r.ExitCode)
	}
	return fmt.Sprintf("exit code %d: %s", r.ExitCode, detail)
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// Runner executes one external program per call.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) (Result, error)
}

var commandContext = exec.CommandContext

// Exec is the production Runner. Every invocation gets its own deadline on
// top of whatever deadline the caller's context already carries.
type Exec struct {
	timeout time.Duration
}

// NewExec builds a Runner with the given per-invocation timeout.
func NewExec(timeout time.Duration) *Exec {
	return &Exec{timeout: timeout}
}

func (e *Exec) Run(ctx context.Context, binary string, args ...string) (Result, error) {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := commandContext(runCtx, binary, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		return result, fmt.Errorf("%s: %w", binary, ErrTimeout)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		return result, fmt.Errorf("run %s: %w", binary, err)
	}
}

// ValidateOutput confirms the invocation left a non-empty artifact at path.
// An empty partial file is removed so a later fallback attempt starts clean.
func ValidateOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output missing: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("output %s is a directory", path)
	}
	if info.Size() == 0 {
		_ = os.Remove(path)
		return fmt.Errorf("output %s is empty", path)
	}
	return nil
}
