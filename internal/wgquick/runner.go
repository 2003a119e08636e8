// Package wgquick runs the external wg-quick tool that actually brings
// tunnels up and down.
package wgquick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"wgstatusbar/internal/core"
)

var (
	// ErrBinaryNotFound is reported when the tool path does not exist.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrTimeout is reported when the tool exceeds its time budget.
	ErrTimeout = errors.New("timed out")
)

// Exit codes reported for runs that never produced a real exit status.
const (
	ExitNotFound = 127
	ExitFailed   = -1
)

// Result is the outcome of one tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Err is set when the process could not be started or was killed.
	Err error
}

// Success reports whether the tool exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// Runner executes a binary with a controlled environment.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) Result
}

// ExecRunner runs binaries with os/exec. Env replaces the inherited
// environment entirely.
type ExecRunner struct {
	Env     []string
	Timeout time.Duration
	// WaitDelay bounds how long output is drained after the tool exits,
	// for children it left running with our pipes. Zero means 5s.
	WaitDelay time.Duration
}

const defaultWaitDelay = 5 * time.Second

// NewExecRunner creates a runner whose children see only PATH=searchPath.
func NewExecRunner(searchPath string, timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		Env:     []string{"PATH=" + searchPath},
		Timeout: timeout,
	}
}

// Run starts binary and waits for it. Missing binaries and start failures are
// reported in the Result, never as a panic. Both output streams are drained
// completely and logged.
func (r *ExecRunner) Run(ctx context.Context, binary string, args ...string) Result {
	if fi, err := os.Stat(binary); err != nil || fi.IsDir() {
		core.Log.Errorf("Runner", "Tool %s is not available", binary)
		return Result{
			ExitCode: ExitNotFound,
			Stderr:   fmt.Sprintf("%s: %s", ErrBinaryNotFound, binary),
			Err:      fmt.Errorf("%w: %s", ErrBinaryNotFound, binary),
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = r.Env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	core.Log.Infof("Runner", "Running %s %s", binary, strings.Join(args, " "))
	err := cmd.Run()

	res := Result{
		ExitCode: ExitFailed,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("%s %w after %s", binary, ErrTimeout, r.Timeout)
		res.ExitCode = ExitFailed
		res.Stderr = appendLine(res.Stderr, res.Err.Error())
	case ctx.Err() != nil:
		res.Err = ctx.Err()
		res.ExitCode = ExitFailed
		res.Stderr = appendLine(res.Stderr, res.Err.Error())
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success():
		// The exit status decides; a background child kept the pipes open.
		core.Log.Warnf("Runner", "%s exited 0 but left output open: %v", binary, err)
	case err != nil:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			verb := "run"
			if cmd.ProcessState == nil {
				verb = "start"
			}
			res.Err = fmt.Errorf("%s %s: %w", verb, binary, err)
			res.Stderr = appendLine(res.Stderr, res.Err.Error())
		}
	}

	core.Log.Infof("Runner", "%s exited with %d", binary, res.ExitCode)
	if res.Stdout != "" {
		core.Log.Debugf("Runner", "stdout: %s", strings.TrimSpace(res.Stdout))
	}
	if res.Stderr != "" {
		core.Log.Infof("Runner", "stderr: %s", strings.TrimSpace(res.Stderr))
	}
	return res
}

func appendLine(s, line string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s + line
}
