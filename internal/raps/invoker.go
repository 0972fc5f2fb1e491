package raps

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/logging"
)

// killGrace is how long a process gets between SIGTERM and SIGKILL.
const killGrace = 3 * time.Second

// CommandResult captures one subprocess invocation.
type CommandResult struct {
	ExitCode    int
	Stdout      string
	Stderr      string
	Duration    time.Duration
	TimedOut    bool
	Interrupted bool
}

// Success reports a clean zero exit.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut && !r.Interrupted
}

// Invoker runs the raps binary as a single-shot subprocess. Each call is
// bounded by a wall-clock timeout; there is no retry here.
type Invoker struct {
	// Binary is the raps executable. Resolved through PATH.
	Binary string

	logger *slog.Logger
}

// NewInvoker creates an Invoker for the given binary.
func NewInvoker(binary string, logger *slog.Logger) *Invoker {
	if binary == "" {
		binary = "raps"
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Invoker{Binary: binary, logger: logger}
}

// CheckBinary verifies the raps executable is reachable through PATH.
func (i *Invoker) CheckBinary() error {
	if _, err := exec.LookPath(i.Binary); err != nil {
		return errors.CommandSpawn(i.Binary, err)
	}
	return nil
}

// Invoke runs the binary with args and captures outputs. The process is
// terminated when the timeout elapses or ctx is cancelled (SIGTERM to the
// process group, then SIGKILL after a grace period). A non-zero exit is
// reported through the result, not the error; the error is reserved for
// spawn failures.
func (i *Invoker) Invoke(ctx context.Context, args []string, timeout time.Duration) (CommandResult, error) {
	// Not CommandContext - cancellation is handled manually to allow
	// graceful SIGTERM before SIGKILL.
	cmd := exec.Command(i.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Process group so the entire tree can be killed.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return CommandResult{ExitCode: -1}, errors.CommandSpawn(i.Binary, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	result := CommandResult{}

	select {
	case <-timer:
		i.killGroup(cmd, done)
		result.ExitCode = -1
		result.TimedOut = true

	case <-ctx.Done():
		i.killGroup(cmd, done)
		result.ExitCode = -1
		result.Interrupted = true

	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				result.ExitCode = exitErr.ExitCode()
			} else {
				result.ExitCode = -1
			}
		}
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Duration = time.Since(start)

	i.logger.Debug("raps invocation finished",
		"args", args,
		"exit_code", result.ExitCode,
		"timed_out", result.TimedOut,
		"duration", result.Duration)

	return result, nil
}

// killGroup terminates the process group, graceful first.
func (i *Invoker) killGroup(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)

	select {
	case <-done:
	case <-time.After(killGrace):
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
	}
}
