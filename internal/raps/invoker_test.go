package raps

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/raps-stack/rapsflow/internal/logging"
)

// The invoker is exercised against /bin/sh so process-group termination
// and output capture run against a real subprocess.

func shInvoker(t *testing.T) *Invoker {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	return NewInvoker("/bin/sh", logging.NewForTest())
}

func TestInvokeSuccess(t *testing.T) {
	inv := shInvoker(t)

	res, err := inv.Invoke(context.Background(), []string{"-c", "echo hello; echo oops >&2"}, 5*time.Second)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if !res.Success() {
		t.Fatalf("expected success, got exit %d", res.ExitCode)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if res.Stderr != "oops\n" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestInvokeNonZeroExit(t *testing.T) {
	inv := shInvoker(t)

	res, err := inv.Invoke(context.Background(), []string{"-c", "exit 7"}, 5*time.Second)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if res.Success() {
		t.Error("exit 7 should not be success")
	}
	if res.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", res.ExitCode)
	}
}

func TestInvokeTimeout(t *testing.T) {
	inv := shInvoker(t)

	start := time.Now()
	res, err := inv.Invoke(context.Background(), []string{"-c", "sleep 30"}, 200*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if res.Success() {
		t.Error("timed out command must not be success")
	}
	// Bounded by the timeout plus the SIGTERM grace period, with slack.
	if elapsed > 10*time.Second {
		t.Errorf("invocation took %s, expected prompt termination", elapsed)
	}
}

func TestInvokeCancellation(t *testing.T) {
	inv := shInvoker(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := inv.Invoke(ctx, []string{"-c", "sleep 30"}, time.Minute)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if !res.Interrupted {
		t.Error("expected Interrupted")
	}
	if res.TimedOut {
		t.Error("cancellation should not report a timeout")
	}
}

func TestInvokeSpawnFailure(t *testing.T) {
	inv := NewInvoker("/nonexistent/raps-binary", logging.NewForTest())

	_, err := inv.Invoke(context.Background(), []string{"auth", "status"}, time.Second)
	if err == nil {
		t.Fatal("expected spawn error")
	}
}

func TestCheckBinary(t *testing.T) {
	if err := shInvoker(t).CheckBinary(); err != nil {
		t.Errorf("CheckBinary(/bin/sh) error: %v", err)
	}
	if err := NewInvoker("definitely-not-a-real-binary", logging.NewForTest()).CheckBinary(); err == nil {
		t.Error("CheckBinary should fail for a missing binary")
	}
}
