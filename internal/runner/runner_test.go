package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("RUNNER_HELPER_MODE") {
	case "fail":
		fmt.Fprintln(os.Stderr, "something broke")
		os.Exit(3)
	case "slow":
		time.Sleep(5 * time.Second)
		os.Exit(0)
	default:
		fmt.Println("converted ok")
		os.Exit(0)
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("RUNNER_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestRunSuccess(t *testing.T) {
	setHelperCommand(t, "success")

	result, err := NewExec(10*time.Second).Run(context.Background(), "converter", "-i", "a", "-o", "b")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Success() {
		t.Fatalf("result = %+v", result)
	}
	if result.Stdout == "" {
		t.Fatal("expected captured stdout")
	}
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	setHelperCommand(t, "fail")

	result, err := NewExec(10*time.Second).Run(context.Background(), "converter")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Success() || result.ExitCode != 3 {
		t.Fatalf("result = %+v", result)
	}
	reason := result.FailureReason()
	if reason != "exit code 3: something broke" {
		t.Fatalf("FailureReason = %q", reason)
	}
}

func TestRunTimeout(t *testing.T) {
	setHelperCommand(t, "slow")

	result, err := NewExec(100*time.Millisecond).Run(context.Background(), "converter")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !result.TimedOut || result.Success() {
		t.Fatalf("result = %+v", result)
	}
	if result.FailureReason() != "timed out" {
		t.Fatalf("FailureReason = %q", result.FailureReason())
	}
}

func TestValidateOutput(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "out.docx")
	if err := os.WriteFile(full, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateOutput(full); err != nil {
		t.Fatalf("ValidateOutput(full) = %v", err)
	}

	if err := ValidateOutput(filepath.Join(dir, "missing.docx")); err == nil {
		t.Fatal("missing output should fail validation")
	}

	empty := filepath.Join(dir, "empty.docx")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateOutput(empty); err == nil {
		t.Fatal("empty output should fail validation")
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Fatal("empty partial output should have been removed")
	}
}
