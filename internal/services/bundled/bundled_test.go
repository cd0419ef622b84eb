package bundled_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/runner"
	"converteasy/internal/services/bundled"
)

type fakeRunner struct {
	calls  [][]string
	invoke func(binary string, args []string) (runner.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, binary string, args ...string) (runner.Result, error) {
	call := append([]string{binary}, args...)
	f.calls = append(f.calls, call)
	return f.invoke(binary, args)
}

func TestConvertInvokesProgramContract(t *testing.T) {
	programDir := t.TempDir()
	workDir := t.TempDir()
	output := filepath.Join(workDir, "out.docx")

	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		if err := os.WriteFile(output, []byte("docx"), 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := bundled.New(registry.New(programDir), fake, logging.NewNop())
	err := cli.Convert(context.Background(), "pdf_to_doc", "/in/file.pdf", output, "--slides")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	joined := strings.Join(fake.calls[0], " ")
	wantBinary := filepath.Join(programDir, "pdf_to_doc")
	for _, fragment := range []string{wantBinary, "-i /in/file.pdf", "-o " + output, "--slides"} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("command %q missing %q", joined, fragment)
		}
	}
}

func TestConvertFailsOnNonZeroExit(t *testing.T) {
	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		return runner.Result{ExitCode: 1, Stderr: "[ERROR] extraction failed"}, nil
	}}

	cli := bundled.New(registry.New(t.TempDir()), fake, logging.NewNop())
	err := cli.Convert(context.Background(), "pdf_to_txt", "in.pdf", "out.txt")
	if err == nil || !strings.Contains(err.Error(), "extraction failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestConvertFailsWithoutOutput(t *testing.T) {
	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		return runner.Result{}, nil
	}}

	cli := bundled.New(registry.New(t.TempDir()), fake, logging.NewNop())
	output := filepath.Join(t.TempDir(), "out.txt")
	if err := cli.Convert(context.Background(), "pdf_to_txt", "in.pdf", output); err == nil {
		t.Fatal("expected error when the program left no output")
	}
}
