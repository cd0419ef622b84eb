package soffice_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"converteasy/internal/logging"
	"converteasy/internal/runner"
	"converteasy/internal/services/soffice"
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

func TestConvertReturnsProducedFile(t *testing.T) {
	outDir := t.TempDir()
	produced := filepath.Join(outDir, "report.pdf")

	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		if err := os.WriteFile(produced, []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := soffice.New("soffice", fake, logging.NewNop())
	got, err := cli.Convert(context.Background(), "/in/report.docx", outDir, "pdf")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if got != produced {
		t.Fatalf("produced = %q, want %q", got, produced)
	}

	joined := strings.Join(fake.calls[0], " ")
	for _, fragment := range []string{"--headless", "--convert-to pdf", "--outdir " + outDir, "/in/report.docx"} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("command %q missing %q", joined, fragment)
		}
	}
}

func TestConvertPicksNewestCandidate(t *testing.T) {
	outDir := t.TempDir()
	older := filepath.Join(outDir, "stale.pdf")
	newer := filepath.Join(outDir, "fresh.pdf")

	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		if err := os.WriteFile(older, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		past := time.Now().Add(-time.Hour)
		if err := os.Chtimes(older, past, past); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(newer, []byte("new"), 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := soffice.New("soffice", fake, logging.NewNop())
	got, err := cli.Convert(context.Background(), "/in/doc.docx", outDir, "pdf")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if got != newer {
		t.Fatalf("produced = %q, want newest %q", got, newer)
	}
}

func TestConvertFailsWhenNothingProduced(t *testing.T) {
	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		return runner.Result{}, nil
	}}

	cli := soffice.New("soffice", fake, logging.NewNop())
	if _, err := cli.Convert(context.Background(), "/in/doc.docx", t.TempDir(), "pdf"); err == nil {
		t.Fatal("expected error when the suite produced no output")
	}
}

func TestConvertFailsOnNonZeroExit(t *testing.T) {
	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		return runner.Result{ExitCode: 77, Stderr: "source file could not be loaded"}, nil
	}}

	cli := soffice.New("soffice", fake, logging.NewNop())
	_, err := cli.Convert(context.Background(), "/in/doc.docx", t.TempDir(), "pdf")
	if err == nil || !strings.Contains(err.Error(), "could not be loaded") {
		t.Fatalf("err = %v", err)
	}
}
