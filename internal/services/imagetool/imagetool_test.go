package imagetool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/runner"
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

func setPageCount(t *testing.T, pages int) {
	t.Helper()
	original := pageCountFile
	pageCountFile = func(string) (int, error) { return pages, nil }
	t.Cleanup(func() { pageCountFile = original })
}

func TestConvertImageToImage(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.png")

	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		if err := os.WriteFile(output, []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := New(registry.New(t.TempDir()), fake, logging.NewNop())
	got, err := cli.Convert(context.Background(), "/in/photo.jpg", output, "png")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if got != output {
		t.Fatalf("produced = %q, want %q", got, output)
	}

	joined := strings.Join(fake.calls[0], " ")
	for _, fragment := range []string{"-i /in/photo.jpg", "-o " + output, "-t png"} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("command %q missing %q", joined, fragment)
		}
	}
}

func TestConvertSinglePagePDFKeepsExtension(t *testing.T) {
	setPageCount(t, 1)
	output := filepath.Join(t.TempDir(), "out.png")

	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		if err := os.WriteFile(output, []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := New(registry.New(t.TempDir()), fake, logging.NewNop())
	got, err := cli.Convert(context.Background(), "/in/scan.pdf", output, "png")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if got != output {
		t.Fatalf("produced = %q, want %q", got, output)
	}
}

func TestConvertMultiPagePDFOverridesToZip(t *testing.T) {
	setPageCount(t, 4)
	dir := t.TempDir()
	output := filepath.Join(dir, "out.png")
	wantZip := filepath.Join(dir, "out.zip")

	fake := &fakeRunner{invoke: func(_ string, args []string) (runner.Result, error) {
		if err := os.WriteFile(wantZip, []byte("PK"), 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := New(registry.New(t.TempDir()), fake, logging.NewNop())
	got, err := cli.Convert(context.Background(), "/in/slides.pdf", output, "png")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if got != wantZip {
		t.Fatalf("produced = %q, want zip override %q", got, wantZip)
	}

	joined := strings.Join(fake.calls[0], " ")
	if !strings.Contains(joined, "-o "+wantZip) {
		t.Fatalf("program was not pointed at the zip path: %q", joined)
	}
}

func TestReplaceExt(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"photo_2608281305.png", "photo_2608281305.zip"},
		{"/srv/public/photo_2608281305.png", "/srv/public/photo_2608281305.zip"},
		{"/srv/out.v2/photo", "/srv/out.v2/photo.zip"},
		{"photo", "photo.zip"},
	}
	for _, tc := range cases {
		if got := replaceExt(tc.path, "zip"); got != tc.want {
			t.Errorf("replaceExt(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestConvertFailsOnNonZeroExit(t *testing.T) {
	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		return runner.Result{ExitCode: 1, Stderr: "[ERROR] Conversion failed"}, nil
	}}

	cli := New(registry.New(t.TempDir()), fake, logging.NewNop())
	if _, err := cli.Convert(context.Background(), "/in/photo.jpg", "out.png", "png"); err == nil {
		t.Fatal("expected error on non-zero exit")
	}
}
