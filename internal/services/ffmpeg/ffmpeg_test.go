package ffmpeg_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"converteasy/internal/logging"
	"converteasy/internal/runner"
	"converteasy/internal/services/ffmpeg"
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

func TestConvertBuildsProfileArgs(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.mp3")

	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		if err := os.WriteFile(output, []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := ffmpeg.New("ffmpeg", fake, logging.NewNop())
	if err := cli.Convert(context.Background(), "/in/song.wav", output, "mp3"); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("calls = %d", len(fake.calls))
	}
	joined := strings.Join(fake.calls[0], " ")
	for _, fragment := range []string{"ffmpeg", "-y", "-i /in/song.wav", "-b:a 192k", "-ac 2", output} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("command %q missing %q", joined, fragment)
		}
	}
}

func TestConvertRejectsUnknownTarget(t *testing.T) {
	cli := ffmpeg.New("ffmpeg", &fakeRunner{}, logging.NewNop())
	if err := cli.Convert(context.Background(), "in.wav", "out.wma", "wma"); err == nil {
		t.Fatal("expected error for target without a profile")
	}
}

func TestConvertFailsOnNonZeroExit(t *testing.T) {
	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		return runner.Result{ExitCode: 1, Stderr: "unsupported codec"}, nil
	}}

	cli := ffmpeg.New("ffmpeg", fake, logging.NewNop())
	err := cli.Convert(context.Background(), "in.wav", "out.mp3", "mp3")
	if err == nil || !strings.Contains(err.Error(), "unsupported codec") {
		t.Fatalf("err = %v", err)
	}
}

func TestConvertFailsOnEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.flac")

	fake := &fakeRunner{invoke: func(_ string, _ []string) (runner.Result, error) {
		if err := os.WriteFile(output, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		return runner.Result{}, nil
	}}

	cli := ffmpeg.New("ffmpeg", fake, logging.NewNop())
	if err := cli.Convert(context.Background(), "in.wav", output, "flac"); err == nil {
		t.Fatal("expected error for empty output")
	}
}
