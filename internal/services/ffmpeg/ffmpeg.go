// Package ffmpeg wraps the media transcoder for audio conversions. Each
// target format carries a fixed parameter profile; there is no per-request
// tuning and no fallback.
package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"

	"converteasy/internal/logging"
	"converteasy/internal/runner"
)

// profiles holds the transcode parameters per target format.
var profiles = map[string][]string{
	"mp3":  {"-b:a", "192k", "-ac", "2"},
	"wav":  {"-c:a", "pcm_s16le", "-ac", "2"},
	"aac":  {"-b:a", "128k", "-ac", "2"},
	"flac": {"-c:a", "flac", "-compression_level", "5"},
	"ogg":  {"-c:a", "libvorbis", "-qscale:a", "5"},
	"m4a":  {"-c:a", "aac", "-b:a", "128k", "-ac", "2"},
}

// Client invokes the transcoder binary.
type Client struct {
	binary string
	run    runner.Runner
	logger *slog.Logger
}

// New builds a transcoder client over the given runner.
func New(binary string, run runner.Runner, logger *slog.Logger) *Client {
	return &Client{
		binary: binary,
		run:    run,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// Convert transcodes inputPath into outputPath using the profile for
// targetFormat. One attempt; any failure is final.
func (c *Client) Convert(ctx context.Context, inputPath, outputPath, targetFormat string) error {
	profile, ok := profiles[targetFormat]
	if !ok {
		return fmt.Errorf("no transcode profile for %q", targetFormat)
	}

	args := []string{"-y", "-i", inputPath}
	args = append(args, profile...)
	args = append(args, outputPath)

	c.logger.Debug("transcoding audio",
		logging.String("input", inputPath),
		logging.String("target", targetFormat),
	)

	result, err := c.run.Run(ctx, c.binary, args...)
	if err != nil {
		return fmt.Errorf("transcode to %s: %w", targetFormat, err)
	}
	if !result.Success() {
		return fmt.Errorf("transcode to %s: %s", targetFormat, result.FailureReason())
	}
	return runner.ValidateOutput(outputPath)
}

// SupportedTargets lists the formats a profile exists for.
func SupportedTargets() []string {
	targets := make([]string, 0, len(profiles))
	for target := range profiles {
		targets = append(targets, target)
	}
	return targets
}
