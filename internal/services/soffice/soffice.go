// Package soffice wraps the document suite's headless conversion mode. The
// suite names its own output file, so Convert returns the path it actually
// produced and the caller reconciles it with the addressed output path.
package soffice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"converteasy/internal/logging"
	"converteasy/internal/runner"
)

// Client invokes the document suite binary.
type Client struct {
	binary string
	run    runner.Runner
	logger *slog.Logger
}

// New builds a document suite client over the given runner.
func New(binary string, run runner.Runner, logger *slog.Logger) *Client {
	return &Client{
		binary: binary,
		run:    run,
		logger: logging.NewComponentLogger(logger, "soffice"),
	}
}

// Convert converts inputPath to targetFormat inside outDir and returns the
// produced file. The suite computes its own output filename; when more than
// one candidate exists the newest by modification time wins.
func (c *Client) Convert(ctx context.Context, inputPath, outDir, targetFormat string) (string, error) {
	args := []string{
		"--headless",
		"--norestore",
		"--convert-to", targetFormat,
		"--outdir", outDir,
		inputPath,
	}

	c.logger.Debug("converting document",
		logging.String("input", inputPath),
		logging.String("target", targetFormat),
	)

	result, err := c.run.Run(ctx, c.binary, args...)
	if err != nil {
		return "", fmt.Errorf("document suite convert to %s: %w", targetFormat, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("document suite convert to %s: %s", targetFormat, result.FailureReason())
	}

	produced, err := newestWithExt(outDir, targetFormat)
	if err != nil {
		return "", fmt.Errorf("document suite convert to %s: %w", targetFormat, err)
	}
	if err := runner.ValidateOutput(produced); err != nil {
		return "", fmt.Errorf("document suite convert to %s: %w", targetFormat, err)
	}
	return produced, nil
}

// newestWithExt finds the most recently modified *.ext file in dir.
func newestWithExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}

	suffix := "." + strings.ToLower(ext)
	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no %s output produced in %s", suffix, dir)
	}
	return newest, nil
}
