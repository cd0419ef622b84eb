// Package imagetool wraps the image-processing program. PDF-source input is
// special-cased: a single page converts to one image, while a multi-page
// source is packaged into a zip archive and the task's output extension is
// overridden to match.
package imagetool

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/runner"
)

// pageCountFile is swapped in tests to avoid needing real PDF fixtures.
var pageCountFile = api.PageCountFile

// Client invokes the image-processing program.
type Client struct {
	reg    *registry.Registry
	run    runner.Runner
	logger *slog.Logger
}

// New builds an image tool client over the given runner.
func New(reg *registry.Registry, run runner.Runner, logger *slog.Logger) *Client {
	return &Client{
		reg:    reg,
		run:    run,
		logger: logging.NewComponentLogger(logger, "imagetool"),
	}
}

// Convert converts inputPath into targetFormat and returns the path of the
// produced artifact. The returned path differs from outputPath only when a
// multi-page PDF source forces the zip override.
func (c *Client) Convert(ctx context.Context, inputPath, outputPath, targetFormat string) (string, error) {
	finalOutput := outputPath
	if strings.HasSuffix(strings.ToLower(inputPath), ".pdf") && targetFormat != "pdf" {
		pages, err := pageCountFile(inputPath)
		if err != nil {
			return "", fmt.Errorf("probe pdf page count: %w", err)
		}
		if pages > 1 {
			finalOutput = replaceExt(outputPath, "zip")
			c.logger.Info("multi-page pdf source, packaging pages into archive",
				logging.Int("pages", pages),
				logging.String("output", finalOutput),
			)
		}
	}

	result, err := c.run.Run(ctx, c.reg.ProgramPath(registry.ImageProgram),
		"-i", inputPath, "-o", finalOutput, "-t", targetFormat)
	if err != nil {
		return "", fmt.Errorf("image convert to %s: %w", targetFormat, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("image convert to %s: %s", targetFormat, result.FailureReason())
	}
	if err := runner.ValidateOutput(finalOutput); err != nil {
		return "", fmt.Errorf("image convert to %s: %w", targetFormat, err)
	}
	return finalOutput, nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}
