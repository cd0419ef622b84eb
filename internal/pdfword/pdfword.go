// Package pdfword converts PDF sources to Word through an ordered chain of
// extractor programs. The chain order depends on input size, and a slide-deck
// source detected from page geometry switches the extractors into a
// presentation-aware mode.
package pdfword

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/runner"
	"converteasy/internal/services/bundled"
)

// pageDimsFile is swapped in tests to avoid real PDF fixtures.
var pageDimsFile = api.PageDimsFile

type extractor struct {
	name    string
	program string
}

var (
	layoutExtractor = extractor{name: "layout", program: "pdf_to_doc"}
	streamExtractor = extractor{name: "stream", program: "pdf_to_doc_stream"}
	tablesExtractor = extractor{name: "tables", program: "pdf_to_doc_tables"}
)

// Converter drives the PDF-to-Word extractor chain.
type Converter struct {
	bundled        *bundled.Client
	reg            *registry.Registry
	largeThreshold int64
	logger         *slog.Logger
}

// New builds a converter. largeThreshold is the input size in bytes above
// which the layout-aware extractor runs first.
func New(bundledClient *bundled.Client, reg *registry.Registry, largeThreshold int64, logger *slog.Logger) *Converter {
	return &Converter{
		bundled:        bundledClient,
		reg:            reg,
		largeThreshold: largeThreshold,
		logger:         logging.NewComponentLogger(logger, "pdfword"),
	}
}

// Convert runs the extractor chain until one leaves a valid artifact at
// outputPath. Each attempt is independent; a failed attempt's partial output
// is removed before the next extractor runs.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	chain := []extractor{streamExtractor, layoutExtractor, tablesExtractor}
	if info.Size() >= c.largeThreshold {
		chain = []extractor{layoutExtractor, streamExtractor, tablesExtractor}
	}

	var extraArgs []string
	if c.isSlideDeck(inputPath) {
		extraArgs = append(extraArgs, "--slides")
	}

	var failures []string
	for _, ext := range chain {
		if !c.reg.ProgramInstalled(ext.program) {
			continue
		}

		c.logger.Info("attempting pdf extraction",
			logging.String(logging.FieldStrategy, ext.name),
			logging.String("program", ext.program),
		)

		err := c.bundled.Convert(ctx, ext.program, inputPath, outputPath, extraArgs...)
		if err == nil {
			return nil
		}
		removeInvalidOutput(outputPath)
		failures = append(failures, fmt.Sprintf("%s: %v", ext.name, err))

		c.logger.Warn("pdf extraction attempt failed",
			logging.String(logging.FieldStrategy, ext.name),
			logging.Error(err),
		)
	}

	if len(failures) == 0 {
		return fmt.Errorf("no pdf extractor installed")
	}
	return fmt.Errorf("all pdf extractors failed: %s", strings.Join(failures, "; "))
}

// isSlideDeck probes the first page's aspect ratio. Ratios near 16:9 or 4:3
// mark the source as an exported presentation; the extractors then treat
// top-band text as slide titles.
func (c *Converter) isSlideDeck(inputPath string) bool {
	dims, err := pageDimsFile(inputPath)
	if err != nil || len(dims) == 0 {
		return false
	}
	return slideAspect(dims[0])
}

func slideAspect(dim types.Dim) bool {
	if dim.Height <= 0 {
		return false
	}
	ratio := dim.Width / dim.Height
	return (ratio > 1.7 && ratio < 1.8) || (ratio > 1.3 && ratio < 1.4)
}

// removeInvalidOutput clears whatever a failed attempt left behind so the
// next extractor starts clean. Empty files are already gone via output
// validation; this catches non-empty garbage.
func removeInvalidOutput(path string) {
	if err := runner.ValidateOutput(path); err == nil {
		_ = os.Remove(path)
	}
}
