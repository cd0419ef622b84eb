// Package bundled invokes the converter programs shipped alongside the
// daemon. Every program follows the same contract: program -i <input>
// -o <output>, exit 0, non-empty file at the output path.
package bundled

import (
	"context"
	"fmt"
	"log/slog"

	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/runner"
)

// Client invokes bundled converter programs by name.
type Client struct {
	reg    *registry.Registry
	run    runner.Runner
	logger *slog.Logger
}

// New builds a bundled-program client over the given runner.
func New(reg *registry.Registry, run runner.Runner, logger *slog.Logger) *Client {
	return &Client{
		reg:    reg,
		run:    run,
		logger: logging.NewComponentLogger(logger, "bundled"),
	}
}

// Convert runs one bundled program against inputPath, expecting it to leave
// a non-empty artifact at outputPath. Extra flags are appended after the
// standard input/output arguments.
func (c *Client) Convert(ctx context.Context, program, inputPath, outputPath string, extraArgs ...string) error {
	args := []string{"-i", inputPath, "-o", outputPath}
	args = append(args, extraArgs...)

	c.logger.Debug("running bundled program",
		logging.String("program", program),
		logging.String("input", inputPath),
	)

	result, err := c.run.Run(ctx, c.reg.ProgramPath(program), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", program, err)
	}
	if !result.Success() {
		return fmt.Errorf("%s: %s", program, result.FailureReason())
	}
	return runner.ValidateOutput(outputPath)
}
