package main

import (
	"log/slog"
	"path/filepath"

	"converteasy/internal/config"
	"converteasy/internal/deps"
	"converteasy/internal/dispatcher"
	"converteasy/internal/logging"
	"converteasy/internal/pdfword"
	"converteasy/internal/registry"
	"converteasy/internal/runner"
	"converteasy/internal/services/bundled"
	"converteasy/internal/services/ffmpeg"
	"converteasy/internal/services/imagetool"
	"converteasy/internal/services/soffice"
)

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stdout",
			filepath.Join(cfg.Paths.LogDir, "converteasyd.log"),
		},
	})
}

func buildBackends(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) dispatcher.Backends {
	run := runner.NewExec(cfg.ConversionTimeout())
	bundledClient := bundled.New(reg, run, logger)

	return dispatcher.Backends{
		Transcoder: ffmpeg.New(cfg.Tools.FFmpegBinary, run, logger),
		Suite:      soffice.New(cfg.Tools.SofficeBinary, run, logger),
		Bundled:    bundledClient,
		ImageTool:  imagetool.New(reg, run, logger),
		PDFWord:    pdfword.New(bundledClient, reg, cfg.PDFLargeThresholdBytes(), logger),
	}
}

// reportDependencies logs the availability of every external tool once at
// startup so a misconfigured host is visible before the first conversion.
func reportDependencies(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) {
	log := logging.NewComponentLogger(logger, "deps")
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	statuses = append(statuses, deps.CheckPrograms(reg)...)
	for _, status := range statuses {
		if status.Available {
			log.Info("dependency available",
				logging.String("name", status.Name),
				logging.String("command", status.Command),
			)
			continue
		}
		log.Warn("dependency missing",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "conversions needing it will fail"),
		)
	}
}
