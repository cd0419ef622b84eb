package config

import "strings"

// normalize expands path fields and backfills zero values with defaults so the
// rest of the code never has to guard against partial configs.
func (c *Config) normalize() error {
	defaults := Default()

	for _, field := range []*string{
		&c.Paths.UploadDir,
		&c.Paths.PublicDir,
		&c.Paths.ProgramDir,
		&c.Paths.LogDir,
	} {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		expanded, err := expandPath(defaults.Paths.UploadDir)
		if err != nil {
			return err
		}
		c.Paths.UploadDir = expanded
	}
	if strings.TrimSpace(c.Paths.PublicDir) == "" {
		expanded, err := expandPath(defaults.Paths.PublicDir)
		if err != nil {
			return err
		}
		c.Paths.PublicDir = expanded
	}
	if strings.TrimSpace(c.Paths.ProgramDir) == "" {
		expanded, err := expandPath(defaults.Paths.ProgramDir)
		if err != nil {
			return err
		}
		c.Paths.ProgramDir = expanded
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		expanded, err := expandPath(defaults.Paths.LogDir)
		if err != nil {
			return err
		}
		c.Paths.LogDir = expanded
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		c.Paths.APIBind = defaults.Paths.APIBind
	}

	c.Server.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicBaseURL), "/")
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = defaults.Server.PublicBaseURL
	}
	if c.Server.MaxFileSizeMB <= 0 {
		c.Server.MaxFileSizeMB = defaults.Server.MaxFileSizeMB
	}

	if strings.TrimSpace(c.Tools.FFmpegBinary) == "" {
		c.Tools.FFmpegBinary = defaults.Tools.FFmpegBinary
	}
	if strings.TrimSpace(c.Tools.SofficeBinary) == "" {
		c.Tools.SofficeBinary = defaults.Tools.SofficeBinary
	}

	if c.Conversion.MaxConcurrent <= 0 {
		c.Conversion.MaxConcurrent = defaults.Conversion.MaxConcurrent
	}
	if c.Conversion.QueueDepth <= 0 {
		c.Conversion.QueueDepth = defaults.Conversion.QueueDepth
	}
	if c.Conversion.TimeoutSeconds <= 0 {
		c.Conversion.TimeoutSeconds = defaults.Conversion.TimeoutSeconds
	}
	if c.Conversion.PDFLargeThresholdMB <= 0 {
		c.Conversion.PDFLargeThresholdMB = defaults.Conversion.PDFLargeThresholdMB
	}
	if c.Conversion.RemoteFetchTimeoutSeconds <= 0 {
		c.Conversion.RemoteFetchTimeoutSeconds = defaults.Conversion.RemoteFetchTimeoutSeconds
	}

	if c.Cleanup.IntervalSeconds <= 0 {
		c.Cleanup.IntervalSeconds = defaults.Cleanup.IntervalSeconds
	}
	if c.Cleanup.TaskExpirySeconds <= 0 {
		c.Cleanup.TaskExpirySeconds = defaults.Cleanup.TaskExpirySeconds
	}
	if c.Cleanup.UploadMaxAgeSeconds <= 0 {
		c.Cleanup.UploadMaxAgeSeconds = defaults.Cleanup.UploadMaxAgeSeconds
	}
	if c.Cleanup.PublicMaxAgeSeconds <= 0 {
		c.Cleanup.PublicMaxAgeSeconds = defaults.Cleanup.PublicMaxAgeSeconds
	}

	if c.RateLimit.Points <= 0 {
		c.RateLimit.Points = defaults.RateLimit.Points
	}
	if c.RateLimit.DurationSeconds <= 0 {
		c.RateLimit.DurationSeconds = defaults.RateLimit.DurationSeconds
	}

	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}

	return nil
}
