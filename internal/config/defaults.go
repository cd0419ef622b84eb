package config

// Default returns the built-in configuration values. A config file layers on
// top of these; anything left at zero after decoding is filled in by
// normalize.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:  "uploads",
			PublicDir:  "public",
			ProgramDir: "programs",
			LogDir:     "logs",
			APIBind:    "0.0.0.0:8080",
		},
		Server: Server{
			PublicBaseURL: "http://localhost:8080",
			MaxFileSizeMB: 100,
		},
		Tools: Tools{
			FFmpegBinary:  "ffmpeg",
			SofficeBinary: "soffice",
		},
		Conversion: Conversion{
			MaxConcurrent:             2,
			QueueDepth:                64,
			TimeoutSeconds:            300,
			PDFLargeThresholdMB:       20,
			RemoteFetchTimeoutSeconds: 60,
		},
		Cleanup: Cleanup{
			IntervalSeconds:     3600,
			TaskExpirySeconds:   24 * 60 * 60,
			UploadMaxAgeSeconds: 3600,
			PublicMaxAgeSeconds: 24 * 60 * 60,
		},
		RateLimit: RateLimit{
			Points:          120,
			DurationSeconds: 60,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
