package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.UploadDir == c.Paths.PublicDir {
		problems = append(problems, "upload_dir and public_dir must differ")
	}
	if parsed, err := url.Parse(c.Server.PublicBaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, fmt.Sprintf("public_base_url %q is not an absolute URL", c.Server.PublicBaseURL))
	}
	if c.Conversion.MaxConcurrent > 64 {
		problems = append(problems, "conversion.max_concurrent exceeds sane bound (64)")
	}
	if host := strings.TrimSpace(c.Paths.APIBind); host != "" && !strings.Contains(host, ":") {
		problems = append(problems, fmt.Sprintf("api_bind %q must be host:port", host))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
