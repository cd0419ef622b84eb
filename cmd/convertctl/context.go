package main

import (
	"fmt"
	"net"
	"strings"

	"converteasy/internal/config"
)

// commandContext resolves the daemon base URL lazily so commands that never
// touch the API do not require a readable configuration file.
type commandContext struct {
	serverFlag *string
	configFlag *string

	resolved string
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{serverFlag: serverFlag, configFlag: configFlag}
}

// baseURL returns the daemon API address. An explicit --server flag wins;
// otherwise the configured bind address is turned into a loopback URL.
func (c *commandContext) baseURL() string {
	if c.serverFlag != nil {
		if server := strings.TrimSpace(*c.serverFlag); server != "" {
			return strings.TrimRight(server, "/")
		}
	}
	if c.resolved != "" {
		return c.resolved
	}

	configPath := ""
	if c.configFlag != nil {
		configPath = strings.TrimSpace(*c.configFlag)
	}

	c.resolved = "http://localhost:8080"
	if cfg, _, _, err := config.Load(configPath); err == nil {
		if _, port, err := net.SplitHostPort(strings.TrimSpace(cfg.Paths.APIBind)); err == nil && port != "" {
			c.resolved = fmt.Sprintf("http://127.0.0.1:%s", port)
		}
	}
	return c.resolved
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.baseURL())
}
