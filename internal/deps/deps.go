// Package deps reports the availability of the external tools conversions
// depend on. Checked at startup and surfaced through the status endpoint.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"converteasy/internal/config"
	"converteasy/internal/registry"
)

// Requirement defines an external dependency the daemon relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements builds the dependency list for a configuration. Tool binaries
// are optional: each one missing only disables its category.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "ffmpeg",
			Command:     cfg.Tools.FFmpegBinary,
			Description: "audio transcoding",
			Optional:    true,
		},
		{
			Name:        "soffice",
			Command:     cfg.Tools.SofficeBinary,
			Description: "document suite conversions",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckPrograms reports which bundled programs back the document and image
// tables, using the registry's installed-program view.
func CheckPrograms(reg *registry.Registry) []Status {
	seen := make(map[string]struct{})
	var results []Status

	add := func(program, description string) {
		if _, ok := seen[program]; ok {
			return
		}
		seen[program] = struct{}{}
		status := Status{
			Name:        program,
			Command:     reg.ProgramPath(program),
			Description: description,
			Optional:    true,
			Available:   reg.ProgramInstalled(program),
		}
		if !status.Available {
			status.Detail = "program not installed"
		}
		results = append(results, status)
	}

	for _, program := range registry.BundledPrograms() {
		add(program, "bundled document converter")
	}
	add(registry.ImageProgram, "image conversions")
	return results
}
