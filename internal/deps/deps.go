// Package deps reports the availability of the external tools the pipeline
// shells out to.
package deps

import (
	"fmt"
	"strings"

	"vibecast/internal/config"
	"vibecast/internal/tools"
)

// Requirement defines an external dependency vibecast relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the tool list from the configured binary names.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Clip assembly and video composition"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Media inspection and duration measurement"},
		{Name: "Mermaid CLI", Command: cfg.Tools.Mermaid, Description: "Diagram rendering"},
		{Name: "Chromium", Command: cfg.Tools.Chromium, Description: "Slide capture and animated recording", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(runner tools.Runner, requirements []Requirement) []Status {
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
		resolved, err := runner.Look(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// AllRequiredAvailable reports whether every non-optional tool resolved.
func AllRequiredAvailable(statuses []Status) bool {
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			return false
		}
	}
	return true
}
