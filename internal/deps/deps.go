// Package deps reports the availability of the external tools fieldkit
// shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"fieldkit/internal/config"
)

// Requirement defines an external dependency fieldkit relies on.
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

// Requirements returns the external binaries the configured installation
// needs. FFmpeg drives capture and compression; ffprobe inspects incoming
// media. Both degrade to reduced functionality when missing, so they are
// optional for a store-and-forward only deployment.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Records and compresses audio and video evidence",
			Optional:    true,
		},
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Inspects media metadata before compression",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkOne(req))
	}
	return results
}

func checkOne(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	switch {
	case cmd == "":
		status.Detail = "command not configured"
	case !onPath(cmd):
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
	default:
		status.Available = true
	}
	return status
}

func onPath(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
