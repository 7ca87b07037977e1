// Package prerequisites checks that the host tools the upgrade drives are
// installed on the target host.
package prerequisites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/dockshift/internal/runner"
)

// Tool represents a host tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// Package names the RHEL package that provides the tool.
	Package string
}

// DefaultTools returns the tools every upgrade needs.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "rpm",
			Required:    true,
			Description: "Required for querying and installing packages",
			Package:     "rpm",
		},
		{
			Name:        "systemctl",
			Required:    true,
			Description: "Required for stopping and starting services",
			Package:     "systemd",
		},
	}
}

// RepoTools returns the additional tools the repo strategy needs.
func RepoTools() []Tool {
	return []Tool{
		{
			Name:        "dnf",
			Required:    true,
			Description: "Required for the local-repository package transition",
			Package:     "dnf",
		},
	}
}

// OptionalTools returns tools whose absence degrades a check to a warning.
func OptionalTools() []Tool {
	return []Tool{
		{
			Name:        "docker",
			Description: "Used for backup listings, cluster handling and verification",
			Package:     "docker-ce-cli",
		},
		{
			Name:        "containerd",
			Description: "Used for configuration migration",
			Package:     "containerd.io",
		},
		{
			Name:        "xfs_info",
			Description: "Used to check the ftype flag of xfs data roots",
			Package:     "xfsprogs",
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (package %s)", tool.Name, tool.Package))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are on the PATH of the host
// behind r. A lookup that fails for reasons other than absence is
// returned as an error.
func Check(ctx context.Context, r runner.Runner, tools []Tool) (*CheckResults, error) {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		res, err := r.Run(ctx, runner.Cmd("sh", "-c", "command -v "+tool.Name))
		var exitErr *runner.ExitError
		switch {
		case err == nil:
			result.Found = true
			result.Path = strings.TrimSpace(res.Stdout)
		case errors.As(err, &exitErr):
			results.Missing = append(results.Missing, tool)
		default:
			return nil, fmt.Errorf("failed to look up %s: %w", tool.Name, err)
		}

		results.Results = append(results.Results, result)
	}

	return results, nil
}
