package installer

import (
	"fmt"
	"os/exec"
	"strings"
)

// ToolRequirement describes an external tool the installer depends on.
//
// This structure allows recipes to declare:
//   - Required tools (must be available)
//   - Optional tools (nice to have, but not required)
//   - Alternative tools (any one of several tools can satisfy the requirement)
//
// # Examples
//
// Required tool:
//
//	ToolRequirement{
//	    Name: "conda",
//	    Purpose: "environment manager",
//	}
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name: "make",
//	    Alternatives: []string{"gmake", "nmake"},
//	    Purpose: "build automation tool",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "conda", "git").
	Name string

	// Alternatives are alternative tool names that can satisfy this
	// requirement. If any tool in Alternatives is found, the requirement
	// is satisfied. Example: []string{"gmake", "nmake"}
	Alternatives []string

	// Optional indicates this tool won't cause an error if missing.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// CheckToolAvailable checks if a tool is available in the system PATH.
//
// Returns nil if the tool is found, or an error naming the missing tool.
func CheckToolAvailable(tool string) error {
	_, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available.
//
// Behavior:
//   - Checks the primary tool name first
//   - If not found, tries each alternative tool in order
//   - Optional tools are checked but don't cause errors
//   - Returns all missing required tools in a single error
//
// Error format for a single missing tool:
//
//	conda (environment manager) not found in PATH
//
// For multiple missing tools:
//
//	missing required tools: conda (environment manager), git (source checkout)
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil

		if !found && len(req.Alternatives) > 0 {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(alt) == nil {
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}
