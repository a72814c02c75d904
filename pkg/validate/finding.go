// Package validate checks a command plan for syntax problems, risky
// operations, internal conflicts, and conflicts with a device's current
// configuration. Validation produces findings and records per-command
// risk classifications on the plan; it never touches a device.
package validate

import (
	"fmt"
	"strings"

	"github.com/config-genie/genie/pkg/plan"
)

// Finding is one validation result for a command or command pair.
// Findings gate execution; they never mutate the plan.
type Finding struct {
	Severity plan.Severity `json:"severity"`
	// Check names the rule that produced the finding, e.g. "risky_command".
	Check   string `json:"check"`
	Message string `json:"message"`
	// Commands holds the indexes of the offending plan commands.
	Commands       []int  `json:"commands,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(f.Severity.String()), f.Check, f.Message)
}

// MaxSeverity returns the highest severity across findings, or
// SeverityLow for an empty list.
func MaxSeverity(findings []Finding) plan.Severity {
	max := plan.SeverityLow
	for _, f := range findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}

// HasBlocking reports whether any finding is Critical.
func HasBlocking(findings []Finding) bool {
	return MaxSeverity(findings) >= plan.SeverityCritical
}

// CountBySeverity returns the number of findings at each severity.
func CountBySeverity(findings []Finding) map[plan.Severity]int {
	counts := make(map[plan.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
