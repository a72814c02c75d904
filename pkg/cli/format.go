// Package cli provides shared terminal formatting for the genie CLI:
// ANSI colors, severity and state rendering, and aligned tables.
package cli

import (
	"os"
	"strings"

	"github.com/config-genie/genie/pkg/engine"
	"github.com/config-genie/genie/pkg/plan"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// Dim wraps s in ANSI dim. Returns s unchanged when NO_COLOR is set.
func Dim(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}

// FormatSeverity renders a severity colored by weight: critical and
// high in red, medium in yellow, low dimmed.
func FormatSeverity(s plan.Severity) string {
	name := strings.ToUpper(s.String())
	switch s {
	case plan.SeverityCritical, plan.SeverityHigh:
		return Red(name)
	case plan.SeverityMedium:
		return Yellow(name)
	default:
		return Dim(name)
	}
}

// FormatState renders a session state: committed/rolled back green,
// in-flight states plain, everything that went wrong red.
func FormatState(s engine.SessionState) string {
	name := s.String()
	switch s {
	case engine.StateCommitted, engine.StateRolledBack:
		return Green(name)
	case engine.StateFailed, engine.StateAborted, engine.StateRollbackFailed:
		return Red(name)
	default:
		return name
	}
}

// FormatStatus renders a run's global status.
func FormatStatus(s engine.GlobalStatus) string {
	switch s {
	case engine.StatusCompleted:
		return Green(string(s))
	case engine.StatusPartiallyRolledBack:
		return Yellow(string(s))
	default:
		return Red(string(s))
	}
}

// DotPad pads name with dots to the given width.
// Example: DotPad("core-sw1", 30) → "core-sw1 ....................."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}
