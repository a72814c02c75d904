// Package plan models the ordered, validated command set for one logical
// change, and derives the inverse command sequence used for rollback.
package plan

import (
	"fmt"
	"strings"
)

// Severity classifies the risk of a command or finding.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses a severity name.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity: %q", s)
}

// CommandKind distinguishes how a command entered the plan.
type CommandKind string

const (
	// KindLiteral is an ad hoc command supplied verbatim.
	KindLiteral CommandKind = "literal"
	// KindRendered is a command produced by template variable substitution.
	KindRendered CommandKind = "rendered"
	// KindRollback is an inverse command generated from an applied command.
	KindRollback CommandKind = "rollback"
)

// Command is one line of device-native instruction. Risk is assigned at
// plan-build time, before execution begins, and never changes afterwards.
type Command struct {
	Text       string      `json:"text"`
	Kind       CommandKind `json:"kind"`
	Risk       Severity    `json:"risk"`
	Reversible bool        `json:"reversible"`
	// Inverse is the declared inverse command, empty when not reversible.
	Inverse string `json:"inverse,omitempty"`
}

// NewCommand builds a command of the given kind with its inverse inferred
// from the command text.
func NewCommand(text string, kind CommandKind) Command {
	inverse := InferInverse(text)
	return Command{
		Text:       strings.TrimSpace(text),
		Kind:       kind,
		Reversible: inverse != "",
		Inverse:    inverse,
	}
}

// IsComment reports whether the command is a comment or blank line.
// Comments are carried for preview but never sent to a device.
func (c Command) IsComment() bool {
	t := strings.TrimSpace(c.Text)
	return t == "" || strings.HasPrefix(t, "!")
}

// InferInverse derives the inverse of a configuration command, returning
// "" when no inversion rule applies. Inversion is command-local:
//
//	no <x>                        ->  <x>
//	interface/vlan/ip route <x>   ->  no interface/vlan/ip route <x>
//	shutdown                      ->  no shutdown
//	no shutdown                   ->  shutdown
func InferInverse(text string) string {
	cmd := strings.TrimSpace(text)
	if cmd == "" || strings.HasPrefix(cmd, "!") {
		return ""
	}
	lower := strings.ToLower(cmd)

	switch {
	case lower == "no shutdown":
		return "shutdown"
	case lower == "shutdown":
		return "no shutdown"
	case strings.HasPrefix(lower, "no "):
		return strings.TrimSpace(cmd[3:])
	case strings.HasPrefix(lower, "interface "),
		strings.HasPrefix(lower, "vlan "),
		strings.HasPrefix(lower, "ip route "):
		return "no " + cmd
	}
	return ""
}
