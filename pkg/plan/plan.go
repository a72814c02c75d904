package plan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/config-genie/genie/pkg/util"
)

// Source records where a plan's commands came from.
type Source string

const (
	SourceAdHoc    Source = "adhoc"
	SourceTemplate Source = "template"
)

// Options control plan construction.
type Options struct {
	// Source names the origin; Template holds the template name when
	// Source is SourceTemplate.
	Source   Source
	Template string

	// DryRun previews the plan without sending any command.
	DryRun bool

	// VerifyCommand is an optional command sent after the last plan
	// command; its output is attached to the session for the operator
	// to interpret.
	VerifyCommand string

	// AcceptNonReversible accepts a plan containing commands with no
	// declared inverse. Without it, such a plan is rejected up front,
	// before any device session starts.
	AcceptNonReversible bool
}

// Plan is the ordered, validated command list for one logical change.
// A plan is immutable once execution starts: the orchestrator seals it
// and mutators fail afterwards.
type Plan struct {
	Commands      []Command
	Source        Source
	Template      string
	DryRun        bool
	VerifyCommand string

	// NonReversible is set when the plan was accepted with commands that
	// cannot be inverted; such a plan is never offered rollback.
	NonReversible bool

	mu     sync.Mutex
	sealed bool
}

// New builds a plan from raw command lines. Comment and blank lines are
// kept for preview but excluded from execution. Plans containing
// non-reversible commands are rejected unless opts.AcceptNonReversible.
func New(lines []string, kind CommandKind, opts Options) (*Plan, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("plan has no commands")
	}

	var commands []Command
	var irreversible []string
	for _, line := range lines {
		cmd := NewCommand(line, kind)
		if cmd.IsComment() {
			continue
		}
		if !cmd.Reversible {
			irreversible = append(irreversible, cmd.Text)
		}
		commands = append(commands, cmd)
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("plan has no executable commands")
	}

	if len(irreversible) > 0 && !opts.AcceptNonReversible {
		return nil, fmt.Errorf("%w: %s (pass --no-rollback to accept)",
			util.ErrNotReversible, strings.Join(irreversible, "; "))
	}

	source := opts.Source
	if source == "" {
		source = SourceAdHoc
	}

	return &Plan{
		Commands:      commands,
		Source:        source,
		Template:      opts.Template,
		DryRun:        opts.DryRun,
		VerifyCommand: opts.VerifyCommand,
		NonReversible: len(irreversible) > 0,
	}, nil
}

// Seal marks the plan immutable. Called by the orchestrator when
// execution starts; idempotent.
func (p *Plan) Seal() {
	p.mu.Lock()
	p.sealed = true
	p.mu.Unlock()
}

// Sealed reports whether execution has started.
func (p *Plan) Sealed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sealed
}

// SetRisk assigns a risk classification to the command at index i.
// Risk is set during validation, before execution begins; assigning
// after the plan is sealed is an error.
func (p *Plan) SetRisk(i int, risk Severity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed {
		return util.ErrPlanSealed
	}
	if i < 0 || i >= len(p.Commands) {
		return fmt.Errorf("command index %d out of range", i)
	}
	if risk > p.Commands[i].Risk {
		p.Commands[i].Risk = risk
	}
	return nil
}

// Len returns the number of executable commands.
func (p *Plan) Len() int {
	return len(p.Commands)
}

// Reversible reports whether every command in the plan declares an inverse.
func (p *Plan) Reversible() bool {
	return !p.NonReversible
}

// MaxRisk returns the highest risk classification across all commands.
func (p *Plan) MaxRisk() Severity {
	max := SeverityLow
	for _, c := range p.Commands {
		if c.Risk > max {
			max = c.Risk
		}
	}
	return max
}

// Texts returns the command texts in plan order.
func (p *Plan) Texts() []string {
	texts := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		texts[i] = c.Text
	}
	return texts
}

// Preview returns a human-readable rendering of the plan.
func (p *Plan) Preview() string {
	var sb strings.Builder
	switch p.Source {
	case SourceTemplate:
		fmt.Fprintf(&sb, "Plan (template %s", p.Template)
	default:
		sb.WriteString("Plan (ad hoc")
	}
	if p.DryRun {
		sb.WriteString(", dry-run")
	}
	if p.NonReversible {
		sb.WriteString(", non-reversible")
	}
	sb.WriteString("):\n")
	for i, c := range p.Commands {
		fmt.Fprintf(&sb, "  %2d. %s", i+1, c.Text)
		if c.Risk > SeverityLow {
			fmt.Fprintf(&sb, "  [%s]", strings.ToUpper(c.Risk.String()))
		}
		sb.WriteString("\n")
	}
	if p.VerifyCommand != "" {
		fmt.Fprintf(&sb, "  verify: %s\n", p.VerifyCommand)
	}
	return sb.String()
}
