package plan

import (
	"fmt"

	"github.com/config-genie/genie/pkg/util"
)

// RollbackPlan is the inverse command sequence for the applied portion of
// a plan on one device. Inverse commands run in reverse application order
// to unwind ordered dependent changes.
type RollbackPlan struct {
	Commands []Command
	// SourceIndex maps each rollback command to the index of the applied
	// command it inverts.
	SourceIndex []int
}

// GenerateRollback derives the inverse plan for an applied-command log.
// It is a pure function of its input: the log must contain only commands
// flagged reversible, or an error is returned and no partial plan is
// produced.
func GenerateRollback(applied []Command) (*RollbackPlan, error) {
	if len(applied) == 0 {
		return nil, fmt.Errorf("nothing to roll back")
	}

	rb := &RollbackPlan{
		Commands:    make([]Command, 0, len(applied)),
		SourceIndex: make([]int, 0, len(applied)),
	}
	for i := len(applied) - 1; i >= 0; i-- {
		c := applied[i]
		if !c.Reversible || c.Inverse == "" {
			return nil, fmt.Errorf("%w: %q", util.ErrNotReversible, c.Text)
		}
		inv := NewCommand(c.Inverse, KindRollback)
		inv.Risk = c.Risk
		rb.Commands = append(rb.Commands, inv)
		rb.SourceIndex = append(rb.SourceIndex, i)
	}
	return rb, nil
}

// Len returns the number of rollback commands.
func (r *RollbackPlan) Len() int {
	return len(r.Commands)
}

// Texts returns the rollback command texts in send order.
func (r *RollbackPlan) Texts() []string {
	texts := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		texts[i] = c.Text
	}
	return texts
}
