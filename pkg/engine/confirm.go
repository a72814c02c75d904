package engine

import (
	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/plan"
	"github.com/config-genie/genie/pkg/validate"
)

// RequestKind distinguishes what the operator is being asked to approve.
type RequestKind string

const (
	RequestApply    RequestKind = "apply"
	RequestRollback RequestKind = "rollback"
)

// ConfirmationRequest asks whether to proceed with a set of commands on
// one device. The engine serializes requests, so a Decider never sees
// two at once.
type ConfirmationRequest struct {
	Kind     RequestKind
	Device   *inventory.Device
	Commands []string
	Findings []validate.Finding
}

// MaxSeverity returns the highest finding severity in the request.
func (r *ConfirmationRequest) MaxSeverity() plan.Severity {
	return validate.MaxSeverity(r.Findings)
}

// Decider answers confirmation requests. An error from Confirm is
// treated the same as a denial.
type Decider interface {
	Confirm(req ConfirmationRequest) (bool, error)
}

// PolicyDecider approves without prompting. Apply requests pass when no
// finding exceeds ApproveUpTo; rollback requests always pass, since
// declining them strands partial config on the device.
type PolicyDecider struct {
	ApproveUpTo plan.Severity
}

func (d PolicyDecider) Confirm(req ConfirmationRequest) (bool, error) {
	if req.Kind == RequestRollback {
		return true, nil
	}
	return req.MaxSeverity() <= d.ApproveUpTo, nil
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(req ConfirmationRequest) (bool, error)

func (f DeciderFunc) Confirm(req ConfirmationRequest) (bool, error) { return f(req) }
