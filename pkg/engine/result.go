package engine

// GlobalStatus is the overall outcome of a run.
type GlobalStatus string

const (
	// StatusCompleted means every device committed.
	StatusCompleted GlobalStatus = "completed"
	// StatusAborted means at least one device did not commit and no
	// rollback was performed.
	StatusAborted GlobalStatus = "aborted"
	// StatusPartiallyRolledBack means at least one device had applied
	// commands undone (or had rollback attempted) after a failure.
	StatusPartiallyRolledBack GlobalStatus = "partially_rolled_back"
)

// RunResult is the single value a run produces. Sessions appear in
// dispatch order.
type RunResult struct {
	Status   GlobalStatus     `json:"status"`
	Sessions []*DeviceSession `json:"-"`
	Metrics  RunMetrics       `json:"metrics"`
}

// Session returns the session for the named device, or nil.
func (r *RunResult) Session(device string) *DeviceSession {
	for _, s := range r.Sessions {
		if s.Device.Name == device {
			return s
		}
	}
	return nil
}

// Succeeded reports whether every device committed.
func (r *RunResult) Succeeded() bool {
	return r.Status == StatusCompleted
}

func computeStatus(sessions []*DeviceSession) GlobalStatus {
	allCommitted := true
	rollback := false
	for _, s := range sessions {
		switch s.State() {
		case StateCommitted:
		case StateRolledBack, StateRollbackFailed, StateRollingBack:
			rollback = true
			allCommitted = false
		default:
			allCommitted = false
		}
	}
	switch {
	case allCommitted:
		return StatusCompleted
	case rollback:
		return StatusPartiallyRolledBack
	default:
		return StatusAborted
	}
}
