// Package engine executes command plans against device fleets: it runs
// each device through a session state machine, applies commands with
// retry, and rolls back partial work when a run fails.
package engine

import (
	"sync"
	"time"

	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/plan"
	"github.com/config-genie/genie/pkg/util"
	"github.com/config-genie/genie/pkg/validate"
)

// SessionState is a stage in a device session's lifecycle.
type SessionState int

const (
	StatePending SessionState = iota
	StateConnecting
	StateValidating
	StateAwaitingConfirmation
	StateApplying
	StateVerifying
	StateCommitted
	StateFailed
	StateAborted
	StateRollingBack
	StateRolledBack
	StateRollbackFailed
)

var stateNames = map[SessionState]string{
	StatePending:              "pending",
	StateConnecting:           "connecting",
	StateValidating:           "validating",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateApplying:             "applying",
	StateVerifying:            "verifying",
	StateCommitted:            "committed",
	StateFailed:               "failed",
	StateAborted:              "aborted",
	StateRollingBack:          "rolling_back",
	StateRolledBack:           "rolled_back",
	StateRollbackFailed:       "rollback_failed",
}

func (s SessionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the state by name so history records stay
// readable if the numeric values ever shift.
func (s SessionState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Terminal reports whether the session can make no further progress.
func (s SessionState) Terminal() bool {
	switch s {
	case StateCommitted, StateAborted, StateRolledBack, StateRollbackFailed:
		return true
	case StateFailed:
		// Failed may still transition to RollingBack during the
		// sweep, but nothing else.
		return false
	}
	return false
}

// DeviceSession tracks one device through a run. A session is owned by
// a single worker goroutine while active; reads from other goroutines
// go through the accessor methods.
type DeviceSession struct {
	Device *inventory.Device
	Plan   *plan.Plan

	mu       sync.Mutex
	state    SessionState
	applied  []plan.Command
	findings []validate.Finding
	err      error
	errKind  ErrorKind
	verify   string

	Metrics *SessionMetrics

	emitter Emitter
}

func newSession(dev *inventory.Device, p *plan.Plan, emitter Emitter) *DeviceSession {
	return &DeviceSession{
		Device:  dev,
		Plan:    p,
		state:   StatePending,
		Metrics: &SessionMetrics{},
		emitter: emitter,
	}
}

// transition moves the session to a new state and publishes the change.
func (s *DeviceSession) transition(to SessionState) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	util.WithDevice(s.Device.Name).Debugf("Session %s -> %s", from, to)
	if s.emitter != nil {
		s.emitter.Emit(Event{
			Type:   EventSessionStateChanged,
			Time:   time.Now(),
			Device: s.Device.Name,
			From:   from,
			To:     to,
		})
	}
}

// fail records the error and kind and moves the session to Failed.
func (s *DeviceSession) fail(kind ErrorKind, err error) {
	s.mu.Lock()
	s.err = err
	s.errKind = kind
	s.mu.Unlock()
	s.transition(StateFailed)
}

// abort marks a session that never reached a device.
func (s *DeviceSession) abort(kind ErrorKind, err error) {
	s.mu.Lock()
	s.err = err
	s.errKind = kind
	s.mu.Unlock()
	s.transition(StateAborted)
}

func (s *DeviceSession) recordApplied(cmd plan.Command) {
	s.mu.Lock()
	s.applied = append(s.applied, cmd)
	s.mu.Unlock()
}

func (s *DeviceSession) setFindings(fs []validate.Finding) {
	s.mu.Lock()
	s.findings = fs
	s.mu.Unlock()
}

func (s *DeviceSession) setVerifyOutput(out string) {
	s.mu.Lock()
	s.verify = out
	s.mu.Unlock()
}

// State returns the session's current state.
func (s *DeviceSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Applied returns the commands applied so far, in send order.
func (s *DeviceSession) Applied() []plan.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]plan.Command, len(s.applied))
	copy(out, s.applied)
	return out
}

// Findings returns the validation findings for this device.
func (s *DeviceSession) Findings() []validate.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findings
}

// Err returns the session's error, if any.
func (s *DeviceSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ErrKind returns the classification of the session's error.
func (s *DeviceSession) ErrKind() ErrorKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errKind
}

// VerifyOutput returns the output of the post-apply verify command.
func (s *DeviceSession) VerifyOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verify
}
