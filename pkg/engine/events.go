package engine

import (
	"sync"
	"time"
)

// EventType names the two things a run publishes: per-device state
// changes and the final result.
type EventType string

const (
	EventSessionStateChanged EventType = "session_state_changed"
	EventRunCompleted        EventType = "run_completed"
)

// Event is a single run occurrence. Device/From/To are set for state
// changes; Result is set for run completion.
type Event struct {
	Type   EventType    `json:"type"`
	Time   time.Time    `json:"time"`
	Device string       `json:"device,omitempty"`
	From   SessionState `json:"from,omitempty"`
	To     SessionState `json:"to,omitempty"`
	Result *RunResult   `json:"result,omitempty"`
}

// Emitter receives run events. Emit may be called concurrently from
// worker goroutines; implementations must be safe for that.
type Emitter interface {
	Emit(Event)
}

// MultiEmitter fans an event out to several emitters in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ev Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

// Recorder keeps every event in memory, mostly for tests and for
// building post-run reports.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
