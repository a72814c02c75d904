// Package history persists run events: every session state change and
// every run result, queryable after the fact. It is the only channel
// through which past runs can be inspected.
package history

import (
	"fmt"
	"sync/atomic"
	"time"
)

// RecordType categorizes history records.
type RecordType string

const (
	RecordStateChange  RecordType = "session_state_changed"
	RecordRunCompleted RecordType = "run_completed"
)

// Record is one history entry. State-change records carry Device/From/To;
// run-completed records carry Status and the counters.
type Record struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Type      RecordType `json:"type"`
	RunID     string     `json:"run_id"`
	User      string     `json:"user,omitempty"`

	Device string `json:"device,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`

	Status     string        `json:"status,omitempty"`
	DryRun     bool          `json:"dry_run,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	Committed  int           `json:"committed,omitempty"`
	Failed     int           `json:"failed,omitempty"`
	RolledBack int           `json:"rolled_back,omitempty"`
	Aborted    int           `json:"aborted,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewRecord starts a record of the given type for a run.
func NewRecord(typ RecordType, runID string) *Record {
	return &Record{
		ID:        generateID(),
		Timestamp: time.Now(),
		Type:      typ,
		RunID:     runID,
	}
}

// WithUser sets the operator who ran the change.
func (r *Record) WithUser(user string) *Record {
	r.User = user
	return r
}

// WithTransition sets the device state change.
func (r *Record) WithTransition(device, from, to string) *Record {
	r.Device = device
	r.From = from
	r.To = to
	return r
}

// WithError attaches an error message.
func (r *Record) WithError(err error) *Record {
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Filter selects history records in a query.
type Filter struct {
	RunID     string
	Device    string
	Type      RecordType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func (f Filter) matches(r *Record) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.Device != "" && r.Device != f.Device {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if !f.StartTime.IsZero() && r.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && r.Timestamp.After(f.EndTime) {
		return false
	}
	return true
}

// window applies offset and limit to a filtered result set.
func (f Filter) window(records []*Record) []*Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return nil
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend stores and retrieves history records.
type Backend interface {
	Append(r *Record) error
	Query(f Filter) ([]*Record, error)
	Close() error
}

var idCounter atomic.Uint64

func generateID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), idCounter.Add(1))
}
