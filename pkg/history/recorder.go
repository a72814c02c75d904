package history

import (
	"fmt"
	"time"

	"github.com/config-genie/genie/pkg/engine"
	"github.com/config-genie/genie/pkg/util"
)

// Recorder translates engine events into history records. It satisfies
// engine.Emitter, so wiring history into a run is one field.
type Recorder struct {
	backend Backend
	runID   string
	user    string
	dryRun  bool
}

// NewRecorder binds a backend to one run. RunID ties all of the run's
// records together in queries.
func NewRecorder(backend Backend, user string, dryRun bool) *Recorder {
	return &Recorder{
		backend: backend,
		runID:   newRunID(),
		user:    user,
		dryRun:  dryRun,
	}
}

// RunID returns the identifier stamped on every record of this run.
func (r *Recorder) RunID() string {
	return r.runID
}

// Emit persists one engine event. Append failures are logged, never
// propagated: history must not break a run.
func (r *Recorder) Emit(ev engine.Event) {
	var rec *Record
	switch ev.Type {
	case engine.EventSessionStateChanged:
		rec = NewRecord(RecordStateChange, r.runID).
			WithUser(r.user).
			WithTransition(ev.Device, ev.From.String(), ev.To.String())
	case engine.EventRunCompleted:
		rec = NewRecord(RecordRunCompleted, r.runID).WithUser(r.user)
		rec.Status = string(ev.Result.Status)
		rec.DryRun = r.dryRun
		rec.Elapsed = ev.Result.Metrics.Elapsed
		rec.Committed = ev.Result.Metrics.Committed
		rec.Failed = ev.Result.Metrics.Failed
		rec.RolledBack = ev.Result.Metrics.RolledBack
		rec.Aborted = ev.Result.Metrics.Aborted
	default:
		return
	}
	rec.Timestamp = ev.Time

	if err := r.backend.Append(rec); err != nil {
		util.Warnf("history: dropping record: %v", err)
	}
}

func newRunID() string {
	return fmt.Sprintf("run-%s", time.Now().Format("20060102-150405.000"))
}
