package engine

import (
	"sync"
	"time"
)

// SessionMetrics accumulates timings for one device session. It is
// written by the session's worker and read after the run completes.
type SessionMetrics struct {
	mu sync.Mutex

	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	Elapsed          time.Duration   `json:"elapsed"`
	ConnectDuration  time.Duration   `json:"connect_duration"`
	ValidateDuration time.Duration   `json:"validate_duration"`
	SendDurations    []time.Duration `json:"send_durations"`
	Retries          int             `json:"retries"`
}

func (m *SessionMetrics) markConnect(d time.Duration)  { m.mu.Lock(); m.ConnectDuration = d; m.mu.Unlock() }
func (m *SessionMetrics) markValidate(d time.Duration) { m.mu.Lock(); m.ValidateDuration = d; m.mu.Unlock() }

func (m *SessionMetrics) markStart() { m.mu.Lock(); m.StartedAt = time.Now(); m.mu.Unlock() }

// markEnd may run more than once; the rollback sweep extends the
// session's elapsed time past the apply phase.
func (m *SessionMetrics) markEnd() {
	m.mu.Lock()
	m.FinishedAt = time.Now()
	if !m.StartedAt.IsZero() {
		m.Elapsed = m.FinishedAt.Sub(m.StartedAt)
	}
	m.mu.Unlock()
}

func (m *SessionMetrics) recordSend(d time.Duration, retries int) {
	m.mu.Lock()
	m.SendDurations = append(m.SendDurations, d)
	m.Retries += retries
	m.mu.Unlock()
}

// TotalSendTime sums the per-command send durations.
func (m *SessionMetrics) TotalSendTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	for _, d := range m.SendDurations {
		total += d
	}
	return total
}

// RunMetrics summarizes a whole run.
type RunMetrics struct {
	Started          time.Time     `json:"started"`
	Elapsed          time.Duration `json:"elapsed"`
	Devices          int           `json:"devices"`
	Committed        int           `json:"committed"`
	Failed           int           `json:"failed"`
	Aborted          int           `json:"aborted"`
	RolledBack       int           `json:"rolled_back"`
	RollbackOccurred bool          `json:"rollback_occurred"`
}
