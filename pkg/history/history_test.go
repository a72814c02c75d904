package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/config-genie/genie/pkg/engine"
)

func tempBackend(t *testing.T, rotation RotationConfig) *FileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	b, err := NewFileBackend(path, rotation)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestFileBackendAppendQuery(t *testing.T) {
	b := tempBackend(t, RotationConfig{})

	recs := []*Record{
		NewRecord(RecordStateChange, "run-1").WithTransition("sw1", "pending", "connecting"),
		NewRecord(RecordStateChange, "run-1").WithTransition("sw2", "pending", "connecting"),
		NewRecord(RecordRunCompleted, "run-1"),
		NewRecord(RecordStateChange, "run-2").WithTransition("sw1", "pending", "validating"),
	}
	for _, r := range recs {
		if err := b.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := b.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Query all = %d records, want 4", len(all))
	}

	run1, _ := b.Query(Filter{RunID: "run-1"})
	if len(run1) != 3 {
		t.Errorf("Query run-1 = %d, want 3", len(run1))
	}

	sw1, _ := b.Query(Filter{Device: "sw1"})
	if len(sw1) != 2 {
		t.Errorf("Query sw1 = %d, want 2", len(sw1))
	}

	completed, _ := b.Query(Filter{Type: RecordRunCompleted})
	if len(completed) != 1 {
		t.Errorf("Query run_completed = %d, want 1", len(completed))
	}

	limited, _ := b.Query(Filter{Limit: 2, Offset: 1})
	if len(limited) != 2 {
		t.Errorf("Query limit/offset = %d, want 2", len(limited))
	}
	if limited[0].Device != "sw2" {
		t.Errorf("offset skipped wrong record: %+v", limited[0])
	}
}

func TestFileBackendSkipsMalformedLines(t *testing.T) {
	b := tempBackend(t, RotationConfig{})
	if err := b.Append(NewRecord(RecordStateChange, "run-1")); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not json\n")
	f.Close()
	if err := b.Append(NewRecord(RecordStateChange, "run-1")); err != nil {
		t.Fatal(err)
	}

	recs, err := b.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("Query = %d records, want 2 (malformed line skipped)", len(recs))
	}
}

func TestFileBackendRotation(t *testing.T) {
	b := tempBackend(t, RotationConfig{MaxSize: 200, MaxBackups: 1})

	for i := 0; i < 20; i++ {
		if err := b.Append(NewRecord(RecordStateChange, "run-1").WithTransition("sw1", "applying", "committed")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	matches, err := filepath.Glob(b.path + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Error("no rotated files produced")
	}
	if len(matches) > 1 {
		t.Errorf("%d rotated files retained, MaxBackups is 1", len(matches))
	}
}

func TestFilterTimeWindow(t *testing.T) {
	now := time.Now()
	r := NewRecord(RecordStateChange, "run-1")
	r.Timestamp = now

	if !(Filter{StartTime: now.Add(-time.Hour)}).matches(r) {
		t.Error("record inside window rejected")
	}
	if (Filter{StartTime: now.Add(time.Hour)}).matches(r) {
		t.Error("record before window accepted")
	}
	if (Filter{EndTime: now.Add(-time.Hour)}).matches(r) {
		t.Error("record after window accepted")
	}
}

type memBackend struct {
	records []*Record
}

func (m *memBackend) Append(r *Record) error          { m.records = append(m.records, r); return nil }
func (m *memBackend) Query(f Filter) ([]*Record, error) { return m.records, nil }
func (m *memBackend) Close() error                    { return nil }

func TestRecorderTranslatesEvents(t *testing.T) {
	mem := &memBackend{}
	rec := NewRecorder(mem, "alice", false)

	if !strings.HasPrefix(rec.RunID(), "run-") {
		t.Errorf("RunID = %q", rec.RunID())
	}

	rec.Emit(engine.Event{
		Type:   engine.EventSessionStateChanged,
		Time:   time.Now(),
		Device: "sw1",
		From:   engine.StatePending,
		To:     engine.StateConnecting,
	})
	rec.Emit(engine.Event{
		Type: engine.EventRunCompleted,
		Time: time.Now(),
		Result: &engine.RunResult{
			Status: engine.StatusCompleted,
			Metrics: engine.RunMetrics{
				Devices:   1,
				Committed: 1,
				Elapsed:   time.Second,
			},
		},
	})

	if len(mem.records) != 2 {
		t.Fatalf("recorded %d, want 2", len(mem.records))
	}
	sc := mem.records[0]
	if sc.Type != RecordStateChange || sc.Device != "sw1" || sc.From != "pending" || sc.To != "connecting" {
		t.Errorf("state change record = %+v", sc)
	}
	if sc.User != "alice" || sc.RunID != rec.RunID() {
		t.Errorf("record not stamped with user/run: %+v", sc)
	}
	done := mem.records[1]
	if done.Type != RecordRunCompleted || done.Status != "completed" || done.Committed != 1 {
		t.Errorf("run completed record = %+v", done)
	}
}
