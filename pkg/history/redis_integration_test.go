//go:build integration

package history

import (
	"fmt"
	"testing"

	"github.com/config-genie/genie/internal/testutil"
)

func TestRedisBackendAppendQuery(t *testing.T) {
	addr := testutil.SkipIfNoRedis(t)
	testutil.FlushKey(t, addr, "genie:history")

	b, err := NewRedisBackend(addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := b.Append(NewRecord(RecordStateChange, "run-a").WithTransition("sw1", "pending", "connecting")); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(NewRecord(RecordStateChange, "run-a").WithTransition("sw2", "pending", "connecting")); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(NewRecord(RecordRunCompleted, "run-a").WithUser("alex")); err != nil {
		t.Fatal(err)
	}

	all, err := b.Query(Filter{RunID: "run-a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("Query(run-a) = %d records, want 3", len(all))
	}

	sw1, err := b.Query(Filter{Device: "sw1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sw1) != 1 || sw1[0].To != "connecting" {
		t.Errorf("Query(sw1) = %+v, want one connecting transition", sw1)
	}

	runs, err := b.Query(Filter{Type: RecordRunCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].User != "alex" {
		t.Errorf("Query(run_completed) = %+v", runs)
	}
}

func TestRedisBackendCapsEntries(t *testing.T) {
	addr := testutil.SkipIfNoRedis(t)
	testutil.FlushKey(t, addr, "genie:history")

	b, err := NewRedisBackend(addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	b.MaxEntries = 5

	for i := 0; i < 8; i++ {
		rec := NewRecord(RecordStateChange, fmt.Sprintf("run-%d", i))
		if err := b.Append(rec); err != nil {
			t.Fatal(err)
		}
	}

	if n := testutil.KeyLen(t, addr, "genie:history"); n != 5 {
		t.Errorf("list length = %d, want 5", n)
	}

	// Oldest entries fall off.
	old, err := b.Query(Filter{RunID: "run-0"})
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("run-0 should have been trimmed, got %d records", len(old))
	}
}
