package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableRowsAndHeaders(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "DEVICE", "STATE", "COMMANDS")
	tbl.Row("core-sw1", "committed", "3")
	tbl.Row("core-sw2", "rolled_back", "1")
	tbl.Flush()

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + divider + 2 rows:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "DEVICE") || !strings.Contains(lines[0], "STATE") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "------") {
		t.Errorf("divider line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "core-sw1") {
		t.Errorf("row line = %q", lines[2])
	}
}

func TestTableEmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "DEVICE", "STATE")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table produced output: %q", buf.String())
	}
}

func TestTableWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NAME").WithPrefix("  ")
	tbl.Row("sw1")
	tbl.Flush()
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %q missing prefix", line)
		}
	}
}
