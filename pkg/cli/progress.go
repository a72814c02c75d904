package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/config-genie/genie/pkg/engine"
)

// ConsoleProgress prints run progress as it happens. It is append-only:
// no ANSI cursor rewriting, so output is safe for pipes, CI, and
// scrollback buffers. It satisfies engine.Emitter.
type ConsoleProgress struct {
	W       io.Writer
	Verbose bool

	mu       sync.Mutex
	dotWidth int
}

// NewConsoleProgress creates a ConsoleProgress writing to stdout, sized
// to the longest device name.
func NewConsoleProgress(verbose bool, deviceNames []string) *ConsoleProgress {
	maxName := 0
	for _, n := range deviceNames {
		if len(n) > maxName {
			maxName = len(n)
		}
	}
	return &ConsoleProgress{
		W:        os.Stdout,
		Verbose:  verbose,
		dotWidth: maxName + 6,
	}
}

// Emit renders one engine event. Terminal states always print; in-flight
// transitions print only in verbose mode.
func (p *ConsoleProgress) Emit(ev engine.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case engine.EventSessionStateChanged:
		p.stateChange(ev)
	case engine.EventRunCompleted:
		p.summary(ev.Result)
	}
}

func (p *ConsoleProgress) stateChange(ev engine.Event) {
	switch ev.To {
	case engine.StateCommitted, engine.StateFailed, engine.StateAborted,
		engine.StateRolledBack, engine.StateRollbackFailed:
		padded := DotPad(ev.Device, p.dotWidth)
		fmt.Fprintf(p.W, "  %s %s\n", padded, FormatState(ev.To))
	default:
		if p.Verbose {
			fmt.Fprintf(p.W, "  %s %s\n", DotPad(ev.Device, p.dotWidth), Dim(ev.To.String()))
		}
	}
}

func (p *ConsoleProgress) summary(result *engine.RunResult) {
	m := result.Metrics
	fmt.Fprintf(p.W, "\n%s  %d committed, %d failed, %d rolled back, %d aborted  (%s)\n",
		FormatStatus(result.Status),
		m.Committed, m.Failed, m.RolledBack, m.Aborted,
		formatDuration(m.Elapsed))
}

func formatDuration(d time.Duration) string {
	if d >= time.Second {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Millisecond).String()
}
