// Package connector provides device transport. A Connector opens an
// authenticated Session to a device; a Session sends one command at a
// time and can snapshot the running configuration.
package connector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/config-genie/genie/pkg/inventory"
)

// Credentials authenticate a device session.
type Credentials struct {
	Username string
	Password string
	// Enable is the privileged-mode secret, if distinct from Password.
	Enable string
}

// Connector opens sessions to devices.
type Connector interface {
	Open(ctx context.Context, dev *inventory.Device, creds Credentials, timeout time.Duration) (Session, error)
}

// Session is a live connection to one device. Implementations are not
// required to be safe for concurrent use; each device runs on a single
// worker.
type Session interface {
	// Send executes one command and returns its output.
	Send(ctx context.Context, cmd string, timeout time.Duration) (string, error)
	// Snapshot returns the device's running configuration.
	Snapshot(ctx context.Context) (string, error)
	Close() error
}

// deviceErrorPatterns mark output that means the device rejected the
// command. These are final answers, not transport hiccups.
var deviceErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)% invalid input`),
	regexp.MustCompile(`(?i)% incomplete command`),
	regexp.MustCompile(`(?i)% ambiguous command`),
	regexp.MustCompile(`(?i)% unknown command`),
	regexp.MustCompile(`(?i)% error`),
	regexp.MustCompile(`(?i)invalid command`),
	regexp.MustCompile(`(?i)command rejected`),
}

// SendError reports a failed command. Transient errors (transport
// problems) may be retried; rejections by the device may not.
type SendError struct {
	Command   string
	Output    string
	Transient bool
	Err       error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command %q: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %q rejected: %s", e.Command, firstLine(e.Output))
}

func (e *SendError) Unwrap() error { return e.Err }

// CheckOutput scans command output for device error markers. Returns a
// non-transient SendError when the device rejected the command.
func CheckOutput(cmd, output string) error {
	for _, p := range deviceErrorPatterns {
		if p.MatchString(output) {
			return &SendError{Command: cmd, Output: output, Transient: false}
		}
	}
	return nil
}

// IsTransient reports whether err is a retryable transport failure.
// Device rejections and context cancellation are never transient.
func IsTransient(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return s
}
