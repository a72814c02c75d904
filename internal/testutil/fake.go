// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/config-genie/genie/pkg/connector"
	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/plan"
)

// FakeConnector hands out scripted in-memory sessions keyed by device
// name. Unscripted devices connect successfully and accept everything.
type FakeConnector struct {
	mu       sync.Mutex
	scripts  map[string]*DeviceScript
	sessions map[string][]*FakeSession
	// Opened counts Open calls per device.
	Opened map[string]int
	// MaxConcurrent tracks the high-water mark of simultaneously
	// open sessions.
	MaxConcurrent int
	open          int
}

// DeviceScript controls how a fake device behaves.
type DeviceScript struct {
	// ConnectErr makes Open fail.
	ConnectErr error
	// FailOn maps a command text to the error its send returns.
	FailOn map[string]error
	// TransientFailures makes the first N sends of a command fail
	// with a transient error before succeeding.
	TransientFailures map[string]int
	// Snapshot is returned as the running config.
	Snapshot string
	// SendDelay slows each send down, for exercising concurrency.
	SendDelay time.Duration
}

// NewFakeConnector builds a connector with no scripts.
func NewFakeConnector() *FakeConnector {
	return &FakeConnector{
		scripts:  make(map[string]*DeviceScript),
		sessions: make(map[string][]*FakeSession),
		Opened:   make(map[string]int),
	}
}

// Script installs behavior for one device.
func (f *FakeConnector) Script(device string, s *DeviceScript) {
	f.mu.Lock()
	f.scripts[device] = s
	f.mu.Unlock()
}

func (f *FakeConnector) Open(ctx context.Context, dev *inventory.Device, creds connector.Credentials, timeout time.Duration) (connector.Session, error) {
	f.mu.Lock()
	f.Opened[dev.Name]++
	script := f.scripts[dev.Name]
	f.mu.Unlock()

	if script != nil && script.ConnectErr != nil {
		return nil, script.ConnectErr
	}
	sess := &FakeSession{conn: f, device: dev.Name, script: script}
	f.mu.Lock()
	f.open++
	if f.open > f.MaxConcurrent {
		f.MaxConcurrent = f.open
	}
	f.sessions[dev.Name] = append(f.sessions[dev.Name], sess)
	f.mu.Unlock()
	return sess, nil
}

// SentTo returns every command sent to a device, across all of its
// sessions, in order.
func (f *FakeConnector) SentTo(device string) []string {
	f.mu.Lock()
	sessions := f.sessions[device]
	f.mu.Unlock()
	var out []string
	for _, s := range sessions {
		out = append(out, s.Sent()...)
	}
	return out
}

func (f *FakeConnector) sessionClosed() {
	f.mu.Lock()
	f.open--
	f.mu.Unlock()
}

// FakeSession records every command sent to it.
type FakeSession struct {
	conn   *FakeConnector
	device string
	script *DeviceScript

	mu     sync.Mutex
	sent   []string
	closed bool
}

// Sent returns the commands sent so far, in order.
func (s *FakeSession) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeSession) Send(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.script != nil && s.script.SendDelay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.script.SendDelay):
		}
	}

	s.mu.Lock()
	s.sent = append(s.sent, cmd)
	s.mu.Unlock()

	if s.script != nil {
		if n := s.script.TransientFailures[cmd]; n > 0 {
			s.script.TransientFailures[cmd] = n - 1
			return "", &connector.SendError{Command: cmd, Transient: true, Err: errors.New("connection reset")}
		}
		if err := s.script.FailOn[cmd]; err != nil {
			return "", err
		}
	}
	return "ok", nil
}

func (s *FakeSession) Snapshot(ctx context.Context) (string, error) {
	if s.script != nil {
		return s.script.Snapshot, nil
	}
	return "", nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if !already {
		s.conn.sessionClosed()
	}
	return nil
}

// RejectCommand builds the non-transient error a device returns for a
// bad command.
func RejectCommand(cmd string) error {
	return &connector.SendError{
		Command:   cmd,
		Output:    "% Invalid input detected at '^' marker.",
		Transient: false,
	}
}

// Devices builds n test devices named dev1..devN.
func Devices(n int) []*inventory.Device {
	out := make([]*inventory.Device, n)
	for i := range out {
		dev, err := inventory.NewDevice(fmt.Sprintf("dev%d", i+1), fmt.Sprintf("10.0.0.%d", i+1))
		if err != nil {
			panic(err)
		}
		out[i] = dev
	}
	return out
}

// MustPlan builds a plan from command lines or panics.
func MustPlan(lines []string, opts plan.Options) *plan.Plan {
	p, err := plan.New(lines, plan.KindLiteral, opts)
	if err != nil {
		panic(err)
	}
	return p
}
