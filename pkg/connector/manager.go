package connector

import (
	"context"
	"sync"
	"time"

	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/util"
)

// Manager caches one session per device for the life of a run, and
// applies exponential backoff to repeated connection attempts.
type Manager struct {
	connector Connector
	creds     Credentials
	timeout   time.Duration

	mu       sync.Mutex
	sessions map[string]Session
}

// NewManager wraps a connector with session caching.
func NewManager(c Connector, creds Credentials, timeout time.Duration) *Manager {
	return &Manager{
		connector: c,
		creds:     creds,
		timeout:   timeout,
		sessions:  make(map[string]Session),
	}
}

// connectAttempts bounds the exponential-backoff dial loop.
const connectAttempts = 3

// Get returns the cached session for dev, dialing if needed. Dial
// failures are retried with exponential backoff (1s, 2s, 4s).
func (m *Manager) Get(ctx context.Context, dev *inventory.Device) (Session, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[dev.Name]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	var sess Session
	var err error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			util.WithDevice(dev.Name).Debugf("Retrying connect in %s", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		sess, err = m.connector.Open(ctx, dev, m.creds, m.timeout)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, util.NewDeviceError(dev.Name, "connect", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[dev.Name]; ok {
		sess.Close()
		return existing, nil
	}
	m.sessions[dev.Name] = sess
	return sess, nil
}

// Release closes and forgets the session for dev, if any.
func (m *Manager) Release(dev string) {
	m.mu.Lock()
	sess, ok := m.sessions[dev]
	delete(m.sessions, dev)
	m.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// CloseAll closes every cached session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]Session)
	m.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}
