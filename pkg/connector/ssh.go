package connector

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/util"
)

const defaultSSHPort = "22"

// SSHConnector opens SSH sessions to devices using password auth.
type SSHConnector struct {
	// Port overrides the SSH port for all devices. Empty means 22.
	Port string
}

// NewSSHConnector returns a connector using the default port.
func NewSSHConnector() *SSHConnector {
	return &SSHConnector{}
}

// Open dials the device over SSH. The context deadline bounds the dial;
// timeout is also applied as the SSH handshake timeout.
func (c *SSHConnector) Open(ctx context.Context, dev *inventory.Device, creds Credentials, timeout time.Duration) (Session, error) {
	port := c.Port
	if port == "" {
		port = defaultSSHPort
	}
	addr := net.JoinHostPort(dev.Address, port)

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
		},
		// Network lab gear rarely has stable host keys across
		// reimages; verification is left to the operator's
		// known_hosts discipline.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	util.WithDevice(dev.Name).Debugf("SSH session established to %s", addr)
	return &sshSession{client: client, device: dev.Name}, nil
}

// sshSession runs each command in its own exec session, so a command
// that wedges the channel cannot poison later commands.
type sshSession struct {
	client *ssh.Client
	device string
}

func (s *sshSession) Send(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	if s.client == nil {
		return "", util.ErrNotConnected
	}
	sess, err := s.client.NewSession()
	if err != nil {
		return "", &SendError{Command: cmd, Transient: true, Err: err}
	}
	defer sess.Close()

	type result struct {
		output []byte
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(cmd)
		ch <- result{out, err}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-ctx.Done():
		sess.Close()
		return "", ctx.Err()
	case <-timer:
		sess.Close()
		return "", &SendError{Command: cmd, Transient: true, Err: fmt.Errorf("timed out after %s", timeout)}
	case res := <-ch:
		output := string(res.output)
		if res.err != nil {
			// A non-zero exit with readable output is a device
			// rejection, not a transport failure.
			if _, ok := res.err.(*ssh.ExitError); ok && output != "" {
				return output, &SendError{Command: cmd, Output: output, Transient: false, Err: res.err}
			}
			return output, &SendError{Command: cmd, Output: output, Transient: true, Err: res.err}
		}
		if err := CheckOutput(cmd, output); err != nil {
			return output, err
		}
		return output, nil
	}
}

func (s *sshSession) Snapshot(ctx context.Context) (string, error) {
	return s.Send(ctx, "show running-config", 30*time.Second)
}

func (s *sshSession) Close() error {
	if s.client == nil {
		return nil
	}
	util.WithDevice(s.device).Debug("Closing SSH session")
	err := s.client.Close()
	s.client = nil
	return err
}
