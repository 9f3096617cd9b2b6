// Package privd implements the client side of the stackpilotd protocol: a
// signed request/response exchange over a local unix stream socket, one
// connection per call.
package privd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/stackpilot/stackpilot/internal/protocol"
)

// DefaultTimeout bounds connect and I/O for a single call. Package installs
// routed through the daemon can legitimately take minutes.
const DefaultTimeout = 300 * time.Second

// ErrorKind classifies a failed daemon call.
type ErrorKind string

const (
	// KindConnection covers an absent socket, refused connection, closed
	// connection, and I/O deadline expiry.
	KindConnection ErrorKind = "connection"
	// KindProtocol covers truncated frames, oversized declared lengths, and
	// malformed JSON bodies.
	KindProtocol ErrorKind = "protocol"
	// KindCommand covers daemon-reported failures (success=false), including
	// authentication rejections.
	KindCommand ErrorKind = "command"
)

// CallError is the uniform failure result for a daemon call.
type CallError struct {
	Kind    ErrorKind
	Command string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("daemon %s error [%s]: %s", e.Kind, e.Command, e.Message)
}

// ClientConfig holds the process-wide call parameters. The secret and socket
// path are set once at startup and only read afterwards.
type ClientConfig struct {
	SocketPath string
	Secret     []byte
	Timeout    time.Duration // zero means DefaultTimeout
}

// Client issues signed commands to the privileged daemon. Calls are
// synchronous and sequential; no connection is reused across calls.
type Client struct {
	socketPath string
	secret     []byte
	timeout    time.Duration

	// Injection points for tests.
	dial     func(ctx context.Context, socketPath string) (net.Conn, error)
	now      func() time.Time
	newNonce func() string
}

// NewClient creates a client for the daemon socket.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		socketPath: cfg.SocketPath,
		secret:     cfg.Secret,
		timeout:    timeout,
		dial:       dialUnix,
		now:        time.Now,
		newNonce:   newNonce,
	}
}

// SocketPath returns the configured daemon socket path.
func (c *Client) SocketPath() string {
	return c.socketPath
}

func dialUnix(ctx context.Context, socketPath string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", socketPath)
}

// roundTrip performs one connect/write/read/close cycle. Transport and
// protocol failures are converted into a CallError; they never escape as raw
// I/O errors.
func (c *Client) roundTrip(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(dialCtx, c.socketPath)
	if err != nil {
		return nil, &CallError{Kind: KindConnection, Command: req.Command, Message: fmt.Sprintf("connect %s: %v", c.socketPath, err)}
	}
	defer conn.Close()

	// One deadline covers the whole exchange; expiry surfaces as a timeout
	// from the read or write below. An unarmed deadline would leave the call
	// unbounded, so failure to set it aborts here.
	if err := conn.SetDeadline(c.now().Add(c.timeout)); err != nil {
		return nil, &CallError{Kind: KindConnection, Command: req.Command, Message: fmt.Sprintf("set deadline: %v", err)}
	}

	data, err := protocol.MarshalRequest(req)
	if err != nil {
		return nil, c.classify(req.Command, err)
	}
	if err := protocol.WriteFrame(conn, data); err != nil {
		return nil, c.classify(req.Command, err)
	}

	body, err := protocol.ReadFrame(conn)
	if err != nil {
		return nil, c.classify(req.Command, err)
	}

	res, err := protocol.ParseResponse(body)
	if err != nil {
		return nil, c.classify(req.Command, err)
	}
	return res, nil
}

// classify maps transport- and protocol-level failures onto the error
// taxonomy. Deadline expiry is a connection error even when it surfaces
// mid-frame, so the timeout check runs before the protocol one.
func (c *Client) classify(command string, err error) *CallError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &CallError{Kind: KindConnection, Command: command, Message: fmt.Sprintf("timed out after %s", c.timeout)}
	}

	var protoErr *protocol.ProtoError
	if errors.As(err, &protoErr) {
		if protoErr.Code == protocol.CodeConnectionClosed {
			return &CallError{Kind: KindConnection, Command: command, Message: protoErr.Message}
		}
		return &CallError{Kind: KindProtocol, Command: command, Message: protoErr.Message}
	}

	return &CallError{Kind: KindConnection, Command: command, Message: err.Error()}
}

// Secret returns the loaded signing secret. Used by the auth fingerprint in
// status output, never logged in full.
func (c *Client) Secret() []byte {
	return c.secret
}
