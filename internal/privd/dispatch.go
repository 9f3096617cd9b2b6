package privd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stackpilot/stackpilot/internal/auth"
	"github.com/stackpilot/stackpilot/internal/protocol"
)

// newNonce returns a fresh UUID v4. Nonces are never reused: the daemon
// treats a repeated nonce as a replayed request.
func newNonce() string {
	return uuid.NewString()
}

// Execute performs one signed daemon call. It canonicalizes params, signs the
// exact bytes that go on the wire, logs intent before the round trip and the
// outcome after, and normalizes every failure into a CallError. Typed command
// wrappers delegate here; none of them retry.
func (c *Client) Execute(ctx context.Context, command string, params map[string]any, description string) (json.RawMessage, error) {
	canonical, err := protocol.Canonicalize(params)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Unix()
	nonce := c.newNonce()

	signature, err := auth.Sign(c.secret, command, canonical, timestamp, nonce)
	if err != nil {
		return nil, fmt.Errorf("sign %s request: %w", command, err)
	}

	slog.Info("daemon request", "command", command, "desc", description)

	res, err := c.roundTrip(ctx, &protocol.Request{
		Command:   command,
		Params:    canonical,
		Timestamp: timestamp,
		Nonce:     nonce,
		Signature: signature,
	})
	if err != nil {
		IncDaemonCall(command, "transport_error")
		slog.Error("daemon call failed", "command", command, "desc", description, "error", err)
		return nil, err
	}

	if !res.Success {
		message := "daemon reported failure without detail"
		if res.Error != nil && res.Error.Message != "" {
			message = res.Error.Error()
		}
		IncDaemonCall(command, "rejected")
		slog.Warn("daemon rejected command", "command", command, "desc", description, "reason", message)
		return nil, &CallError{Kind: KindCommand, Command: command, Message: message}
	}

	IncDaemonCall(command, "ok")
	slog.Info("daemon request complete", "command", command, "desc", description)
	return res.Result, nil
}
