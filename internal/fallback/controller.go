// Package fallback decides, per privileged operation, whether to go through
// the daemon or execute directly with local privilege.
package fallback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stackpilot/stackpilot/internal/privd"
)

// Operation is one privileged action in its two forms. Daemon is the
// daemon-mediated form; Direct is the equivalent executed with local
// privilege. Direct may be nil when no local equivalent exists, in which case
// a daemon failure propagates to the caller.
type Operation struct {
	Desc   string
	Daemon func(ctx context.Context) error
	Direct func(ctx context.Context) error
}

// Controller applies the fallback policy. DaemonUsable is the readiness
// monitor's verdict, set once at startup and only read afterwards.
type Controller struct {
	DaemonUsable bool
}

// Run executes one operation. The daemon path is attempted only when the
// daemon is usable; any failure there (transport error or daemon-reported
// failure) falls through to the direct path. The operation's outcome is that
// of whichever form actually ran last. A daemon failure is never a reason to
// skip the operation: the direct path is its safety net.
func (c *Controller) Run(ctx context.Context, op Operation) error {
	if c.DaemonUsable && op.Daemon != nil {
		err := op.Daemon(ctx)
		if err == nil {
			return nil
		}
		if op.Direct == nil {
			slog.Error("daemon operation failed, no direct equivalent", "op", op.Desc, "error", err)
			return fmt.Errorf("%s: %w", op.Desc, err)
		}
		privd.IncFallback(op.Desc)
		slog.Warn("daemon operation failed, falling back to direct execution", "op", op.Desc, "error", err)
	}

	if op.Direct == nil {
		return fmt.Errorf("%s: no direct execution path", op.Desc)
	}
	if err := op.Direct(ctx); err != nil {
		slog.Error("operation failed", "op", op.Desc, "error", err)
		return fmt.Errorf("%s: %w", op.Desc, err)
	}
	return nil
}
