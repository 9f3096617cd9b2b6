package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerRun(t *testing.T) {
	t.Run("daemon path never invoked when unusable", func(t *testing.T) {
		ctrl := &Controller{DaemonUsable: false}
		daemonCalls, directCalls := 0, 0

		err := ctrl.Run(context.Background(), Operation{
			Desc:   "restart nginx",
			Daemon: func(context.Context) error { daemonCalls++; return nil },
			Direct: func(context.Context) error { directCalls++; return nil },
		})
		require.NoError(t, err)
		assert.Zero(t, daemonCalls)
		assert.Equal(t, 1, directCalls)
	})

	t.Run("daemon success skips direct path", func(t *testing.T) {
		ctrl := &Controller{DaemonUsable: true}
		directCalls := 0

		err := ctrl.Run(context.Background(), Operation{
			Desc:   "restart nginx",
			Daemon: func(context.Context) error { return nil },
			Direct: func(context.Context) error { directCalls++; return nil },
		})
		require.NoError(t, err)
		assert.Zero(t, directCalls)
	})

	t.Run("daemon failure falls back exactly once", func(t *testing.T) {
		ctrl := &Controller{DaemonUsable: true}
		directCalls := 0

		err := ctrl.Run(context.Background(), Operation{
			Desc:   "restart nginx",
			Daemon: func(context.Context) error { return errors.New("daemon rejected") },
			Direct: func(context.Context) error { directCalls++; return nil },
		})
		require.NoError(t, err, "direct path result is the final outcome")
		assert.Equal(t, 1, directCalls)
	})

	t.Run("direct failure after fallback is the final outcome", func(t *testing.T) {
		ctrl := &Controller{DaemonUsable: true}
		directErr := errors.New("systemctl exited 1")

		err := ctrl.Run(context.Background(), Operation{
			Desc:   "restart nginx",
			Daemon: func(context.Context) error { return errors.New("daemon down") },
			Direct: func(context.Context) error { return directErr },
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, directErr)
	})

	t.Run("daemon failure without direct equivalent propagates", func(t *testing.T) {
		ctrl := &Controller{DaemonUsable: true}
		daemonErr := errors.New("certificate issuance failed")

		err := ctrl.Run(context.Background(), Operation{
			Desc:   "request certificate",
			Daemon: func(context.Context) error { return daemonErr },
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, daemonErr)
	})

	t.Run("no path at all is an error", func(t *testing.T) {
		ctrl := &Controller{DaemonUsable: false}
		err := ctrl.Run(context.Background(), Operation{Desc: "noop"})
		assert.ErrorContains(t, err, "no direct execution path")
	})
}
