// ABOUTME: Public error taxonomy for call-control operations
// ABOUTME: Adapter errors are translated here; raw control-plane text never crosses this boundary

package bridge

import (
	"context"
	"errors"

	"github.com/netbyu/pbx-gateway/internal/controlplane"
)

var (
	// ErrNotConnected is returned by every call-control operation while
	// the control-plane session is down. Operations are never queued.
	ErrNotConnected = errors.New("not connected to control plane")

	// ErrTransient marks a timeout on an otherwise valid operation.
	// Safe to retry with backoff at the caller's discretion; mutating
	// operations are never retried internally.
	ErrTransient = errors.New("operation timed out")

	// ErrNotFound means the referenced channel or endpoint does not
	// exist at the time of the call.
	ErrNotFound = errors.New("not found")

	// ErrRejected means the control plane refused the command: bad
	// endpoint reference, invalid extension, dial rejected.
	ErrRejected = errors.New("rejected by control plane")

	// ErrConnection covers session establishment failures. Triggers the
	// reconnect policy, never a process exit.
	ErrConnection = errors.New("control plane connection failed")
)

// translate maps an adapter error onto the public taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTransient
	case errors.Is(err, controlplane.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, controlplane.ErrRejected):
		// Raw rejection text stays on the adapter side of the boundary.
		return ErrRejected
	case errors.Is(err, controlplane.ErrConnection):
		return ErrConnection
	default:
		return ErrConnection
	}
}
