package state

import (
	"context"

	"github.com/cbodonnell/platespotter/pkg/game/types"
)

// StateManager provides shared access to the current session snapshot.
// Implementations must be thread-safe.
type StateManager interface {
	// Get returns a copy of the current session.
	Get(ctx context.Context) (types.Session, error)
	// Set sets the current session.
	Set(ctx context.Context, session types.Session) error
}
