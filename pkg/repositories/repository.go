package repositories

import (
	"context"

	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
)

// Repository is the remote store that sessions are mirrored to. Any call may
// fail; callers treat failures as the store being unavailable.
type Repository interface {
	// Close releases the resources held by the repository
	Close(ctx context.Context) error
	// CreateSession creates an empty session owned by ownerID
	CreateSession(ctx context.Context, ownerID string) (types.SessionID, error)
	// FindLatestSession returns the most recently updated session of the owner.
	// It returns ErrNotFound when the owner has none.
	FindLatestSession(ctx context.Context, ownerID string) (types.SessionID, error)
	// ListPlayers returns the players of the session in creation order
	ListPlayers(ctx context.Context, sessionID types.SessionID) ([]models.PlayerRecord, error)
	// CreatePlayer creates a player with no claims
	CreatePlayer(ctx context.Context, sessionID types.SessionID, name string) (*models.PlayerRecord, error)
	// UpdatePlayer applies a partial update. It returns ErrNotFound for an unknown id.
	UpdatePlayer(ctx context.Context, id types.RemoteID, update models.PlayerUpdate) error
	// DeletePlayer removes the player. It returns ErrNotFound for an unknown id.
	DeletePlayer(ctx context.Context, id types.RemoteID) error
}
