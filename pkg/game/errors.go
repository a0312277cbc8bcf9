package game

import (
	"errors"
	"fmt"

	"github.com/cbodonnell/platespotter/pkg/game/types"
)

// ClaimErrorKind classifies a rejected engine operation.
type ClaimErrorKind int

const (
	RegionAlreadyClaimedByOther ClaimErrorKind = iota + 1
	MaxPlayersReached
	CannotRemoveLastPlayer
	PlayerNotFound
	InvalidPlayerName
)

func (k ClaimErrorKind) String() string {
	switch k {
	case RegionAlreadyClaimedByOther:
		return "region_already_claimed"
	case MaxPlayersReached:
		return "max_players_reached"
	case CannotRemoveLastPlayer:
		return "cannot_remove_last_player"
	case PlayerNotFound:
		return "player_not_found"
	case InvalidPlayerName:
		return "invalid_player_name"
	default:
		return "unknown"
	}
}

// ClaimError is returned for operations the engine rejects.
// A rejected operation never changes the session.
type ClaimError struct {
	Kind     ClaimErrorKind
	PlayerID types.PlayerID
	RegionID string
	// Holder is the player owning RegionID when Kind is RegionAlreadyClaimedByOther.
	Holder types.PlayerID
}

func (e *ClaimError) Error() string {
	switch e.Kind {
	case RegionAlreadyClaimedByOther:
		return fmt.Sprintf("region %s already claimed by player %d", e.RegionID, e.Holder)
	case MaxPlayersReached:
		return fmt.Sprintf("a session can have at most %d players", types.MaxPlayers)
	case CannotRemoveLastPlayer:
		return "cannot remove the last player"
	case PlayerNotFound:
		return fmt.Sprintf("player %d not found", e.PlayerID)
	case InvalidPlayerName:
		return fmt.Sprintf("a player name must be between 1 and %d characters", types.MaxPlayerNameLength)
	default:
		return "claim error"
	}
}

// UserFacing reports whether the error should be shown to the players as a
// notice. PlayerNotFound indicates a wiring bug instead.
func (e *ClaimError) UserFacing() bool {
	return e.Kind != PlayerNotFound
}

func kindOf(err error) ClaimErrorKind {
	var claimErr *ClaimError
	if errors.As(err, &claimErr) {
		return claimErr.Kind
	}
	return 0
}

func IsRegionAlreadyClaimed(err error) bool {
	return kindOf(err) == RegionAlreadyClaimedByOther
}

func IsMaxPlayersReached(err error) bool {
	return kindOf(err) == MaxPlayersReached
}

func IsCannotRemoveLastPlayer(err error) bool {
	return kindOf(err) == CannotRemoveLastPlayer
}

func IsPlayerNotFound(err error) bool {
	return kindOf(err) == PlayerNotFound
}

func IsInvalidPlayerName(err error) bool {
	return kindOf(err) == InvalidPlayerName
}
