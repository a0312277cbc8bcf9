package types

import (
	"fmt"
)

const (
	// MaxPlayers is the maximum number of players in one session
	MaxPlayers = 6
	// MaxPlayerNameLength is the maximum number of characters in a player name
	MaxPlayerNameLength = 32
	// LocalSessionID identifies a session that is not backed by the remote store
	LocalSessionID SessionID = "local"
)

// PlayerID identifies a player within a session. It is assigned locally and
// never derived from a remote key.
type PlayerID int

// RemoteID is the opaque key of a player in the remote store. The zero
// value means the player has not been persisted.
type RemoteID string

// SessionID is the opaque key of a session in the remote store, or
// LocalSessionID for local-only sessions.
type SessionID string

func (id SessionID) IsLocal() bool {
	return id == "" || id == LocalSessionID
}

type Player struct {
	LocalID  PlayerID
	Name     string
	Claims   RegionSet
	Score    int
	RemoteID RemoteID
}

// HasRemote reports whether the player is known to the remote store.
func (p Player) HasRemote() bool {
	return p.RemoteID != ""
}

func (p Player) Clone() Player {
	p.Claims = p.Claims.Clone()
	return p
}

// Session is an immutable snapshot of one game.
// The global claimed set is derived from the players by NewSession and
// cannot be set any other way.
type Session struct {
	ID             SessionID
	Players        []Player
	ActivePlayerID PlayerID

	globalClaimed RegionSet
}

// NewSession validates the players and derives the global claimed set.
// It fails when a region is claimed by more than one player, when local ids
// repeat, when the player count is outside 1..MaxPlayers or when the active
// player does not exist.
func NewSession(id SessionID, players []Player, active PlayerID) (Session, error) {
	if len(players) < 1 || len(players) > MaxPlayers {
		return Session{}, fmt.Errorf("session must have between 1 and %d players, got %d", MaxPlayers, len(players))
	}

	global := make(RegionSet)
	owners := make(map[string]PlayerID)
	seen := make(map[PlayerID]struct{}, len(players))
	activeFound := false
	out := make([]Player, len(players))
	for i, p := range players {
		if _, dup := seen[p.LocalID]; dup {
			return Session{}, fmt.Errorf("duplicate player id %d", p.LocalID)
		}
		seen[p.LocalID] = struct{}{}
		if p.LocalID == active {
			activeFound = true
		}
		if p.Claims == nil {
			p.Claims = make(RegionSet)
		}
		for region := range p.Claims {
			if owner, claimed := owners[region]; claimed {
				return Session{}, fmt.Errorf("region %s claimed by players %d and %d", region, owner, p.LocalID)
			}
			owners[region] = p.LocalID
			global[region] = struct{}{}
		}
		out[i] = p
	}
	if !activeFound {
		return Session{}, fmt.Errorf("active player %d does not exist", active)
	}

	return Session{
		ID:             id,
		Players:        out,
		ActivePlayerID: active,
		globalClaimed:  global,
	}, nil
}

// MustNewSession is like NewSession but panics when an invariant is violated.
func MustNewSession(id SessionID, players []Player, active PlayerID) Session {
	s, err := NewSession(id, players, active)
	if err != nil {
		panic(fmt.Sprintf("invalid session: %v", err))
	}
	return s
}

// GlobalClaimed returns the union of all players' claims.
func (s Session) GlobalClaimed() RegionSet {
	return s.globalClaimed
}

// IsLocal reports whether the session lives only in memory.
func (s Session) IsLocal() bool {
	return s.ID.IsLocal()
}

// Player returns the player with the given local id.
func (s Session) Player(id PlayerID) (Player, bool) {
	if i := s.PlayerIndex(id); i >= 0 {
		return s.Players[i], true
	}
	return Player{}, false
}

// PlayerIndex returns the position of the player in the list, or -1.
func (s Session) PlayerIndex(id PlayerID) int {
	for i, p := range s.Players {
		if p.LocalID == id {
			return i
		}
	}
	return -1
}

// ActivePlayer returns the currently acting player.
func (s Session) ActivePlayer() (Player, bool) {
	return s.Player(s.ActivePlayerID)
}

// ClaimedBy returns the player holding the region.
func (s Session) ClaimedBy(region string) (Player, bool) {
	if !s.globalClaimed.Has(region) {
		return Player{}, false
	}
	for _, p := range s.Players {
		if p.Claims.Has(region) {
			return p, true
		}
	}
	return Player{}, false
}

// MaxLocalID returns the largest local id in use, or 0 for an empty session.
func (s Session) MaxLocalID() PlayerID {
	var max PlayerID
	for _, p := range s.Players {
		if p.LocalID > max {
			max = p.LocalID
		}
	}
	return max
}

// Clone returns a deep copy that shares no sets with s.
func (s Session) Clone() Session {
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = p.Clone()
	}
	return Session{
		ID:             s.ID,
		Players:        players,
		ActivePlayerID: s.ActivePlayerID,
		globalClaimed:  s.globalClaimed.Clone(),
	}
}
