package game

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/scoring"
)

// Engine applies game rules to session snapshots. Every method takes a
// session value and returns a new one; the input is never modified and no
// reference to it is kept. The engine knows nothing about persistence.
type Engine struct {
	calculator *scoring.Calculator
}

func NewEngine(calculator *scoring.Calculator) *Engine {
	return &Engine{
		calculator: calculator,
	}
}

// Calculator returns the score calculator used by the engine.
func (e *Engine) Calculator() *scoring.Calculator {
	return e.calculator
}

// DefaultPlayerName returns the name given to the player at the 1-based position n.
func DefaultPlayerName(n int) string {
	return fmt.Sprintf("Player %d", n)
}

// NewLocalSession returns a session with a single default player.
func (e *Engine) NewLocalSession() types.Session {
	return types.MustNewSession(types.LocalSessionID, []types.Player{e.newPlayer(1, 1)}, 1)
}

// Rescore returns the player with its score recomputed from claims and name.
func (e *Engine) Rescore(p types.Player) types.Player {
	p.Score = e.calculator.Score(p.Claims, p.Name)
	return p
}

func (e *Engine) newPlayer(id types.PlayerID, position int) types.Player {
	return e.Rescore(types.Player{
		LocalID: id,
		Name:    DefaultPlayerName(position),
		Claims:  types.NewRegionSet(),
	})
}

// ToggleClaim claims the region for the player, or releases it when the
// player already holds it. A region held by another player is rejected.
func (e *Engine) ToggleClaim(s types.Session, playerID types.PlayerID, regionID string) (types.Session, error) {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return s, &ClaimError{Kind: PlayerNotFound, PlayerID: playerID, RegionID: regionID}
	}
	player := s.Players[idx]

	alreadyClaimed := player.Claims.Has(regionID)
	if !alreadyClaimed && s.GlobalClaimed().Has(regionID) {
		holder, _ := s.ClaimedBy(regionID)
		return s, &ClaimError{Kind: RegionAlreadyClaimedByOther, PlayerID: playerID, RegionID: regionID, Holder: holder.LocalID}
	}

	if alreadyClaimed {
		player.Claims = player.Claims.Without(regionID)
	} else {
		player.Claims = player.Claims.With(regionID)
	}

	players := replacePlayer(s.Players, idx, e.Rescore(player))
	return types.NewSession(s.ID, players, s.ActivePlayerID)
}

// ResetSession clears every player's claims and score.
func (e *Engine) ResetSession(s types.Session) types.Session {
	players := make([]types.Player, len(s.Players))
	for i, p := range s.Players {
		p.Claims = types.NewRegionSet()
		players[i] = e.Rescore(p)
	}
	return types.MustNewSession(s.ID, players, s.ActivePlayerID)
}

// AddPlayer appends a player with a fresh local id and a default name.
func (e *Engine) AddPlayer(s types.Session) (types.Session, error) {
	if len(s.Players) >= types.MaxPlayers {
		return s, &ClaimError{Kind: MaxPlayersReached}
	}

	player := e.newPlayer(s.MaxLocalID()+1, len(s.Players)+1)
	players := make([]types.Player, 0, len(s.Players)+1)
	players = append(players, s.Players...)
	players = append(players, player)

	active := s.ActivePlayerID
	if len(s.Players) == 0 {
		active = player.LocalID
	}
	return types.NewSession(s.ID, players, active)
}

// RemovePlayer drops the player and releases its claims. When the active
// player is removed, the first remaining player becomes active.
func (e *Engine) RemovePlayer(s types.Session, playerID types.PlayerID) (types.Session, error) {
	if len(s.Players) <= 1 {
		return s, &ClaimError{Kind: CannotRemoveLastPlayer, PlayerID: playerID}
	}
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return s, &ClaimError{Kind: PlayerNotFound, PlayerID: playerID}
	}

	players := make([]types.Player, 0, len(s.Players)-1)
	players = append(players, s.Players[:idx]...)
	players = append(players, s.Players[idx+1:]...)

	active := s.ActivePlayerID
	if active == playerID {
		active = players[0].LocalID
	}
	return types.NewSession(s.ID, players, active)
}

// RenamePlayer changes the player's name and recomputes its score, since
// bonus rules depend on the name. Claims are untouched. The name is trimmed
// and must have 1 to types.MaxPlayerNameLength characters.
func (e *Engine) RenamePlayer(s types.Session, playerID types.PlayerID, name string) (types.Session, error) {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return s, &ClaimError{Kind: PlayerNotFound, PlayerID: playerID}
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > types.MaxPlayerNameLength {
		return s, &ClaimError{Kind: InvalidPlayerName, PlayerID: playerID}
	}
	player := s.Players[idx]
	player.Name = name

	players := replacePlayer(s.Players, idx, e.Rescore(player))
	return types.NewSession(s.ID, players, s.ActivePlayerID)
}

// SelectPlayer makes the player the active one.
func (e *Engine) SelectPlayer(s types.Session, playerID types.PlayerID) (types.Session, error) {
	if s.PlayerIndex(playerID) < 0 {
		return s, &ClaimError{Kind: PlayerNotFound, PlayerID: playerID}
	}
	return types.NewSession(s.ID, s.Players, playerID)
}

// AttachRemoteID records the remote key of a player once the remote store
// has created it. Claims and score are untouched.
func (e *Engine) AttachRemoteID(s types.Session, playerID types.PlayerID, remoteID types.RemoteID) (types.Session, error) {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return s, &ClaimError{Kind: PlayerNotFound, PlayerID: playerID}
	}
	player := s.Players[idx]
	player.RemoteID = remoteID
	return types.NewSession(s.ID, replacePlayer(s.Players, idx, player), s.ActivePlayerID)
}

func replacePlayer(players []types.Player, idx int, p types.Player) []types.Player {
	out := make([]types.Player, len(players))
	copy(out, players)
	out[idx] = p
	return out
}
