package messages

import (
	"encoding/json"
	"time"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/game/types"
)

// Message types
const (
	MessageTypeSessionSnapshot = "session_snapshot"
	MessageTypeWarning         = "warning"
)

// Message represents a generic message for serialization/deserialization
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Warning struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type PlayerView struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Claims     []string `json:"claims"`
	ClaimCount int      `json:"claim_count"`
	Score      int      `json:"score"`
	Synced     bool     `json:"synced"`
}

type RegionView struct {
	catalog.Region
	// ClaimedBy is the local id of the player holding the region
	ClaimedBy *int `json:"claimed_by,omitempty"`
}

// SessionSnapshot is the view of a session sent to clients.
type SessionSnapshot struct {
	SessionID      string       `json:"session_id"`
	Local          bool         `json:"local"`
	Status         string       `json:"status"`
	ActivePlayerID int          `json:"active_player_id"`
	Players        []PlayerView `json:"players"`
	GlobalClaimed  []string     `json:"global_claimed"`
	// Regions lists spotted regions first, then by name
	Regions  []RegionView `json:"regions"`
	Progress float64      `json:"progress"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

// NewSessionSnapshot builds the client view of s.
func NewSessionSnapshot(s types.Session, c *catalog.Catalog, status string, warnings []Warning) *SessionSnapshot {
	players := make([]PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, PlayerView{
			ID:         int(p.LocalID),
			Name:       p.Name,
			Claims:     p.Claims.Sorted(),
			ClaimCount: p.Claims.Len(),
			Score:      p.Score,
			Synced:     p.HasRemote(),
		})
	}

	global := s.GlobalClaimed()
	sorted := c.SortedBySpotted(global.Has)
	regions := make([]RegionView, 0, len(sorted))
	for _, r := range sorted {
		view := RegionView{Region: r}
		if holder, ok := s.ClaimedBy(r.ID); ok {
			id := int(holder.LocalID)
			view.ClaimedBy = &id
		}
		regions = append(regions, view)
	}

	return &SessionSnapshot{
		SessionID:      string(s.ID),
		Local:          s.IsLocal(),
		Status:         status,
		ActivePlayerID: int(s.ActivePlayerID),
		Players:        players,
		GlobalClaimed:  global.Sorted(),
		Regions:        regions,
		Progress:       c.Progress(global.Has),
		Warnings:       warnings,
	}
}

// NewMessage marshals v as the payload of a message of the given type.
func NewMessage(messageType string, v interface{}) (*Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:    messageType,
		Payload: payload,
	}, nil
}
