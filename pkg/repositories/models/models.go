package models

import (
	"time"

	"github.com/cbodonnell/platespotter/pkg/game/types"
)

type Session struct {
	ID        types.SessionID `json:"id"`
	OwnerID   string          `json:"owner_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PlayerRecord is a player as stored remotely. The order of Claims carries
// no meaning.
type PlayerRecord struct {
	ID        types.RemoteID  `json:"id"`
	SessionID types.SessionID `json:"session_id"`
	Name      string          `json:"name"`
	Claims    []string        `json:"claims"`
	Score     int             `json:"score"`
}

// PlayerUpdate is a partial update of a stored player. A nil field is left
// unchanged. A non-nil empty Claims slice clears the claims.
type PlayerUpdate struct {
	Name   *string  `json:"name,omitempty"`
	Claims []string `json:"claims,omitempty"`
	Score  *int     `json:"score,omitempty"`
}

// FullUpdate returns an update that overwrites every stored field.
func FullUpdate(name string, claims []string, score int) PlayerUpdate {
	if claims == nil {
		claims = []string{}
	}
	return PlayerUpdate{
		Name:   &name,
		Claims: claims,
		Score:  &score,
	}
}

// Apply returns the record with the update applied.
func (u PlayerUpdate) Apply(p PlayerRecord) PlayerRecord {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Claims != nil {
		p.Claims = append([]string{}, u.Claims...)
	}
	if u.Score != nil {
		p.Score = *u.Score
	}
	return p
}
