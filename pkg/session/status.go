package session

import (
	"errors"
	"time"

	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/messages"
)

// ErrNotReady is returned by operations issued before a session is loaded.
var ErrNotReady = errors.New("session is not ready")

type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	// StatusReadyLocal means the session lives only in memory
	StatusReadyLocal
	// StatusReadyRemote means changes are mirrored to the repository
	StatusReadyRemote
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusReadyLocal:
		return "ready_local"
	case StatusReadyRemote:
		return "ready_remote"
	default:
		return "unknown"
	}
}

func (s Status) Ready() bool {
	return s == StatusReadyLocal || s == StatusReadyRemote
}

type WarningKind string

const (
	// WarningPersistenceUnavailable is raised when the repository cannot be
	// reached or a change could not be mirrored. Play continues locally.
	WarningPersistenceUnavailable WarningKind = "persistence_unavailable"
)

type Warning struct {
	Kind    WarningKind
	Message string
	Time    time.Time
}

func (w Warning) ToMessage() messages.Warning {
	return messages.Warning{
		Kind:    string(w.Kind),
		Message: w.Message,
		Time:    w.Time,
	}
}

// WarningMessages converts warnings to their wire form.
func WarningMessages(warnings []Warning) []messages.Warning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]messages.Warning, len(warnings))
	for i, w := range warnings {
		out[i] = w.ToMessage()
	}
	return out
}

type EventType int

const (
	EventSnapshot EventType = iota + 1
	EventWarning
)

// Event is delivered to subscribers after every state change or warning.
type Event struct {
	Type EventType
	// Snapshot and Status are set for EventSnapshot
	Snapshot types.Session
	Status   Status
	// Warning is set for EventWarning
	Warning Warning
}
