package state

import (
	"context"
	"errors"
	"sync"

	"github.com/cbodonnell/platespotter/pkg/game/types"
)

// ErrNoSession is returned by Get before any session has been set.
var ErrNoSession = errors.New("no session")

type InMemoryStateManager struct {
	lock    sync.RWMutex
	session *types.Session
}

func NewInMemoryStateManager() *InMemoryStateManager {
	return &InMemoryStateManager{}
}

func (m *InMemoryStateManager) Get(ctx context.Context) (types.Session, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.session == nil {
		return types.Session{}, ErrNoSession
	}
	return m.session.Clone(), nil
}

func (m *InMemoryStateManager) Set(ctx context.Context, session types.Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if len(session.Players) == 0 {
		return errors.New("session has no players")
	}

	s := session.Clone()
	m.session = &s
	return nil
}
