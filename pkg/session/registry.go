package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/clients"
	"github.com/cbodonnell/platespotter/pkg/game"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/messages"
	"github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/cbodonnell/platespotter/pkg/workers"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultLoadTimeout bounds a single load of a session from the repository
	DefaultLoadTimeout = 15 * time.Second
	// DefaultReconnectInterval is the minimum time between two attempts to
	// reconnect an offline session
	DefaultReconnectInterval = 30 * time.Second
	// broadcastBufferSize is the number of messages buffered per session
	// before the broadcast worker falls behind
	broadcastBufferSize = 32
)

// OwnerKey is the registry key of a signed-in user's session.
func OwnerKey(ownerID string) string {
	return "owner:" + ownerID
}

// GuestKey is the registry key of an anonymous visitor's local session.
func GuestKey(guestID string) string {
	return "guest:" + guestID
}

// Registry holds one Manager per signed-in user or guest, and pushes every
// change of a session to the websocket clients watching it.
type Registry struct {
	lock          sync.Mutex
	ctx           context.Context
	engine        *game.Engine
	catalog       *catalog.Catalog
	repository    repositories.Repository
	clientManager *clients.ClientManager
	syncOpts      SyncOptions
	idleTimeout   time.Duration
	loadTimeout   time.Duration
	reconnect     time.Duration
	entries       map[string]*entry
}

type entry struct {
	manager *Manager
	// ready is closed once the first bootstrap finished
	ready  chan struct{}
	err    error
	ctx    context.Context
	cancel context.CancelFunc

	// guarded by the registry lock
	lastAttempt  time.Time
	reconnecting bool
}

type NewRegistryOptions struct {
	Engine        *game.Engine
	Catalog       *catalog.Catalog
	Repository    repositories.Repository
	ClientManager *clients.ClientManager
	Sync          SyncOptions
	// IdleTimeout is how long a session without clients stays loaded
	IdleTimeout time.Duration
	// LoadTimeout bounds each load from the repository
	LoadTimeout time.Duration
	// ReconnectInterval is the minimum time between reconnect attempts of
	// an offline session
	ReconnectInterval time.Duration
}

func NewRegistry(ctx context.Context, opts NewRegistryOptions) *Registry {
	idleTimeout := opts.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	reconnect := opts.ReconnectInterval
	if reconnect <= 0 {
		reconnect = DefaultReconnectInterval
	}
	clientManager := opts.ClientManager
	if clientManager == nil {
		clientManager = clients.NewClientManager()
	}
	return &Registry{
		ctx:           ctx,
		engine:        opts.Engine,
		catalog:       opts.Catalog,
		repository:    opts.Repository,
		clientManager: clientManager,
		syncOpts:      opts.Sync,
		idleTimeout:   idleTimeout,
		loadTimeout:   loadTimeout,
		reconnect:     reconnect,
		entries:       make(map[string]*entry),
	}
}

func (r *Registry) Catalog() *catalog.Catalog {
	return r.catalog
}

func (r *Registry) ClientManager() *clients.ClientManager {
	return r.clientManager
}

// Get returns the manager for key, loading the session of ownerID the first
// time the key is seen. Concurrent callers for the same key share one load.
// The load does not depend on ctx, so a caller going away never leaves an
// owner with a local session. An owner whose session went offline is
// reconnected on a later call.
func (r *Registry) Get(ctx context.Context, key string, ownerID string) (*Manager, error) {
	r.lock.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = r.newEntryLocked(key)
	}
	r.lock.Unlock()

	if !ok {
		return r.load(e, key, ownerID)
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return e.manager, e.err
	}
	if r.claimReconnect(e) {
		r.reconnectEntry(e, key)
	}
	return e.manager, nil
}

func (r *Registry) load(e *entry, key string, ownerID string) (*Manager, error) {
	ctx, cancel := context.WithTimeout(e.ctx, r.loadTimeout)
	err := e.manager.Bootstrap(ctx, ownerID)
	cancel()

	r.lock.Lock()
	e.lastAttempt = time.Now()
	if err != nil {
		e.err = fmt.Errorf("failed to bootstrap session %s: %w", key, err)
		if r.entries[key] == e {
			delete(r.entries, key)
		}
	}
	r.lock.Unlock()

	if err != nil {
		e.cancel()
		e.manager.Close()
	}
	close(e.ready)
	return e.manager, e.err
}

// claimReconnect reports whether the caller should reconnect the entry's
// offline session. At most one caller reconnects at a time.
func (r *Registry) claimReconnect(e *entry) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if e.reconnecting || time.Since(e.lastAttempt) < r.reconnect {
		return false
	}
	if !e.manager.Offline() {
		return false
	}
	e.reconnecting = true
	return true
}

func (r *Registry) reconnectEntry(e *entry, key string) {
	ctx, cancel := context.WithTimeout(e.ctx, r.loadTimeout)
	err := e.manager.Reconnect(ctx)
	cancel()
	if err != nil {
		log.Debug("Session %s is still offline: %v", key, err)
	}

	r.lock.Lock()
	e.reconnecting = false
	e.lastAttempt = time.Now()
	r.lock.Unlock()
}

func (r *Registry) newEntryLocked(key string) *entry {
	ctx, cancel := context.WithCancel(r.ctx)
	m := NewManager(ctx, NewManagerOptions{
		Engine:     r.engine,
		Repository: r.repository,
		Sync:       r.syncOpts,
	})
	e := &entry{
		manager: m,
		ready:   make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	r.entries[key] = e

	events, unsubscribe := m.Subscribe()
	broadcastChan := make(chan workers.BroadcastMessage, broadcastBufferSize)
	go r.forwardEvents(ctx, m, events, broadcastChan)
	go func() {
		defer unsubscribe()
		workers.NewBroadcastMessageWorker(workers.NewBroadcastMessageWorkerOptions{
			ClientManager:        r.clientManager,
			SessionKey:           key,
			BroadcastMessageChan: broadcastChan,
		}).Start(ctx)
	}()
	return e
}

// forwardEvents turns manager events into broadcast messages until the
// subscription ends.
func (r *Registry) forwardEvents(ctx context.Context, m *Manager, events <-chan Event, out chan<- workers.BroadcastMessage) {
	defer close(out)
	for ev := range events {
		var msg workers.BroadcastMessage
		switch ev.Type {
		case EventSnapshot:
			msg = workers.BroadcastMessage{
				Type:    messages.MessageTypeSessionSnapshot,
				Message: messages.NewSessionSnapshot(ev.Snapshot, r.catalog, ev.Status.String(), WarningMessages(m.Warnings())),
			}
		case EventWarning:
			msg = workers.BroadcastMessage{
				Type:    messages.MessageTypeWarning,
				Message: ev.Warning.ToMessage(),
			}
		default:
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// View returns the client view of the manager's session.
func (r *Registry) View(m *Manager) (*messages.SessionSnapshot, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return messages.NewSessionSnapshot(s, r.catalog, m.Status().String(), WarningMessages(m.Warnings())), nil
}

// Len returns the number of loaded sessions.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.entries)
}

// Reap unloads sessions that have no clients and were idle since before
// now minus the idle timeout. It returns the number unloaded.
func (r *Registry) Reap(now time.Time) int {
	r.lock.Lock()
	var idle []*entry
	for key, e := range r.entries {
		select {
		case <-e.ready:
		default:
			continue
		}
		if r.clientManager.Watching(key) > 0 {
			continue
		}
		if now.Sub(e.manager.LastActive()) < r.idleTimeout {
			continue
		}
		delete(r.entries, key)
		idle = append(idle, e)
		log.Debug("Unloading idle session %s", key)
	}
	r.lock.Unlock()

	for _, e := range idle {
		e.manager.Close()
		e.cancel()
	}
	return len(idle)
}

// StartReaper calls Reap every interval until ctx is done.
func (r *Registry) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Reap(now); n > 0 {
				log.Info("Unloaded %d idle sessions", n)
			}
		}
	}
}

// Close unloads every session.
func (r *Registry) Close() {
	r.lock.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.lock.Unlock()

	for _, e := range entries {
		<-e.ready
		e.manager.Close()
		e.cancel()
	}
}
