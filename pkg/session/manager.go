package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/platespotter/pkg/game"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/queue"
	"github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/cbodonnell/platespotter/pkg/state"
	"github.com/cbodonnell/platespotter/pkg/workers"
)

const (
	// MaxWarnings is the number of most recent warnings kept per session
	MaxWarnings = 20
	// SubscriberBufferSize is the number of events buffered per subscriber
	SubscriberBufferSize = 16
)

// Manager owns one session: it loads it, applies engine transitions and
// mirrors every change to the repository in the background. It is safe for
// concurrent use.
type Manager struct {
	lock         sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	engine       *game.Engine
	repository   repositories.Repository
	stateManager state.StateManager
	syncOpts     SyncOptions

	status     Status
	ownerID    string
	generation uint64
	warnings   []Warning
	lastActive time.Time
	// offline is set while an owner's session runs locally because the
	// repository could not be reached
	offline bool

	syncQueue  queue.Queue[workers.SyncTask]
	syncCancel context.CancelFunc
	syncDone   chan struct{}

	subscribers map[int]chan Event
	nextSubID   int
}

type SyncOptions struct {
	MaxRetries     uint
	InitialBackoff time.Duration
	QueueSize      int
}

type NewManagerOptions struct {
	Engine *game.Engine
	// Repository may be nil, in which case every session is local
	Repository repositories.Repository
	// StateManager defaults to an in-memory store
	StateManager state.StateManager
	Sync         SyncOptions
}

// NewManager creates a manager in the uninitialized state. Background work
// stops when ctx is done or Close is called.
func NewManager(ctx context.Context, opts NewManagerOptions) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	stateManager := opts.StateManager
	if stateManager == nil {
		stateManager = state.NewInMemoryStateManager()
	}
	syncOpts := opts.Sync
	if syncOpts.QueueSize <= 0 {
		syncOpts.QueueSize = workers.DefaultSyncQueueSize
	}
	return &Manager{
		ctx:          ctx,
		cancel:       cancel,
		engine:       opts.Engine,
		repository:   opts.Repository,
		stateManager: stateManager,
		syncOpts:     syncOpts,
		status:       StatusUninitialized,
		lastActive:   time.Now(),
		subscribers:  make(map[int]chan Event),
	}
}

// Bootstrap loads the owner's latest session, creating one when none exists.
// An empty ownerID or a missing repository yields a local session. Any
// repository failure also falls back to a local session and raises a
// WarningPersistenceUnavailable; it is never returned as an error.
func (m *Manager) Bootstrap(ctx context.Context, ownerID string) error {
	m.lock.Lock()
	m.generation++
	gen := m.generation
	m.stopSyncLocked()
	m.status = StatusLoading
	m.ownerID = ownerID
	m.lock.Unlock()

	var s types.Session
	var tasks []workers.SyncTask
	var warning *Warning
	if ownerID == "" || m.repository == nil {
		s = m.engine.NewLocalSession()
	} else {
		loaded, pending, err := m.loadRemote(ctx, ownerID)
		if err != nil {
			log.Warn("Failed to load session of %s, continuing locally: %v", ownerID, err)
			s = m.engine.NewLocalSession()
			warning = &Warning{
				Kind:    WarningPersistenceUnavailable,
				Message: "Could not reach the server, your game will not be saved",
				Time:    time.Now(),
			}
		} else {
			s, tasks = loaded, pending
		}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if gen != m.generation {
		log.Debug("Bootstrap of %s superseded by a newer one", ownerID)
		return nil
	}
	if err := m.installLocked(gen, s, tasks); err != nil {
		return err
	}
	m.offline = warning != nil
	if warning != nil {
		m.addWarningLocked(*warning)
	}
	return nil
}

// installLocked makes s the current session and starts mirroring it when it
// is remote.
func (m *Manager) installLocked(gen uint64, s types.Session, tasks []workers.SyncTask) error {
	if err := m.stateManager.Set(m.ctx, s); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if s.IsLocal() {
		m.status = StatusReadyLocal
	} else {
		m.status = StatusReadyRemote
		m.startSyncLocked(gen)
		m.enqueueLocked(tasks)
	}
	log.Info("Session %s ready (%s) with %d players", s.ID, m.status, len(s.Players))

	m.lastActive = time.Now()
	m.publishLocked(Event{Type: EventSnapshot, Snapshot: s.Clone(), Status: m.status})
	return nil
}

// Offline reports whether the owner's session fell back to a local one
// because the repository failed.
func (m *Manager) Offline() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.offline
}

// Reconnect retries loading the remote session of an offline manager. On
// success the remote session replaces the local one; on failure the local
// session is kept untouched and the error is returned. It is a no-op when
// the manager is not offline.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.lock.Lock()
	if !m.offline {
		m.lock.Unlock()
		return nil
	}
	gen := m.generation
	ownerID := m.ownerID
	m.lock.Unlock()

	s, tasks, err := m.loadRemote(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load session of %s: %w", ownerID, err)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if gen != m.generation || !m.offline {
		return nil
	}
	m.generation++
	if err := m.installLocked(m.generation, s, tasks); err != nil {
		return err
	}
	m.offline = false
	log.Info("Reconnected session of %s", ownerID)
	return nil
}

func (m *Manager) loadRemote(ctx context.Context, ownerID string) (types.Session, []workers.SyncTask, error) {
	sessionID, err := m.repository.FindLatestSession(ctx, ownerID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			return types.Session{}, nil, fmt.Errorf("failed to find session: %w", err)
		}
		sessionID, err = m.repository.CreateSession(ctx, ownerID)
		if err != nil {
			return types.Session{}, nil, fmt.Errorf("failed to create session: %w", err)
		}
		log.Info("Created session %s for %s", sessionID, ownerID)
	}

	records, err := m.repository.ListPlayers(ctx, sessionID)
	if err != nil {
		return types.Session{}, nil, fmt.Errorf("failed to list players: %w", err)
	}
	if len(records) == 0 {
		record, err := m.repository.CreatePlayer(ctx, sessionID, game.DefaultPlayerName(1))
		if err != nil {
			return types.Session{}, nil, fmt.Errorf("failed to create default player: %w", err)
		}
		records = append(records, *record)
	}

	return Reconcile(m.engine, sessionID, records)
}

func (m *Manager) startSyncLocked(gen uint64) {
	q := queue.NewInMemoryQueue[workers.SyncTask](m.syncOpts.QueueSize)
	worker := workers.NewSyncWorker(workers.NewSyncWorkerOptions{
		Repository:     m.repository,
		Queue:          q,
		MaxRetries:     m.syncOpts.MaxRetries,
		InitialBackoff: m.syncOpts.InitialBackoff,
		OnCreated: func(task workers.SyncTask, remoteID types.RemoteID) {
			m.attachRemoteID(gen, task, remoteID)
		},
		OnFailure: func(task workers.SyncTask, err error) {
			m.syncFailed(gen, task, err)
		},
	})

	ctx, cancel := context.WithCancel(m.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Start(ctx)
	}()

	m.syncQueue = q
	m.syncCancel = cancel
	m.syncDone = done
}

// stopSyncLocked cancels the sync worker without waiting for it, since the
// worker's callbacks take the lock.
func (m *Manager) stopSyncLocked() {
	if m.syncCancel == nil {
		return
	}
	if pending := m.syncQueue.Size(); pending > 0 {
		log.Warn("Discarding %d unsynced changes", pending)
	}
	m.syncCancel()
	m.syncQueue = nil
	m.syncCancel = nil
	m.syncDone = nil
}

func (m *Manager) enqueueLocked(tasks []workers.SyncTask) {
	if m.syncQueue == nil {
		return
	}
	for _, task := range tasks {
		if err := m.syncQueue.Enqueue(task); err != nil {
			if errors.Is(err, queue.ErrQueueFull) {
				log.Warn("Sync queue full, dropping %s of player %d", task.Op, task.PlayerID)
				m.addWarningLocked(Warning{
					Kind:    WarningPersistenceUnavailable,
					Message: fmt.Sprintf("Too many unsaved changes, a change to player %d was not saved", task.PlayerID),
					Time:    time.Now(),
				})
				continue
			}
			log.Error("Failed to enqueue sync task: %v", err)
		}
	}
}

func (m *Manager) attachRemoteID(gen uint64, task workers.SyncTask, remoteID types.RemoteID) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if gen != m.generation {
		return
	}
	current, err := m.stateManager.Get(m.ctx)
	if err != nil || current.ID != task.SessionID {
		return
	}
	next, err := m.engine.AttachRemoteID(current, task.PlayerID, remoteID)
	if err != nil {
		// the player was removed before its create completed
		log.Debug("Player %d no longer exists, not attaching %s", task.PlayerID, remoteID)
		return
	}
	if err := m.stateManager.Set(m.ctx, next); err != nil {
		log.Error("Failed to store session: %v", err)
		return
	}
	m.publishLocked(Event{Type: EventSnapshot, Snapshot: next.Clone(), Status: m.status})
}

func (m *Manager) syncFailed(gen uint64, task workers.SyncTask, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if gen != m.generation {
		return
	}
	m.addWarningLocked(Warning{
		Kind:    WarningPersistenceUnavailable,
		Message: fmt.Sprintf("Could not save player %d, changes are kept on this device", task.PlayerID),
		Time:    time.Now(),
	})
}

func (m *Manager) addWarningLocked(w Warning) {
	m.warnings = append(m.warnings, w)
	if len(m.warnings) > MaxWarnings {
		m.warnings = m.warnings[len(m.warnings)-MaxWarnings:]
	}
	m.publishLocked(Event{Type: EventWarning, Warning: w})
}

func (m *Manager) publishLocked(e Event) {
	for id, ch := range m.subscribers {
		select {
		case ch <- e:
		default:
			log.Debug("Subscriber %d is not keeping up, dropping event", id)
		}
	}
}

// Subscribe returns a channel receiving every snapshot and warning, and a
// function that ends the subscription. Slow subscribers miss events.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Event, SubscriberBufferSize)
	m.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.lock.Lock()
			defer m.lock.Unlock()
			if sub, ok := m.subscribers[id]; ok {
				delete(m.subscribers, id)
				close(sub)
			}
		})
	}
}

func (m *Manager) Status() Status {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.status
}

func (m *Manager) OwnerID() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.ownerID
}

// Warnings returns the most recent warnings, oldest first.
func (m *Manager) Warnings() []Warning {
	m.lock.Lock()
	defer m.lock.Unlock()
	out := make([]Warning, len(m.warnings))
	copy(out, m.warnings)
	return out
}

func (m *Manager) DismissWarnings() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.warnings = nil
}

// LastActive returns the time of the last bootstrap or successful mutation.
func (m *Manager) LastActive() time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.lastActive
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() (types.Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.status.Ready() {
		return types.Session{}, ErrNotReady
	}
	return m.stateManager.Get(m.ctx)
}

// mirrorFunc returns the tasks that mirror the transition from prev to next.
type mirrorFunc func(prev, next types.Session) []workers.SyncTask

func (m *Manager) apply(op string, transition func(types.Session) (types.Session, error), mirror mirrorFunc) (types.Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.status.Ready() {
		return types.Session{}, ErrNotReady
	}
	current, err := m.stateManager.Get(m.ctx)
	if err != nil {
		return types.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	next, err := transition(current)
	if err != nil {
		if game.IsPlayerNotFound(err) {
			log.Error("Failed to %s: %v", op, err)
		} else {
			log.Debug("Rejected %s: %v", op, err)
		}
		return current, err
	}

	if err := m.stateManager.Set(m.ctx, next); err != nil {
		return current, fmt.Errorf("failed to store session: %w", err)
	}
	m.lastActive = time.Now()
	if !next.IsLocal() && mirror != nil {
		m.enqueueLocked(mirror(current, next))
	}
	m.publishLocked(Event{Type: EventSnapshot, Snapshot: next.Clone(), Status: m.status})
	return next.Clone(), nil
}

func updatePlayer(id types.PlayerID) mirrorFunc {
	return func(prev, next types.Session) []workers.SyncTask {
		p, ok := next.Player(id)
		if !ok {
			return nil
		}
		return []workers.SyncTask{workers.NewSyncTask(workers.SyncUpdate, next.ID, p)}
	}
}

// ToggleClaim claims or releases the region for the player.
func (m *Manager) ToggleClaim(playerID types.PlayerID, regionID string) (types.Session, error) {
	return m.apply("toggle claim", func(s types.Session) (types.Session, error) {
		return m.engine.ToggleClaim(s, playerID, regionID)
	}, updatePlayer(playerID))
}

// ToggleActiveClaim claims or releases the region for the active player.
func (m *Manager) ToggleActiveClaim(regionID string) (types.Session, error) {
	var playerID types.PlayerID
	return m.apply("toggle claim", func(s types.Session) (types.Session, error) {
		playerID = s.ActivePlayerID
		return m.engine.ToggleClaim(s, playerID, regionID)
	}, func(prev, next types.Session) []workers.SyncTask {
		return updatePlayer(playerID)(prev, next)
	})
}

// ResetSession clears every claim, starting a new game with the same players.
func (m *Manager) ResetSession() (types.Session, error) {
	return m.apply("reset session", func(s types.Session) (types.Session, error) {
		return m.engine.ResetSession(s), nil
	}, func(prev, next types.Session) []workers.SyncTask {
		tasks := make([]workers.SyncTask, 0, len(next.Players))
		for _, p := range next.Players {
			tasks = append(tasks, workers.NewSyncTask(workers.SyncUpdate, next.ID, p))
		}
		return tasks
	})
}

func (m *Manager) AddPlayer() (types.Session, error) {
	return m.apply("add player", m.engine.AddPlayer, func(prev, next types.Session) []workers.SyncTask {
		added := next.Players[len(next.Players)-1]
		return []workers.SyncTask{workers.NewSyncTask(workers.SyncCreate, next.ID, added)}
	})
}

func (m *Manager) RemovePlayer(playerID types.PlayerID) (types.Session, error) {
	return m.apply("remove player", func(s types.Session) (types.Session, error) {
		return m.engine.RemovePlayer(s, playerID)
	}, func(prev, next types.Session) []workers.SyncTask {
		removed, ok := prev.Player(playerID)
		if !ok {
			return nil
		}
		return []workers.SyncTask{workers.NewSyncTask(workers.SyncDelete, next.ID, removed)}
	})
}

func (m *Manager) RenamePlayer(playerID types.PlayerID, name string) (types.Session, error) {
	return m.apply("rename player", func(s types.Session) (types.Session, error) {
		return m.engine.RenamePlayer(s, playerID, name)
	}, updatePlayer(playerID))
}

// SelectPlayer changes the active player. The active player is not stored remotely.
func (m *Manager) SelectPlayer(playerID types.PlayerID) (types.Session, error) {
	return m.apply("select player", func(s types.Session) (types.Session, error) {
		return m.engine.SelectPlayer(s, playerID)
	}, nil)
}

// Close stops background work and ends every subscription.
func (m *Manager) Close() {
	m.lock.Lock()
	m.generation++
	done := m.syncDone
	m.stopSyncLocked()
	m.cancel()
	for id, ch := range m.subscribers {
		delete(m.subscribers, id)
		close(ch)
	}
	m.status = StatusUninitialized
	m.lock.Unlock()

	if done != nil {
		<-done
	}
}
