package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"github.com/google/uuid"
)

var _ Repository = &MemoryRepository{}

// MemoryRepository keeps sessions in process memory. It is used for
// development and as a remote store that lives as long as the server.
type MemoryRepository struct {
	lock     sync.RWMutex
	sessions map[types.SessionID]*memorySession
	players  map[types.RemoteID]*memoryPlayer
	// seq orders writes, since wall clock timestamps can tie
	seq uint64
}

type memorySession struct {
	session models.Session
	touched uint64
}

type memoryPlayer struct {
	record  models.PlayerRecord
	created uint64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[types.SessionID]*memorySession),
		players:  make(map[types.RemoteID]*memoryPlayer),
	}
}

func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) next() uint64 {
	r.seq++
	return r.seq
}

func (r *MemoryRepository) touch(id types.SessionID) {
	if s, ok := r.sessions[id]; ok {
		s.touched = r.next()
		s.session.UpdatedAt = time.Now()
	}
}

func (r *MemoryRepository) CreateSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := time.Now()
	id := types.SessionID(uuid.NewString())
	r.sessions[id] = &memorySession{
		session: models.Session{
			ID:        id,
			OwnerID:   ownerID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		touched: r.next(),
	}
	return id, nil
}

func (r *MemoryRepository) FindLatestSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var latest *memorySession
	for _, s := range r.sessions {
		if s.session.OwnerID != ownerID {
			continue
		}
		if latest == nil || s.touched > latest.touched {
			latest = s
		}
	}
	if latest == nil {
		return "", &ErrNotFound{Kind: "session"}
	}
	return latest.session.ID, nil
}

func (r *MemoryRepository) ListPlayers(ctx context.Context, sessionID types.SessionID) ([]models.PlayerRecord, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return nil, &ErrNotFound{Kind: "session", ID: string(sessionID)}
	}

	var found []*memoryPlayer
	for _, p := range r.players {
		if p.record.SessionID == sessionID {
			found = append(found, p)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].created < found[j].created
	})

	records := make([]models.PlayerRecord, 0, len(found))
	for _, p := range found {
		record := p.record
		record.Claims = append([]string{}, p.record.Claims...)
		records = append(records, record)
	}
	return records, nil
}

func (r *MemoryRepository) CreatePlayer(ctx context.Context, sessionID types.SessionID, name string) (*models.PlayerRecord, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return nil, &ErrNotFound{Kind: "session", ID: string(sessionID)}
	}

	record := models.PlayerRecord{
		ID:        types.RemoteID(uuid.NewString()),
		SessionID: sessionID,
		Name:      name,
		Claims:    []string{},
	}
	r.players[record.ID] = &memoryPlayer{
		record:  record,
		created: r.next(),
	}
	r.touch(sessionID)
	return &record, nil
}

func (r *MemoryRepository) UpdatePlayer(ctx context.Context, id types.RemoteID, update models.PlayerUpdate) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	p, ok := r.players[id]
	if !ok {
		return &ErrNotFound{Kind: "player", ID: string(id)}
	}
	p.record = update.Apply(p.record)
	r.touch(p.record.SessionID)
	return nil
}

func (r *MemoryRepository) DeletePlayer(ctx context.Context, id types.RemoteID) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	p, ok := r.players[id]
	if !ok {
		return &ErrNotFound{Kind: "player", ID: string(id)}
	}
	delete(r.players, id)
	r.touch(p.record.SessionID)
	return nil
}
