package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/messages"
	"github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

type recordingConn struct {
	lock   sync.Mutex
	frames [][]byte
}

func (c *recordingConn) Write(ctx context.Context, typ websocket.MessageType, p []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.frames = append(c.frames, p)
	return nil
}

func (c *recordingConn) messages(t *testing.T) []*messages.Message {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]*messages.Message, 0, len(c.frames))
	for _, f := range c.frames {
		m, err := messages.DeserializeMessage(f)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

// unreachableRepository honors ctx and fails the first failures lookups
// as if the database could not be reached.
type unreachableRepository struct {
	repositories.Repository
	lock     sync.Mutex
	failures int
}

func (r *unreachableRepository) FindLatestSession(ctx context.Context, ownerID string) (types.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.lock.Lock()
	if r.failures > 0 {
		r.failures--
		r.lock.Unlock()
		return "", errors.New("connection refused")
	}
	r.lock.Unlock()
	return r.Repository.FindLatestSession(ctx, ownerID)
}

func newTestRegistry(t *testing.T, repo repositories.Repository) *Registry {
	t.Helper()
	r := NewRegistry(context.Background(), NewRegistryOptions{
		Engine:            newTestEngine(),
		Catalog:           catalog.Default(),
		Repository:        repo,
		Sync:              SyncOptions{InitialBackoff: time.Millisecond},
		ReconnectInterval: time.Nanosecond,
	})
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_Get(t *testing.T) {
	r := newTestRegistry(t, repositories.NewMemoryRepository())
	ctx := context.Background()

	owner, err := r.Get(ctx, OwnerKey("alice"), "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusReadyRemote, owner.Status())

	again, err := r.Get(ctx, OwnerKey("alice"), "alice")
	require.NoError(t, err)
	assert.Same(t, owner, again)

	guest, err := r.Get(ctx, GuestKey("g1"), "")
	require.NoError(t, err)
	assert.Equal(t, StatusReadyLocal, guest.Status())
	assert.NotSame(t, owner, guest)

	assert.Equal(t, 2, r.Len())
}

func TestRegistry_GetConcurrent(t *testing.T) {
	r := newTestRegistry(t, repositories.NewMemoryRepository())

	const n = 8
	managers := make([]*Manager, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Get(context.Background(), OwnerKey("alice"), "alice")
			assert.NoError(t, err)
			managers[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range managers[1:] {
		assert.Same(t, managers[0], m)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_GetOutlivesCaller(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	r := newTestRegistry(t, &unreachableRepository{Repository: repo})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := r.Get(ctx, OwnerKey("alice"), "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusReadyRemote, m.Status())
	assert.False(t, m.Offline())
	assert.Empty(t, m.Warnings())

	_, err = repo.FindLatestSession(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestRegistry_ReconnectsOfflineSession(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	r := newTestRegistry(t, &unreachableRepository{Repository: repo, failures: 2})
	ctx := context.Background()
	key := OwnerKey("alice")

	m, err := r.Get(ctx, key, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusReadyLocal, m.Status())
	assert.True(t, m.Offline())
	require.Len(t, m.Warnings(), 1)
	assert.Equal(t, WarningPersistenceUnavailable, m.Warnings()[0].Kind)

	_, err = m.ToggleClaim(1, "CA")
	require.NoError(t, err)

	// the repository is still down, the local game goes on
	again, err := r.Get(ctx, key, "alice")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, StatusReadyLocal, again.Status())
	s, err := again.Snapshot()
	require.NoError(t, err)
	assert.True(t, s.GlobalClaimed().Has("CA"))

	// back online
	again, err = r.Get(ctx, key, "alice")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, StatusReadyRemote, again.Status())
	assert.False(t, again.Offline())

	sessionID, err := repo.FindLatestSession(ctx, "alice")
	require.NoError(t, err)
	s, err = again.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, sessionID, s.ID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_View(t *testing.T) {
	r := newTestRegistry(t, nil)
	m, err := r.Get(context.Background(), GuestKey("g1"), "")
	require.NoError(t, err)
	_, err = m.ToggleClaim(1, "ONT")
	require.NoError(t, err)

	view, err := r.View(m)
	require.NoError(t, err)
	assert.True(t, view.Local)
	assert.Equal(t, "ready_local", view.Status)
	assert.Equal(t, []string{"ONT"}, view.GlobalClaimed)
	require.Len(t, view.Players, 1)
	assert.Equal(t, 2, view.Players[0].Score)
	assert.Equal(t, "ONT", view.Regions[0].ID)
}

func TestRegistry_BroadcastsSnapshots(t *testing.T) {
	r := newTestRegistry(t, nil)
	key := GuestKey("g1")
	m, err := r.Get(context.Background(), key, "")
	require.NoError(t, err)

	conn := &recordingConn{}
	_, err = r.ClientManager().AddClient(key, conn)
	require.NoError(t, err)
	other := &recordingConn{}
	_, err = r.ClientManager().AddClient(GuestKey("g2"), other)
	require.NoError(t, err)

	_, err = m.ToggleClaim(1, "TX")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for _, msg := range conn.messages(t) {
			if msg.Type != messages.MessageTypeSessionSnapshot {
				continue
			}
			var snapshot messages.SessionSnapshot
			if err := messages.DecodePayload(msg, &snapshot); err != nil {
				return false
			}
			if assert.ObjectsAreEqual([]string{"TX"}, snapshot.GlobalClaimed) {
				return true
			}
		}
		return false
	}, waitFor, tick)
	assert.Empty(t, other.messages(t))
}

func TestRegistry_Reap(t *testing.T) {
	r := newTestRegistry(t, nil)
	ctx := context.Background()

	_, err := r.Get(ctx, GuestKey("idle"), "")
	require.NoError(t, err)
	_, err = r.Get(ctx, GuestKey("watched"), "")
	require.NoError(t, err)
	_, err = r.ClientManager().AddClient(GuestKey("watched"), &recordingConn{})
	require.NoError(t, err)

	assert.Equal(t, 0, r.Reap(time.Now()))
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 1, r.Reap(time.Now().Add(DefaultIdleTimeout+time.Minute)))
	assert.Equal(t, 1, r.Len())

	// an unloaded key starts over with a fresh session
	m, err := r.Get(ctx, GuestKey("idle"), "")
	require.NoError(t, err)
	s, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0, s.GlobalClaimed().Len())
}
