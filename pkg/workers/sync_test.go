package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	mocks "github.com/cbodonnell/platespotter/mocks/github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/queue"
	"github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type syncRecorder struct {
	created  map[types.PlayerID]types.RemoteID
	failures []SyncTask
}

func newTestSyncWorker(repo repositories.Repository, q queue.Queue[SyncTask], rec *syncRecorder) *SyncWorker {
	return NewSyncWorker(NewSyncWorkerOptions{
		Repository:     repo,
		Queue:          q,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		OnCreated: func(task SyncTask, remoteID types.RemoteID) {
			rec.created[task.PlayerID] = remoteID
		},
		OnFailure: func(task SyncTask, err error) {
			rec.failures = append(rec.failures, task)
		},
	})
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{created: make(map[types.PlayerID]types.RemoteID)}
}

func TestCoalesceSyncTasks(t *testing.T) {
	update := func(player types.PlayerID, score int) SyncTask {
		return SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: player, Score: score}
	}
	tests := []struct {
		name  string
		tasks []SyncTask
		want  []SyncTask
	}{
		{
			name:  "empty",
			tasks: nil,
			want:  []SyncTask{},
		},
		{
			name:  "consecutive updates for one player keep the last",
			tasks: []SyncTask{update(1, 1), update(1, 2), update(1, 3)},
			want:  []SyncTask{update(1, 3)},
		},
		{
			name:  "updates for different players are kept",
			tasks: []SyncTask{update(1, 1), update(2, 1), update(1, 2)},
			want:  []SyncTask{update(1, 1), update(2, 1), update(1, 2)},
		},
		{
			name: "create is not merged into an update",
			tasks: []SyncTask{
				{Op: SyncCreate, SessionID: "s1", PlayerID: 2},
				update(2, 1),
				update(2, 4),
			},
			want: []SyncTask{
				{Op: SyncCreate, SessionID: "s1", PlayerID: 2},
				update(2, 4),
			},
		},
		{
			name: "delete breaks a run",
			tasks: []SyncTask{
				update(1, 1),
				{Op: SyncDelete, SessionID: "s1", PlayerID: 1},
				update(1, 2),
			},
			want: []SyncTask{
				update(1, 1),
				{Op: SyncDelete, SessionID: "s1", PlayerID: 1},
				update(1, 2),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoalesceSyncTasks(tt.tasks))
		})
	}
}

func TestCoalesceSyncTasksKeepsKnownRemoteID(t *testing.T) {
	got := CoalesceSyncTasks([]SyncTask{
		{Op: SyncUpdate, SessionID: "s1", PlayerID: 1, RemoteID: "r1", Score: 1},
		{Op: SyncUpdate, SessionID: "s1", PlayerID: 1, Score: 2},
	})
	require.Len(t, got, 1)
	assert.Equal(t, types.RemoteID("r1"), got[0].RemoteID)
	assert.Equal(t, 2, got[0].Score)
}

func TestSyncWorker_CreateThenPushState(t *testing.T) {
	repo := mocks.NewRepository(t)
	rec := newSyncRecorder()
	w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

	repo.EXPECT().CreatePlayer(mock.Anything, types.SessionID("s1"), "Player 2").
		Return(&models.PlayerRecord{ID: "r2", SessionID: "s1", Name: "Player 2", Claims: []string{}}, nil).Once()
	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("r2"), models.FullUpdate("Player 2", []string{"ONT"}, 2)).
		Return(nil).Once()

	w.process(context.Background(), SyncTask{
		Op: SyncCreate, SessionID: "s1", PlayerID: 2, Name: "Player 2", Claims: []string{"ONT"}, Score: 2,
	})

	assert.Equal(t, types.RemoteID("r2"), rec.created[2])
	assert.Empty(t, rec.failures)
}

func TestSyncWorker_UpdateUsesRemoteIDLearnedFromCreate(t *testing.T) {
	repo := mocks.NewRepository(t)
	rec := newSyncRecorder()
	w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

	repo.EXPECT().CreatePlayer(mock.Anything, types.SessionID("s1"), "Player 2").
		Return(&models.PlayerRecord{ID: "r2"}, nil).Once()
	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("r2"), models.FullUpdate("Kid", []string{"TX"}, 1)).
		Return(nil).Once()

	ctx := context.Background()
	w.process(ctx, SyncTask{Op: SyncCreate, SessionID: "s1", PlayerID: 2, Name: "Player 2"})
	w.process(ctx, SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: 2, Name: "Kid", Claims: []string{"TX"}, Score: 1})

	assert.Empty(t, rec.failures)
}

func TestSyncWorker_UpdateWithoutRemoteCreatesPlayer(t *testing.T) {
	repo := mocks.NewRepository(t)
	rec := newSyncRecorder()
	w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

	repo.EXPECT().CreatePlayer(mock.Anything, types.SessionID("s1"), "Player 3").
		Return(&models.PlayerRecord{ID: "r3"}, nil).Once()
	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("r3"), models.FullUpdate("Player 3", []string{"CA"}, 1)).
		Return(nil).Once()

	w.process(context.Background(), SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: 3, Name: "Player 3", Claims: []string{"CA"}, Score: 1})

	assert.Equal(t, types.RemoteID("r3"), rec.created[3])
}

func TestSyncWorker_RetriesThenReportsFailure(t *testing.T) {
	repo := mocks.NewRepository(t)
	rec := newSyncRecorder()
	w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("r1"), mock.Anything).
		Return(errors.New("connection refused")).Times(3)

	task := SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: 1, RemoteID: "r1", Name: "Player 1"}
	w.process(context.Background(), task)

	require.Len(t, rec.failures, 1)
	assert.Equal(t, task, rec.failures[0])
}

func TestSyncWorker_RecoversWithinRetries(t *testing.T) {
	repo := mocks.NewRepository(t)
	rec := newSyncRecorder()
	w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("r1"), mock.Anything).
		Return(errors.New("timeout")).Once()
	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("r1"), mock.Anything).
		Return(nil).Once()

	w.process(context.Background(), SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: 1, RemoteID: "r1"})
	assert.Empty(t, rec.failures)
}

func TestSyncWorker_NotFoundIsNotRetried(t *testing.T) {
	repo := mocks.NewRepository(t)
	rec := newSyncRecorder()
	w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("gone"), mock.Anything).
		Return(&repositories.ErrNotFound{Kind: "player", ID: "gone"}).Once()

	w.process(context.Background(), SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: 1, RemoteID: "gone"})
	assert.Len(t, rec.failures, 1)
}

func TestSyncWorker_Delete(t *testing.T) {
	t.Run("never persisted", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		rec := newSyncRecorder()
		w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

		w.process(context.Background(), SyncTask{Op: SyncDelete, SessionID: "s1", PlayerID: 4})
		assert.Empty(t, rec.failures)
	})

	t.Run("already gone remotely", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		rec := newSyncRecorder()
		w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

		repo.EXPECT().DeletePlayer(mock.Anything, types.RemoteID("r4")).
			Return(&repositories.ErrNotFound{Kind: "player"}).Once()

		w.process(context.Background(), SyncTask{Op: SyncDelete, SessionID: "s1", PlayerID: 4, RemoteID: "r4"})
		assert.Empty(t, rec.failures)
	})

	t.Run("forgets the remote id", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		rec := newSyncRecorder()
		w := newTestSyncWorker(repo, queue.NewInMemoryQueue[SyncTask](8), rec)

		repo.EXPECT().CreatePlayer(mock.Anything, types.SessionID("s1"), "Player 2").
			Return(&models.PlayerRecord{ID: "old"}, nil).Once()
		repo.EXPECT().DeletePlayer(mock.Anything, types.RemoteID("old")).Return(nil).Once()
		repo.EXPECT().CreatePlayer(mock.Anything, types.SessionID("s1"), "Player 2").
			Return(&models.PlayerRecord{ID: "new"}, nil).Once()

		ctx := context.Background()
		w.process(ctx, SyncTask{Op: SyncCreate, SessionID: "s1", PlayerID: 2, Name: "Player 2"})
		w.process(ctx, SyncTask{Op: SyncDelete, SessionID: "s1", PlayerID: 2})
		w.process(ctx, SyncTask{Op: SyncCreate, SessionID: "s1", PlayerID: 2, Name: "Player 2"})

		assert.Equal(t, types.RemoteID("new"), rec.created[2])
	})
}

func TestSyncWorker_StartDrainsQueue(t *testing.T) {
	repo := mocks.NewRepository(t)
	q := queue.NewInMemoryQueue[SyncTask](8)
	done := make(chan struct{})
	w := NewSyncWorker(NewSyncWorkerOptions{
		Repository:     repo,
		Queue:          q,
		InitialBackoff: time.Millisecond,
	})

	repo.EXPECT().UpdatePlayer(mock.Anything, types.RemoteID("r1"), models.FullUpdate("Player 1", []string{"CA", "TX"}, 2)).
		Run(func(ctx context.Context, id types.RemoteID, update models.PlayerUpdate) {
			close(done)
		}).
		Return(nil).Once()

	// both updates are queued before the worker starts, so they are coalesced
	require.NoError(t, q.Enqueue(SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: 1, RemoteID: "r1", Name: "Player 1", Claims: []string{"CA"}, Score: 1}))
	require.NoError(t, q.Enqueue(SyncTask{Op: SyncUpdate, SessionID: "s1", PlayerID: 1, RemoteID: "r1", Name: "Player 1", Claims: []string{"CA", "TX"}, Score: 2}))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update was not mirrored")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNewSyncTask(t *testing.T) {
	p := types.Player{LocalID: 2, Name: "Mom", Claims: types.NewRegionSet("TX", "CA"), Score: 2, RemoteID: "r2"}
	task := NewSyncTask(SyncUpdate, "s1", p)
	assert.Equal(t, SyncTask{
		Op:        SyncUpdate,
		SessionID: "s1",
		PlayerID:  2,
		RemoteID:  "r2",
		Name:      "Mom",
		Claims:    []string{"CA", "TX"},
		Score:     2,
	}, task)
}
