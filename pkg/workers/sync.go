package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/cbodonnell/platespotter/pkg/game/types"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/queue"
	"github.com/cbodonnell/platespotter/pkg/repositories"
	"github.com/cbodonnell/platespotter/pkg/repositories/models"
	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultSyncMaxRetries     = 3
	DefaultSyncInitialBackoff = 250 * time.Millisecond
	// DefaultSyncQueueSize bounds the tasks waiting to be mirrored per session
	DefaultSyncQueueSize = 256
)

type SyncOp int

const (
	SyncCreate SyncOp = iota + 1
	SyncUpdate
	SyncDelete
)

func (o SyncOp) String() string {
	switch o {
	case SyncCreate:
		return "create"
	case SyncUpdate:
		return "update"
	case SyncDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// SyncTask mirrors one player to the remote store. Updates carry the
// player's full state, so only the latest of consecutive updates matters.
type SyncTask struct {
	Op        SyncOp
	SessionID types.SessionID
	PlayerID  types.PlayerID
	// RemoteID is the key known when the task was queued. It may be empty
	// when the player's create is still pending.
	RemoteID types.RemoteID
	Name     string
	Claims   []string
	Score    int
}

// NewSyncTask builds a task carrying the player's current state.
func NewSyncTask(op SyncOp, sessionID types.SessionID, p types.Player) SyncTask {
	return SyncTask{
		Op:        op,
		SessionID: sessionID,
		PlayerID:  p.LocalID,
		RemoteID:  p.RemoteID,
		Name:      p.Name,
		Claims:    p.Claims.Sorted(),
		Score:     p.Score,
	}
}

type syncKey struct {
	session types.SessionID
	player  types.PlayerID
}

// SyncWorker drains a queue of SyncTasks into the repository. Each call is
// retried with exponential backoff; a task that still fails is reported
// through OnFailure and dropped.
type SyncWorker struct {
	repository     repositories.Repository
	queue          queue.Queue[SyncTask]
	maxRetries     uint
	initialBackoff time.Duration
	onCreated      func(task SyncTask, remoteID types.RemoteID)
	onFailure      func(task SyncTask, err error)
	// remoteIDs is only touched by the worker goroutine
	remoteIDs map[syncKey]types.RemoteID
}

type NewSyncWorkerOptions struct {
	Repository repositories.Repository
	Queue      queue.Queue[SyncTask]
	// MaxRetries is the number of retries after the first attempt
	MaxRetries     uint
	InitialBackoff time.Duration
	// OnCreated is called from the worker goroutine once a player exists remotely
	OnCreated func(task SyncTask, remoteID types.RemoteID)
	// OnFailure is called from the worker goroutine when a task is given up
	OnFailure func(task SyncTask, err error)
}

// NewSyncWorker creates a new SyncWorker.
// The worker mirrors player changes queued by a session manager.
func NewSyncWorker(opts NewSyncWorkerOptions) *SyncWorker {
	initialBackoff := opts.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = DefaultSyncInitialBackoff
	}
	return &SyncWorker{
		repository:     opts.Repository,
		queue:          opts.Queue,
		maxRetries:     opts.MaxRetries,
		initialBackoff: initialBackoff,
		onCreated:      opts.OnCreated,
		onFailure:      opts.OnFailure,
		remoteIDs:      make(map[syncKey]types.RemoteID),
	}
}

// Start processes tasks until ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		batch := CoalesceSyncTasks(append([]SyncTask{task}, w.queue.ReadAllMessages()...))
		for _, t := range batch {
			select {
			case <-ctx.Done():
				return
			default:
			}
			w.process(ctx, t)
		}
	}
}

// CoalesceSyncTasks collapses runs of updates for the same player into the
// last one. Ordering between different tasks is preserved.
func CoalesceSyncTasks(tasks []SyncTask) []SyncTask {
	out := make([]SyncTask, 0, len(tasks))
	for _, t := range tasks {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if t.Op == SyncUpdate && prev.Op == SyncUpdate && prev.PlayerID == t.PlayerID && prev.SessionID == t.SessionID {
				if t.RemoteID == "" {
					t.RemoteID = prev.RemoteID
				}
				out[n-1] = t
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func (w *SyncWorker) process(ctx context.Context, task SyncTask) {
	var err error
	switch task.Op {
	case SyncCreate:
		err = w.create(ctx, task)
	case SyncUpdate:
		err = w.update(ctx, task)
	case SyncDelete:
		err = w.delete(ctx, task)
	default:
		err = fmt.Errorf("unknown sync op %d", task.Op)
	}
	if err != nil {
		log.Warn("Failed to %s player %d of session %s: %v", task.Op, task.PlayerID, task.SessionID, err)
		if w.onFailure != nil {
			w.onFailure(task, err)
		}
	}
}

// resolve prefers the key learned from this worker's own creates, since a
// local id can be reused after its player was deleted.
func (w *SyncWorker) resolve(task SyncTask) types.RemoteID {
	if id, ok := w.remoteIDs[syncKey{task.SessionID, task.PlayerID}]; ok {
		return id
	}
	return task.RemoteID
}

func (w *SyncWorker) create(ctx context.Context, task SyncTask) error {
	record, err := retry(ctx, w, func() (*models.PlayerRecord, error) {
		return w.repository.CreatePlayer(ctx, task.SessionID, task.Name)
	})
	if err != nil {
		return err
	}

	w.remoteIDs[syncKey{task.SessionID, task.PlayerID}] = record.ID
	if w.onCreated != nil {
		w.onCreated(task, record.ID)
	}

	// new players start empty remotely; push whatever the player holds already
	if len(task.Claims) > 0 || task.Score != 0 {
		task.RemoteID = record.ID
		return w.update(ctx, task)
	}
	return nil
}

func (w *SyncWorker) update(ctx context.Context, task SyncTask) error {
	remoteID := w.resolve(task)
	if remoteID == "" {
		// the create for this player failed earlier, create it now
		task.Op = SyncCreate
		return w.create(ctx, task)
	}
	_, err := retry(ctx, w, func() (struct{}, error) {
		return struct{}{}, w.repository.UpdatePlayer(ctx, remoteID, models.FullUpdate(task.Name, task.Claims, task.Score))
	})
	return err
}

func (w *SyncWorker) delete(ctx context.Context, task SyncTask) error {
	key := syncKey{task.SessionID, task.PlayerID}
	remoteID := w.resolve(task)
	delete(w.remoteIDs, key)
	if remoteID == "" {
		log.Debug("Player %d of session %s was never persisted, nothing to delete", task.PlayerID, task.SessionID)
		return nil
	}
	_, err := retry(ctx, w, func() (struct{}, error) {
		return struct{}{}, w.repository.DeletePlayer(ctx, remoteID)
	})
	if repositories.IsNotFound(err) {
		return nil
	}
	return err
}

func retry[T any](ctx context.Context, w *SyncWorker, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initialBackoff
	b.MaxInterval = 20 * w.initialBackoff

	return backoff.Retry(ctx, func() (T, error) {
		res, err := op()
		if err != nil && repositories.IsNotFound(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(w.maxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug("Retrying remote call in %s: %v", next, err)
		}),
	)
}
